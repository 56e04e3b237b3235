// Command valve is the rate-limited pump in byte or line mode, with strict
// or oversleep-recovery pacing and an optional live control file.
package main

import (
	"context"
	"os"

	"github.com/valvesuite/valvekit/internal/ratecli"
)

func main() {
	os.Exit(ratecli.Run(context.Background(), "valve", os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
