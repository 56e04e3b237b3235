// Command relval is the release-valve rate pump: the same rate-limited
// pump as valve, shipped under a second name for historical naming-parity
// with the source family.
package main

import (
	"context"
	"os"

	"github.com/valvesuite/valvekit/internal/ratecli"
)

func main() {
	os.Exit(ratecli.Run(context.Background(), "relval", os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
