// Command oobleck is the hold-and-replace pump: buffers up to N most recent
// lines, releasing them only after quiescence of the holding time, with
// optional drain-on-replace.
package main

import (
	"context"
	"os"

	"github.com/valvesuite/valvekit/internal/holdcli"
)

func main() {
	os.Exit(holdcli.Run(context.Background(), "oobleck", os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
