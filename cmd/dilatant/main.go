// Command dilatant is the hold-and-replace pump, wired to the identical
// pump as oobleck under a second name.
package main

import (
	"context"
	"os"

	"github.com/valvesuite/valvekit/internal/holdcli"
)

func main() {
	os.Exit(holdcli.Run(context.Background(), "dilatant", os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
