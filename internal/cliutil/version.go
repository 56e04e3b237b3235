package cliutil

import (
	"fmt"
	"io"

	"github.com/valvesuite/valvekit/internal/buildinfo"
)

// ShowVersion reports whether args requested "-version" (checked ahead of
// the binary's own flag set, since every binary's positional argument is
// mandatory and would otherwise reject "-version" as a bare flag with no
// duration/quantity/period following it). When requested, it writes the
// build identification to out and returns true.
func ShowVersion(program string, args []string, out io.Writer) bool {
	for _, a := range args {
		if a == "-version" || a == "--version" {
			info := buildinfo.Current()
			fmt.Fprintf(out, "%s %s (commit %s, built %s)\n", program, info.Version, info.GitCommit, info.BuildDate)

			return true
		}
	}

	return false
}
