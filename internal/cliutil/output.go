package cliutil

import (
	"fmt"
	"os"
	"strconv"
)

// OpenDrain resolves the "-d fd|path" drain destination: an integer names
// an already-open file descriptor, anything else names a file to
// create/append to (a numeric filename must be prefixed with "./" to
// disambiguate it from a descriptor number). An empty spec means no drain:
// the returned file is nil and the close function is a no-op.
func OpenDrain(spec string) (*os.File, func() error, error) {
	if spec == "" {
		return nil, func() error { return nil }, nil
	}

	fd, err := strconv.Atoi(spec)
	if err == nil {
		f := os.NewFile(uintptr(fd), "drain-fd-"+spec)

		return f, func() error { return nil }, nil
	}

	f, openErr := os.OpenFile(spec, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if openErr != nil {
		return nil, nil, fmt.Errorf("open drain %q: %w", spec, openErr)
	}

	return f, f.Close, nil
}
