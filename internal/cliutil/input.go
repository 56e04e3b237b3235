package cliutil

import (
	"fmt"
	"io"
	"os"
)

// OpenInputs opens paths in order and returns a single reader chaining their
// contents, or stdin if paths is empty. Close releases every opened file.
func OpenInputs(paths []string, stdin io.Reader) (io.Reader, func() error, error) {
	if len(paths) == 0 {
		return stdin, func() error { return nil }, nil
	}

	files := make([]*os.File, 0, len(paths))
	readers := make([]io.Reader, 0, len(paths))

	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll(files)

			return nil, nil, fmt.Errorf("open input %q: %w", p, err)
		}

		files = append(files, f)
		readers = append(readers, f)
	}

	return io.MultiReader(readers...), func() error { return closeAllErr(files) }, nil
}

func closeAll(files []*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

func closeAllErr(files []*os.File) error {
	var err error

	for _, f := range files {
		cerr := f.Close()
		if cerr != nil && err == nil {
			err = cerr
		}
	}

	return err
}
