package cliutil

import (
	"io"

	"go.uber.org/multierr"
)

// Teardown accumulates the closers a pump acquires (input stream, drain
// stream, control-file descriptor, parameter worker) and closes every one of
// them on every exit path: each resource owns its own teardown, and
// multierr.Append aggregates whichever of them fail instead of reporting
// only the first.
type Teardown struct {
	closers []namedCloser
}

type namedCloser struct {
	name string
	fn   func() error
}

// Add registers a cleanup step under name, for inclusion in the aggregated
// error produced by Close.
func (t *Teardown) Add(name string, fn func() error) {
	t.closers = append(t.closers, namedCloser{name: name, fn: fn})
}

// AddCloser registers an io.Closer under name.
func (t *Teardown) AddCloser(name string, c io.Closer) {
	t.Add(name, c.Close)
}

// Close runs every registered step in reverse registration order (last
// acquired, first released) and returns their combined error, or nil if all
// succeeded.
func (t *Teardown) Close() error {
	var err error

	for i := len(t.closers) - 1; i >= 0; i-- {
		step := t.closers[i]

		cerr := step.fn()
		if cerr != nil {
			err = multierr.Append(err, &teardownError{step: step.name, cause: cerr})
		}
	}

	return err
}

type teardownError struct {
	step  string
	cause error
}

func (e *teardownError) Error() string {
	return e.step + ": " + e.cause.Error()
}

func (e *teardownError) Unwrap() error {
	return e.cause
}
