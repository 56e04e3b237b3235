// Package paramchan implements the live parameter channel: a worker that
// re-reads a control file and hands the latest parsed parameter to the
// data pump, with a one-slot handshake so the worker never proposes a
// second value before the first is acknowledged.
package paramchan

import "context"

// Handoff is a one-slot, synchronous parameter handover between the
// control-file worker and the data pump. Unlike the reference design's
// explicit mutex+condvar+"received" flag, an unbuffered channel gives the
// same at-most-one-in-flight invariant for free: Propose's send cannot
// complete until the pump's receive runs, which *is* the acknowledgement.
type Handoff[T any] struct {
	ch chan T
}

// NewHandoff constructs an empty handoff.
func NewHandoff[T any]() *Handoff[T] {
	return &Handoff[T]{ch: make(chan T)}
}

// Propose hands v to the pump, blocking until the pump receives it or ctx is
// cancelled.
func (h *Handoff[T]) Propose(ctx context.Context, v T) error {
	select {
	case h.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// C exposes the receive side for the pump to select on alongside its sleep
// timer or read.
func (h *Handoff[T]) C() <-chan T {
	return h.ch
}
