package paramchan

import (
	"bytes"
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// numRotatingBuffers: reads are accumulated across three rotating small
// buffers.
const numRotatingBuffers = 3

const pollTimeoutMillis = 100

func (w *Worker[T]) runCharSpecial(ctx context.Context) error {
	file, err := os.OpenFile(w.Path, os.O_RDONLY|unix.O_NONBLOCK, 0) //nolint:gosec
	if err != nil {
		return err
	}
	defer file.Close()

	var (
		buffers  [numRotatingBuffers][readBufSize]byte
		bufIndex int
		pending  []byte
		overlong bool
	)

	fd := int(file.Fd())

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, eof, pollErr := pollRead(fd, buffers[bufIndex][:])
		bufIndex = (bufIndex + 1) % numRotatingBuffers

		if pollErr != nil {
			return nil
		}

		if n == 0 {
			if eof && w.handleEOF(ctx) {
				return nil
			}

			continue
		}

		chunk := normalizeNUL(buffers[(bufIndex+numRotatingBuffers-1)%numRotatingBuffers][:n])
		pending, overlong = w.appendCommand(ctx, pending, overlong, chunk)
	}
}

// pollRead waits up to pollTimeoutMillis for fd to become readable, then
// reads into buf. It returns n=0, eof=false on a timeout with no data, and
// n=0, eof=true when the writer side has hung up or a read returns 0 bytes.
func pollRead(fd int, buf []byte) (int, bool, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}} //nolint:exhaustruct

	n, err := unix.Poll(fds, pollTimeoutMillis)
	if err != nil {
		if err == unix.EINTR {
			return 0, false, nil
		}

		return 0, false, err
	}

	if n == 0 || fds[0].Revents&unix.POLLIN == 0 {
		return 0, n > 0 && fds[0].Revents&unix.POLLHUP != 0, nil
	}

	read, err := unix.Read(fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return 0, false, nil
		}

		return 0, false, err
	}

	return read, read == 0, nil
}

func (w *Worker[T]) handleEOF(ctx context.Context) (stop bool) {
	if w.TerminateOnEOF {
		return true
	}

	select {
	case <-time.After(DefaultPollInterval):
	case <-ctx.Done():
		return true
	}

	return false
}

// appendCommand folds newly read bytes into the pending partial-command
// buffer, parsing and delivering the last complete line in the batch when a
// newline is present, and applying the overlong-discard rule.
func (w *Worker[T]) appendCommand(ctx context.Context, pending []byte, overlong bool, chunk []byte) ([]byte, bool) {
	pending = append(pending, chunk...)

	for {
		idx := bytes.IndexByte(pending, '\n')
		if idx < 0 {
			break
		}

		line := pending[:idx]
		pending = pending[idx+1:]

		if overlong {
			overlong = false

			continue
		}

		// Only the last complete line in a batch matters; keep scanning
		// for a later newline before acting, but remember this one in case
		// it's the last.
		if bytes.IndexByte(pending, '\n') < 0 {
			value, err := w.Parse(string(line))
			if err == nil {
				w.deliverIfChanged(ctx, value)
			} else {
				w.logDiscard(err)
			}
		}
	}

	if len(pending) > maxCommandLen {
		overlong = true
		pending = pending[:0]
	}

	return pending, overlong
}

func normalizeNUL(buf []byte) []byte {
	out := make([]byte, len(buf))
	copy(out, buf)

	for i, b := range out {
		if b == 0 {
			out[i] = ' '
		}
	}

	return out
}
