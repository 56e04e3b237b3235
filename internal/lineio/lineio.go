// Package lineio implements the elastic line buffer and line ring: a
// growable per-line chunk chain, and a fixed-capacity ring of such chains
// used to hold the last N lines pending release.
package lineio

import (
	"bufio"
	"errors"
	"io"
)

// ChunkSize is the fixed size of one chunk in an elastic line's chain.
const ChunkSize = 1024

// ReadKind classifies how ReadLine finished.
type ReadKind int

const (
	// CompletedLF means the line ended with a newline, which was consumed
	// but is not stored in the chain.
	CompletedLF ReadKind = iota
	// CompletedEOF means EOF was reached with at least one byte read and no
	// trailing newline; this still counts as a line.
	CompletedEOF
	// EmptyEOF means EOF was reached with zero bytes read: no line at all.
	EmptyEOF
)

// ErrIO is returned in place of any underlying read error other than EOF;
// the underlying error itself is not included.
var ErrIO = errors.New("lineio: read error")

type chunk struct {
	buf    [ChunkSize]byte
	filled int
	next   *chunk
}

// Line is a chain of fixed-size chunks holding one logical input line,
// reused across reads; each read cuts off (via shrinkAfter) trailing chunks
// that it no longer needs.
type Line struct {
	head *chunk
	// hadLF records whether this line was terminated by a newline that
	// ReadLine consumed (CompletedLF) as opposed to EOF with no trailing
	// newline (CompletedEOF). FlushLF only re-adds the newline when true.
	hadLF bool
}

// Reset marks the line empty without releasing its chunk chain, so the next
// ReadLine can reuse the allocation.
func (l *Line) Reset() {
	if l.head == nil {
		l.head = &chunk{} //nolint:exhaustruct
	}

	l.head.filled = 0
	l.hadLF = true
}

// Len returns the total number of bytes currently held (excluding any
// trailing newline, which is never stored).
func (l *Line) Len() int {
	total := 0

	for c := l.head; c != nil && c.filled > 0; c = c.next {
		total += c.filled
		if c.filled < ChunkSize {
			break
		}
	}

	return total
}

// Bytes materializes the line's contents into a single slice, for timestamp
// field extraction. Callers that only need to stream the line out should
// prefer Flush, which avoids the copy.
func (l *Line) Bytes() []byte {
	out := make([]byte, 0, l.Len())

	for c := l.head; c != nil && c.filled > 0; c = c.next {
		out = append(out, c.buf[:c.filled]...)
		if c.filled < ChunkSize {
			break
		}
	}

	return out
}

// ReadLine fills l with the next input line from r, extending the chain
// with additional chunks when the line exceeds one chunk and truncating
// (releasing) trailing chunks left over from a longer previous reuse.
func (l *Line) ReadLine(r *bufio.Reader) (ReadKind, error) {
	return l.ReadLineWithHook(r, nil)
}

// ReadLineWithHook behaves like ReadLine but invokes onFirstByte exactly
// once, the moment the line's first byte is read, before it is stored. The
// rate pump's per-line mode uses this to capture "top-char" arrival time so
// its period governs top-char-to-top-char, not last-char-to-top-char.
func (l *Line) ReadLineWithHook(r *bufio.Reader, onFirstByte func()) (ReadKind, error) {
	l.Reset()

	cur := l.head
	total := 0

	for {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				l.shrinkAfter(cur)

				if total == 0 {
					return EmptyEOF, nil
				}

				l.hadLF = false

				return CompletedEOF, nil
			}

			return CompletedEOF, ErrIO
		}

		if total == 0 && onFirstByte != nil {
			onFirstByte()
		}

		if b == '\n' {
			l.shrinkAfter(cur)

			return CompletedLF, nil
		}

		if cur.filled == ChunkSize {
			if cur.next == nil {
				cur.next = &chunk{} //nolint:exhaustruct
			}

			cur = cur.next
			cur.filled = 0
		}

		cur.buf[cur.filled] = b
		cur.filled++
		total++
	}
}

// shrinkAfter releases every chunk after last, since this read reused an
// older, longer chain.
func (l *Line) shrinkAfter(last *chunk) {
	last.next = nil
}

// Flush writes the line's contents to w, including no trailing newline; the
// caller adds one when reconstructing line-terminated output.
func (l *Line) Flush(w io.Writer) error {
	for c := l.head; c != nil && c.filled > 0; c = c.next {
		_, err := w.Write(c.buf[:c.filled])
		if err != nil {
			return err
		}

		if c.filled < ChunkSize {
			break
		}
	}

	return nil
}

// FlushLF writes the line's contents, followed by a newline only if the line
// was itself newline-terminated (a final line at EOF with no trailing LF is
// passed through without one added).
func (l *Line) FlushLF(w io.Writer) error {
	err := l.Flush(w)
	if err != nil {
		return err
	}

	if !l.hadLF {
		return nil
	}

	_, err = w.Write([]byte{'\n'})

	return err
}
