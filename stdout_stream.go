package srcembed

import (
	"fmt"
	"sync/atomic"
)

// ============================================================================
// Async stdout stream
// ============================================================================
//
// stdoutStream is the mirror of stdinStream: the producer fills the half it
// owns while a background flusher goroutine writes completed halves to the
// descriptor. The handoff protocol is the same half-ownership scheme, with
// the roles inverted:
//
//   - The producer hands off a full half by waiting for flushPending to
//     clear, storing flushPending=true, then pointing full at the half. The
//     flusher's gate spins on full; observing the store also publishes the
//     half's contents and flushSize.
//   - The flusher publishes completion by clearing flushPending.
//
// flushSize is the byte count the flusher must emit per pass. It equals the
// half size in steady state and drops below it only for the duration of an
// explicit flush of a partially filled half.
//
// A failed write makes the stream terminally errored: the flusher records
// the error, clears flushPending, and exits; the producer observes it on the
// next handoff wait and every later write or flush reports failure.

type stdoutStream struct {
	fd   int
	size int
	buf  []byte

	// Producer-side state. Touched only by the producer thread.
	owned     half
	writeHead int // absolute index of the next byte the producer will write

	// Handoff state shared with the flusher goroutine.
	full         atomic.Uint32 // half most recently handed to the flusher
	flushPending atomic.Bool
	finalize     atomic.Bool
	termErr      atomic.Bool

	// flushSize and errv are plain fields, published through the atomic
	// handoff stores exactly like stdinStream.writeHead.
	flushSize int
	errv      error

	done chan struct{}
}

// newStdoutStream starts the background flusher. halfSize must be >= 1.
func newStdoutStream(fd, halfSize int) *stdoutStream {
	s := &stdoutStream{
		fd:        fd,
		size:      halfSize,
		buf:       make([]byte, 2*halfSize),
		flushSize: halfSize,
		done:      make(chan struct{}),
	}

	// full starts on the right so the flusher's first gate (left) blocks
	// until the producer hands off the left half.
	s.full.Store(halfRight)

	go s.flusherLoop()

	return s
}

func (s *stdoutStream) flusherLoop() {
	defer close(s.done)

	h := halfLeft

	var sp spinner

	for {
		for s.full.Load() != h {
			if s.finalize.Load() {
				return
			}

			sp.spin()
		}

		if s.finalize.Load() {
			return
		}

		off := int(h) * s.size
		if err := writeFull(s.fd, s.buf[off:off+s.flushSize]); err != nil {
			s.errv = fmt.Errorf("write stdout: %w", err)
			s.termErr.Store(true)
			s.flushPending.Store(false)

			return
		}

		s.flushPending.Store(false)
		h ^= 1
	}
}

// write copies p into the active half, handing off full halves as they
// complete. Returns false once the stream is terminally errored; from then
// on every call fails immediately.
func (s *stdoutStream) write(p []byte) bool {
	if s.termErr.Load() {
		return false
	}

	var sp spinner

	for {
		end := (int(s.owned) + 1) * s.size

		free := end - s.writeHead
		if len(p) < free {
			copy(s.buf[s.writeHead:], p)
			s.writeHead += len(p)

			return true
		}

		copy(s.buf[s.writeHead:end], p[:free])
		p = p[free:]

		for s.flushPending.Load() {
			sp.spin()
		}

		if s.termErr.Load() {
			return false
		}

		s.flushPending.Store(true)
		s.full.Store(s.owned)

		s.owned ^= 1
		s.writeHead = int(s.owned) * s.size
	}
}

// flush forces the flusher to drain the partially filled active half and
// waits for it to complete. On return the producer continues at the start of
// the other half with the steady-state flush size restored.
func (s *stdoutStream) flush() bool {
	var sp spinner

	// Wait out any in-flight flush of the other half.
	for s.flushPending.Load() {
		sp.spin()
	}

	if s.termErr.Load() {
		return false
	}

	s.flushSize = s.writeHead - int(s.owned)*s.size

	s.flushPending.Store(true)
	s.full.Store(s.owned)

	for s.flushPending.Load() {
		sp.spin()
	}

	s.flushSize = s.size

	if s.termErr.Load() {
		return false
	}

	s.owned ^= 1
	s.writeHead = int(s.owned) * s.size

	return true
}

// dispose performs a final flush, terminates the flusher, and joins it.
// Returns false if the final flush failed. Like stdinStream.dispose, fatal
// error paths skip this and abandon the goroutine on process exit.
func (s *stdoutStream) dispose() bool {
	if !s.flush() {
		// The flusher exited when it recorded the error.
		<-s.done

		return false
	}

	s.finalize.Store(true)
	<-s.done

	return true
}

// err returns the terminal error, if any.
func (s *stdoutStream) err() error {
	if s.termErr.Load() {
		return s.errv
	}

	return nil
}
