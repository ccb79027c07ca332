package srcembed

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ============================================================================
// Async stdin stream
// ============================================================================
//
// stdinStream presents a blocking read to the consumer while keeping two
// half-buffers in flight: the consumer drains one half while a background
// goroutine refills the other from the descriptor.
//
// Ownership protocol (the only synchronization is the half-ownership
// invariant plus release/acquire on the atomic fields):
//
//   - The consumer owns the half it is draining. The background reader owns
//     the half named by refill while ioPending is set.
//   - The consumer hands off a drained half by waiting for ioPending to
//     clear, storing ioPending=true, then pointing refill at the drained
//     half. The reader's gate spins on refill; the atomic store/load pair
//     publishes the handoff and everything written before it.
//   - The reader publishes a refilled half (and, on EOF, writeHead) by
//     clearing ioPending; the consumer's acquire load of ioPending==false
//     makes the buffer contents visible.
//
// The descriptor is switched to non-blocking mode so the reader's raw read
// returns EAGAIN instead of parking in the kernel; the retry spin checks the
// finalize flag between attempts, which is what makes dispose unable to hang.

type half = uint32

const (
	halfLeft  half = 0
	halfRight half = 1
)

// errStreamFinalized is returned inside the reader goroutine when dispose
// requested termination mid-fill. It never escapes the stream.
var errStreamFinalized = errors.New("stream finalized")

type stdinStream struct {
	fd   int
	size int    // bytes per half
	buf  []byte // 2*size, split into left [0:size) and right [size:2*size)

	// Consumer-side state. Touched only by the consumer thread.
	owned    half // half the consumer is draining
	readHead int  // absolute index of the next unread byte
	eof      bool // writeHead has been observed
	eofEnd   int  // absolute end of valid data once eof is set

	// Handoff state shared with the reader goroutine.
	refill    atomic.Uint32 // half the reader should fill next
	ioPending atomic.Bool   // refill of the handed-off half not yet complete
	finalize  atomic.Bool   // dispose requested; sticky
	termErr   atomic.Bool   // reader hit a hard read error; sticky

	// writeHead is the absolute end of produced data, recorded by the reader
	// when EOF lands mid-fill. errv is the hard error behind termErr. Both
	// are plain fields: they are written before the reader's release-store of
	// ioPending=false and read only after the consumer's acquire-load
	// observes it.
	writeHead int
	errv      error

	done chan struct{}
}

// newStdinStream switches fd to non-blocking mode and synchronously fills the
// first half. If EOF arrives during that fill the background reader is never
// started and reads consume only what was gathered. halfSize must be >= 1.
func newStdinStream(fd, halfSize int) (*stdinStream, error) {
	s := &stdinStream{
		fd:        fd,
		size:      halfSize,
		buf:       make([]byte, 2*halfSize),
		writeHead: -1,
		done:      make(chan struct{}),
	}
	s.refill.Store(halfRight)

	if err := setNonblock(fd); err != nil {
		return nil, fmt.Errorf("stdin nonblock: %w", err)
	}

	n, err := s.fillHalf(halfLeft)
	if err != nil {
		return nil, fmt.Errorf("stdin initial fill: %w", err)
	}

	if n < s.size {
		// EOF before the first half filled; no reader goroutine.
		s.eof = true
		s.eofEnd = n
		close(s.done)

		return s, nil
	}

	// The reader starts on the right half with its refill marked pending, so
	// a consumer that drains the left half before the right one is ready
	// waits instead of racing into a half mid-fill.
	s.ioPending.Store(true)

	go s.readerLoop()

	return s, nil
}

// fillHalf reads from the descriptor until the half is full, EOF, or error.
// EAGAIN retries immediately (bounded spin); the finalize flag is checked
// between attempts. Returns the number of bytes placed in the half; a short
// count with a nil error means EOF.
func (s *stdinStream) fillHalf(h half) (int, error) {
	off := int(h) * s.size
	filled := 0

	var sp spinner

	for filled < s.size {
		if s.finalize.Load() {
			return filled, errStreamFinalized
		}

		n, err := rawRead(s.fd, s.buf[off+filled:off+s.size])
		if err != nil {
			if isWouldBlock(err) {
				sp.spin()

				continue
			}

			return filled, fmt.Errorf("read stdin: %w", err)
		}

		if n == 0 {
			return filled, nil
		}

		filled += n
	}

	return filled, nil
}

// readerLoop alternates halves: refill, publish, wait for the consumer to
// hand the other half back. Terminates on EOF, hard error, or finalize.
func (s *stdinStream) readerLoop() {
	defer close(s.done)

	h := halfRight

	var sp spinner

	for {
		for s.refill.Load() != h {
			if s.finalize.Load() {
				return
			}

			sp.spin()
		}

		n, err := s.fillHalf(h)

		switch {
		case errors.Is(err, errStreamFinalized):
			return

		case err != nil:
			s.errv = err
			s.termErr.Store(true)
			s.ioPending.Store(false)

			return

		case n < s.size:
			s.writeHead = int(h)*s.size + n
			s.ioPending.Store(false)

			return
		}

		s.ioPending.Store(false)
		h ^= 1
	}
}

// read copies up to len(p) bytes into p. A short count signals EOF; it is
// the only way EOF is reported. After EOF further reads return 0. A hard
// read error on the background side surfaces here as a non-nil error.
func (s *stdinStream) read(p []byte) (int, error) {
	done := 0

	var sp spinner

	for {
		end := (int(s.owned) + 1) * s.size
		if s.eof && s.eofEnd < end {
			end = s.eofEnd
		}

		n := copy(p[done:], s.buf[s.readHead:end])
		done += n
		s.readHead += n

		if done == len(p) {
			return done, nil
		}

		if s.eof {
			return done, nil
		}

		// Active half drained: wait for the other half, then swap.
		for s.ioPending.Load() {
			sp.spin()
		}

		if s.termErr.Load() {
			return done, s.errv
		}

		drained := s.owned
		s.owned ^= 1
		s.readHead = int(s.owned) * s.size

		if s.writeHead >= 0 {
			// The reader saw EOF while filling the half we just swapped
			// into; it has already terminated, so there is no refill to
			// request.
			s.eof = true
			s.eofEnd = s.writeHead

			continue
		}

		s.ioPending.Store(true)
		s.refill.Store(drained)
	}
}

// dispose terminates the background reader and joins it. The stream must not
// be used afterwards. It is not called on fatal error paths: there the
// process exits and the goroutine is abandoned deliberately.
func (s *stdinStream) dispose() {
	s.finalize.Store(true)
	<-s.done
}
