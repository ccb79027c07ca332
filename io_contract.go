package srcembed

import "errors"

// ============================================================================
// Internal I/O backend contract
// ============================================================================
//
// The streams, the transport selector, and the engines are written against a
// small set of unexported, platform-specific functions (this is the internal
// backend contract).
//
// Implementations live in build-tagged backend files:
//   - Linux fast path:                 io_linux.go
//   - Mainstream non-Linux Unix:       io_unix.go
//   - "Other" platforms (windows/etc): io_other.go
//
// Semantics expected by the callers:
//
//   - rawRead / rawWrite retry EINTR internally, matching Go's standard
//     library. rawRead reports EOF as (0, nil). EAGAIN/EWOULDBLOCK is
//     surfaced to the caller (the stdin stream's refill spin depends on it);
//     isWouldBlock classifies it.
//
//   - setNonblock puts the descriptor in non-blocking mode. Backends without
//     non-blocking descriptors implement it as a no-op; on those platforms
//     reads simply block and stream cancellation is correspondingly weaker.
//
//   - classifyFd stats a descriptor into the coarse kinds the transport
//     selector dispatches on (regular file with its size, pipe, other).
//
//   - pipeCapacity and the mmap helpers exist only where the platform
//     provides them; elsewhere they are not defined, the engine stubs
//     return errNotSupported instead, and the engine fallback chains route
//     around them.
//
// The zero-copy and mmap engines additionally require that mmapInput'd
// regions stay valid until munmapInput, and that pages gifted through
// vmspliceBytes are not touched again until the pipe consumer has drained
// them (the engines' double-buffer discipline guarantees this).

// Function signatures required by the streams, selector, and engines.
var (
	_ func(fd int, p []byte) (int, error) = rawRead
	_ func(fd int, p []byte) (int, error) = rawWrite
	_ func(err error) bool                = isWouldBlock
	_ func(fd int) error                  = setNonblock
	_ func(fd int) (fdKind, int64, error) = classifyFd
	_ func(fd int)                        = readaheadHint
)

// errNotSupported marks a backend capability that does not exist on this
// platform. Engine fallback chains treat it like any other setup failure.
var errNotSupported = errors.New("not supported on this platform")

// fdKind classifies stat results so the transport selector can pick an
// engine without extra syscalls or mode checks.
type fdKind uint8

const (
	// fdKindFile indicates a regular file.
	fdKindFile fdKind = iota
	// fdKindPipe indicates a pipe or FIFO.
	fdKindPipe
	// fdKindOther indicates everything else (tty, socket, device, ...).
	fdKindOther
)

// Standard descriptor numbers. The library operates on raw descriptors so
// the engines can mmap, splice, and stat them directly.
const (
	stdinFd  = 0
	stdoutFd = 1
)

// writeFull writes all of p, looping over short writes.
func writeFull(fd int, p []byte) error {
	for len(p) > 0 {
		n, err := rawWrite(fd, p)
		if err != nil {
			return err
		}

		p = p[n:]
	}

	return nil
}
