//go:build linux && !android

package srcembed

// io_linux.go implements the internal I/O backend contract (see
// io_contract.go) for Linux.
//
// Linux is the performance-critical backend: the transport selector can use
// the full engine set here (memory-mapped input, zero-copy vmsplice output,
// pipe capacity queries, readahead hints). The stream and engine code is
// OS-agnostic and relies on the functions provided here.

import (
	"errors"
	"fmt"
	"math"
	"syscall"

	"golang.org/x/sys/unix"
)

// ============================================================================
// Raw descriptor I/O
// ============================================================================

// rawRead reads from fd. Retries EINTR without an upper bound, matching Go's
// standard library. EOF is (0, nil); EAGAIN is surfaced to the caller.
func rawRead(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		if errors.Is(err, syscall.EINTR) {
			continue
		}

		if err != nil {
			return 0, err
		}

		return n, nil
	}
}

// rawWrite writes to fd. Retries EINTR; short writes are the caller's
// problem (writeFull).
func rawWrite(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Write(fd, p)
		if errors.Is(err, syscall.EINTR) {
			continue
		}

		if err != nil {
			return 0, err
		}

		return n, nil
	}
}

func isWouldBlock(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}

func setNonblock(fd int) error {
	return unix.SetNonblock(fd, true)
}

// ============================================================================
// Descriptor classification
// ============================================================================

// classifyFd stats fd into the transport selector's coarse kinds. The size
// is meaningful only for fdKindFile.
func classifyFd(fd int) (fdKind, int64, error) {
	var st unix.Stat_t

	for {
		err := unix.Fstat(fd, &st)
		if errors.Is(err, syscall.EINTR) {
			continue
		}

		if err != nil {
			return fdKindOther, 0, fmt.Errorf("fstat: %w", err)
		}

		break
	}

	switch st.Mode & unix.S_IFMT {
	case unix.S_IFREG:
		return fdKindFile, st.Size, nil
	case unix.S_IFIFO:
		return fdKindPipe, 0, nil
	default:
		return fdKindOther, 0, nil
	}
}

// readaheadHint asks the kernel to prefetch the file behind fd. Only useful
// when stdin is a regular file; harmless and usually a no-op otherwise, so
// the error is ignored.
func readaheadHint(fd int) {
	// golang.org/x/sys/unix has no high-level wrapper for readahead(2); call
	// the syscall directly using the syscall number it already exposes.
	_, _, _ = unix.Syscall(unix.SYS_READAHEAD, uintptr(fd), 0, uintptr(math.MaxInt))
}

// ============================================================================
// Pipe and mapping helpers (engine backends)
// ============================================================================

// pipeCapacity returns the kernel buffer size of the pipe behind fd.
func pipeCapacity(fd int) (int, error) {
	size, err := unix.FcntlInt(uintptr(fd), unix.F_GETPIPE_SZ, 0)
	if err != nil {
		return 0, fmt.Errorf("F_GETPIPE_SZ: %w", err)
	}

	return size, nil
}

// mmapInput maps size bytes of the file behind fd read-only.
func mmapInput(fd int, size int) ([]byte, error) {
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}

	return data, nil
}

// adviseSequential hints sequential whole-file access on a mapped region.
// Advice failures do not affect correctness and are ignored.
func adviseSequential(data []byte) {
	_ = unix.Madvise(data, unix.MADV_WILLNEED)
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
}

func munmapInput(data []byte) error {
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}

	return nil
}

// mapAnonPages maps length bytes of anonymous page-aligned memory. When
// huge is set the mapping is backed by huge pages; the caller is expected to
// have rounded length up to the huge page size.
func mapAnonPages(length int, huge bool) ([]byte, error) {
	flags := unix.MAP_PRIVATE | unix.MAP_ANONYMOUS
	if huge {
		flags |= unix.MAP_HUGETLB
	}

	data, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		return nil, fmt.Errorf("mmap anonymous: %w", err)
	}

	return data, nil
}

// vmspliceBytes feeds p into the pipe behind fd. With unix.SPLICE_F_GIFT the
// pages are handed to the kernel and must not be touched again until the
// pipe consumer has drained them.
func vmspliceBytes(fd int, p []byte, flags int) (int, error) {
	iov := unix.Iovec{Base: &p[0]}
	iov.SetLen(len(p))

	for {
		n, err := unix.Vmsplice(fd, []unix.Iovec{iov}, flags)
		if errors.Is(err, syscall.EINTR) {
			continue
		}

		if err != nil {
			return 0, fmt.Errorf("vmsplice: %w", err)
		}

		return n, nil
	}
}
