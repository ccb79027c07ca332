//go:build (darwin && !ios) || freebsd || openbsd || netbsd || dragonfly

// io_unix.go implements the internal I/O backend contract (see
// io_contract.go) for "mainstream" non-Linux Unix platforms:
//   - macOS (darwin, excluding iOS)
//   - the BSD family (FreeBSD/OpenBSD/NetBSD/DragonFly)
//
// These platforms get memory-mapped input but no zero-copy pipe output
// (vmsplice is Linux-only), so the transport selector's fallback chains
// route pipe output through the buffered stdout stream.
package srcembed

import (
	"errors"
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

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

// readaheadHint is Linux-only; sequential access hints happen through
// adviseSequential on the mapping instead.
func readaheadHint(int) {}

func mmapInput(fd int, size int) ([]byte, error) {
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}

	return data, nil
}

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
