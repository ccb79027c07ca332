//go:build linux && !android

package srcembed

// ============================================================================
// Zero-copy pipe output (vmsplice)
// ============================================================================
//
// The vmsplice engines format into two page-aligned anonymous mappings sized
// to the stdout pipe's capacity and gift each filled buffer to the kernel
// (SPLICE_F_GIFT moves page ownership instead of copying). Gift safety rests
// on two invariants:
//
//   - the gifted range is page-aligned and a whole pipe's worth, so the
//     kernel can steal the pages;
//   - a gifted buffer is not read, written, or unmapped until the pipe
//     consumer has drained it. The double-buffer swap provides this: the
//     producer always continues in the other mapping, and by the time it
//     swaps back the pipe (whose capacity equals the buffer size) has been
//     drained past the earlier gift.
//
// The two halves are deliberately separate mappings rather than one split
// region: the producer writing one buffer and the kernel consuming the
// other must not share cache lines.
//
// The final partial buffer cannot be gifted (its length is not
// page-aligned): its page-aligned prefix goes through a plain vmsplice and
// the sub-page tail through the buffered stdout stream.

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

type vmspliceWriter struct {
	fd  int
	out *stdoutStream

	bufs [2][]byte
	cur  int
	pos  int // filled bytes of the active buffer

	pipeCap  int
	guard    int // pipeCap - maxEmitLen: last safe direct-emit offset
	pageSize int

	// Overflow staging: once pos crosses guard, emits accumulate here until
	// pos+staged reaches pipeCap, at which point the active buffer is
	// completed to exactly pipeCap and gifted.
	staging [2 * maxEmitLen]byte
	staged  int
}

// newVmspliceWriter queries the pipe capacity and maps the two gift
// buffers. Failures wrap errVmspliceSetup so selection falls back to the
// buffered output path.
func newVmspliceWriter(job *embedJob) (*vmspliceWriter, error) {
	pipeCap, err := pipeCapacity(job.cfg.stdoutFd)
	if err != nil {
		return nil, wrapSetup(errVmspliceSetup, err)
	}

	if pipeCap < 2*maxEmitLen {
		return nil, wrapSetup(errVmspliceSetup, errNotSupported)
	}

	w := &vmspliceWriter{
		fd:       job.cfg.stdoutFd,
		out:      job.out,
		pipeCap:  pipeCap,
		guard:    pipeCap - maxEmitLen,
		pageSize: os.Getpagesize(),
	}

	for i := range w.bufs {
		buf, err := allocGiftBuffer(pipeCap, job)
		if err != nil {
			return nil, wrapSetup(errVmspliceSetup, err)
		}

		w.bufs[i] = buf
	}

	return w, nil
}

// hugePageSize is resolved once per process; -1 when unavailable.
var (
	hugePageOnce sync.Once
	hugePageSize int64
)

func cachedHugePageSize() int64 {
	hugePageOnce.Do(func() {
		size, err := parseHugePageSize(meminfoPath)
		if err != nil {
			size = -1
		}

		hugePageSize = size
	})

	return hugePageSize
}

// allocGiftBuffer maps one page-aligned output buffer, preferring huge
// pages. The mapping length may exceed size after rounding up to the huge
// page size; only the first size bytes are used. Gifted mappings are never
// unmapped by us: their pages may still sit in the pipe when the engine
// finishes, and process exit reclaims them.
func allocGiftBuffer(size int, job *embedJob) ([]byte, error) {
	if hugeSize := cachedHugePageSize(); hugeSize > 0 {
		rounded := roundUp(size, int(hugeSize))

		buf, err := mapAnonPages(rounded, true)
		if err == nil {
			return buf, nil
		}

		job.log.Debug("huge page mapping failed, using base pages", zap.Error(err))
	}

	return mapAnonPages(roundUp(size, os.Getpagesize()), false)
}

func roundUp(n, multiple int) int {
	return (n + multiple - 1) / multiple * multiple
}

// emit places one program execution into the active buffer, detouring
// through the staging buffer near the capacity boundary so a gifted buffer
// is always exactly pipeCap bytes.
func (w *vmspliceWriter) emit(p program, args []byte) error {
	if w.staged == 0 && w.pos <= w.guard {
		w.pos += p.execMem(w.bufs[w.cur][w.pos:], args, false)

		return nil
	}

	w.staged += p.execMem(w.staging[w.staged:], args, false)

	if w.pos+w.staged < w.pipeCap {
		return nil
	}

	return w.rotate()
}

// rotate completes the active buffer to exactly pipeCap bytes from staging,
// gifts it to the pipe, and seeds the other buffer with the staging
// remainder.
func (w *vmspliceWriter) rotate() error {
	need := w.pipeCap - w.pos
	copy(w.bufs[w.cur][w.pos:], w.staging[:need])

	if err := w.spliceAll(w.bufs[w.cur][:w.pipeCap], unix.SPLICE_F_GIFT); err != nil {
		return err
	}

	w.cur ^= 1

	rem := w.staged - need
	copy(w.bufs[w.cur][:rem], w.staging[need:w.staged])
	w.pos = rem
	w.staged = 0

	return nil
}

func (w *vmspliceWriter) spliceAll(p []byte, flags int) error {
	for len(p) > 0 {
		n, err := vmspliceBytes(w.fd, p, flags)
		if err != nil {
			return err
		}

		p = p[n:]
	}

	return nil
}

// finish drains the final partial buffer after EOF: staging residue first,
// then the page-aligned prefix through a plain splice (guarded against the
// zero-length case of an exactly aligned tail), then the sub-page remainder
// through the buffered stream.
func (w *vmspliceWriter) finish() error {
	copy(w.bufs[w.cur][w.pos:], w.staging[:w.staged])
	w.pos += w.staged
	w.staged = 0

	aligned := w.pos - w.pos%w.pageSize
	if aligned > 0 {
		if err := w.spliceAll(w.bufs[w.cur][:aligned], 0); err != nil {
			return err
		}
	}

	if tail := w.bufs[w.cur][aligned:w.pos]; len(tail) > 0 {
		if !w.out.write(tail) {
			return w.out.err()
		}
	}

	return nil
}

// runReadVmsplice pulls chunks through the async stdin stream and emits into
// the gift buffers.
func runReadVmsplice(job *embedJob) error {
	w, err := newVmspliceWriter(job)
	if err != nil {
		return err
	}

	in, err := newStdinStream(job.cfg.stdinFd, job.cfg.bufferSize)
	if err != nil {
		return err
	}

	// Anything queued in the stdout stream (the array prefix) must reach the
	// pipe before the first splice.
	if !job.out.flush() {
		return job.out.err()
	}

	if err := emitFromStream(in, w); err != nil {
		return err
	}

	if err := w.finish(); err != nil {
		return err
	}

	in.dispose()

	return nil
}

// runMmapVmsplice maps the input file and emits into the gift buffers. The
// two setup stages fail with distinct sentinels: pipe problems fall back to
// buffered output with the mapping intact, mapping problems fall back to the
// streamed reader with the pipe path intact.
func runMmapVmsplice(job *embedJob) error {
	w, err := newVmspliceWriter(job)
	if err != nil {
		return err
	}

	data, err := mmapInput(job.cfg.stdinFd, int(job.inSize))
	if err != nil {
		return wrapSetup(errMmapSetup, err)
	}

	adviseSequential(data)

	if !job.out.flush() {
		return job.out.err()
	}

	if err := emitMapped(data, w); err != nil {
		return err
	}

	if err := w.finish(); err != nil {
		return err
	}

	return munmapInput(data)
}
