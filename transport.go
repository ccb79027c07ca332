package srcembed

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ============================================================================
// Transport selection
// ============================================================================
//
// At startup the selector stats stdin and stdout and picks one of four
// data-movement engines:
//
//	stdin         stdout   engine
//	regular file  pipe     mmap input  + vmsplice output
//	regular file  other    mmap input  + buffered output
//	other         pipe     read input  + vmsplice output
//	other         other    read input  + buffered output
//
// Engines report setup failures through sentinel errors before producing any
// output, which is what makes the fallback chains safe: a fallback engine
// restarts from a clean slate.

// Transport identifies a data-movement engine.
type Transport uint8

const (
	// TransportAuto lets the selector stat stdin and stdout.
	TransportAuto Transport = iota
	// TransportMmapVmsplice maps stdin and gift-splices page-aligned output
	// buffers into the stdout pipe.
	TransportMmapVmsplice
	// TransportMmapBuffered maps stdin and emits through the async stdout
	// stream.
	TransportMmapBuffered
	// TransportReadVmsplice reads stdin through the async stdin stream and
	// gift-splices output.
	TransportReadVmsplice
	// TransportReadBuffered reads and writes through the async streams. The
	// portable engine; every platform supports it.
	TransportReadBuffered
)

func (t Transport) String() string {
	switch t {
	case TransportAuto:
		return "auto"
	case TransportMmapVmsplice:
		return "mmap+vmsplice"
	case TransportMmapBuffered:
		return "mmap+buffered"
	case TransportReadVmsplice:
		return "read+vmsplice"
	case TransportReadBuffered:
		return "read+buffered"
	default:
		return "unknown"
	}
}

// Setup-failure sentinels driving the fallback chains. Engines wrap them
// only for failures that occur before the first emitted byte.
var (
	errMmapSetup     = errors.New("mmap input setup failed")
	errVmspliceSetup = errors.New("vmsplice output setup failed")
)

// wrapSetup tags err with a fallback sentinel while preserving the cause.
func wrapSetup(sentinel, err error) error {
	return fmt.Errorf("%w: %w", sentinel, err)
}

// maxMapBytes is the largest input a single mapping can cover on this
// architecture.
const maxMapBytes = int64(^uint(0) >> 1)

// embedJob carries one invocation's plumbing through engine selection and
// execution.
type embedJob struct {
	cfg    options
	out    *stdoutStream
	inSize int64
	log    *zap.Logger
}

// chooseTransport classifies the endpoints and picks the initial engine.
// Zero-length regular files short-circuit to ErrNoData before any engine
// spins up.
func chooseTransport(cfg options) (Transport, int64, error) {
	inKind, inSize, err := classifyFd(cfg.stdinFd)
	if err != nil {
		// Can't stat stdin; treat it as an unknown stream and read it.
		cfg.logger.Debug("stdin stat failed, assuming stream", zap.Error(err))

		inKind = fdKindOther
	}

	if inKind == fdKindFile && inSize == 0 {
		return TransportReadBuffered, 0, ErrNoData
	}

	if cfg.transport != TransportAuto {
		return cfg.transport, inSize, nil
	}

	outKind, _, err := classifyFd(cfg.stdoutFd)
	if err != nil {
		cfg.logger.Debug("stdout stat failed, assuming stream", zap.Error(err))

		outKind = fdKindOther
	}

	mode := TransportReadBuffered

	switch {
	case inKind == fdKindFile && outKind == fdKindPipe:
		if inSize <= maxMapBytes {
			mode = TransportMmapVmsplice
		} else {
			mode = TransportReadVmsplice
		}

	case inKind == fdKindFile:
		if inSize <= maxMapBytes {
			mode = TransportMmapBuffered
		}

	case outKind == fdKindPipe:
		mode = TransportReadVmsplice
	}

	cfg.logger.Debug("transport selected",
		zap.Stringer("engine", mode),
		zap.Int64("input_size", inSize),
		zap.Int("buffer_size", cfg.bufferSize))

	return mode, inSize, nil
}

// runTransport executes the engine, walking the fallback chain on setup
// failures:
//
//	mmap+vmsplice: pipe setup failed -> mmap+buffered
//	               mmap failed       -> read+vmsplice
//	mmap+buffered: mmap failed       -> read+buffered
//	read+vmsplice: pipe setup failed -> read+buffered
func runTransport(mode Transport, job *embedJob) error {
	switch mode {
	case TransportMmapVmsplice:
		err := runMmapVmsplice(job)

		switch {
		case errors.Is(err, errVmspliceSetup):
			job.log.Debug("falling back to mmap+buffered", zap.Error(err))

			return runTransport(TransportMmapBuffered, job)

		case errors.Is(err, errMmapSetup):
			job.log.Debug("falling back to read+vmsplice", zap.Error(err))

			return runTransport(TransportReadVmsplice, job)
		}

		return err

	case TransportMmapBuffered:
		err := runMmapBuffered(job)
		if errors.Is(err, errMmapSetup) {
			job.log.Debug("falling back to read+buffered", zap.Error(err))

			return runTransport(TransportReadBuffered, job)
		}

		return err

	case TransportReadVmsplice:
		err := runReadVmsplice(job)
		if errors.Is(err, errVmspliceSetup) {
			job.log.Debug("falling back to read+buffered", zap.Error(err))

			return runTransport(TransportReadBuffered, job)
		}

		return err

	default:
		return runReadBuffered(job)
	}
}
