package srcembed

import "go.uber.org/zap"

// Option configures [Embed].
// Options are applied in order.
type Option func(*options)

// defaultBufferSize is the per-half size B of each async stream's double
// buffer.
const defaultBufferSize = 64 * 1024

// WithBufferSize sets the half-buffer size, in bytes, of the async stdin and
// stdout streams.
//
// # Default
//
// 65536 (64 KiB per half, 128 KiB per stream).
//
// # Tuning guidance
//
// The streams overlap I/O with formatting, so the half size mostly controls
// syscall granularity:
//
//   - Small values (< 4 KiB) increase handoff frequency between the user
//     side and the background goroutine; the spin-based handoff starts to
//     dominate.
//
//   - Large values (>= 1 MiB) add memory without improving throughput: the
//     pipeline is bounded by the write side of the pipe or file.
//
// The zero-copy output engine sizes its own buffers from the pipe capacity
// and ignores this setting for the spliced path.
//
// Values <= 0 use the default.
func WithBufferSize(n int) Option {
	return func(o *options) {
		o.bufferSize = n
	}
}

// WithTransport forces a data-movement engine instead of letting the
// selector stat stdin and stdout. The forced engine still falls back along
// its normal chain if its setup fails.
//
// Intended for benchmarking and for tests that compare engine outputs.
func WithTransport(t Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithStdin redirects input to the given descriptor. Primarily for tests
// and for embedding the library in larger tools; the descriptor is treated
// exactly like stdin, including the switch to non-blocking mode.
func WithStdin(fd int) Option {
	return func(o *options) {
		o.stdinFd = fd
	}
}

// WithStdout redirects output to the given descriptor. See [WithStdin].
func WithStdout(fd int) Option {
	return func(o *options) {
		o.stdoutFd = fd
	}
}

// WithLogger sets the diagnostic logger. Defaults to a nop logger; the CLI
// passes [NewDebugLogger] when --debug is given.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.logger = log
	}
}

type options struct {
	// bufferSize is the async stream half size B.
	bufferSize int
	// stdinFd / stdoutFd are the endpoints of the pipeline.
	stdinFd  int
	stdoutFd int
	// transport optionally forces an engine.
	transport Transport
	// logger receives setup diagnostics.
	logger *zap.Logger
}

// applyOptions merges option values and applies defaults.
func applyOptions(opts []Option) options {
	cfg := options{
		bufferSize: defaultBufferSize,
		stdinFd:    stdinFd,
		stdoutFd:   stdoutFd,
		transport:  TransportAuto,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if cfg.bufferSize <= 0 {
		cfg.bufferSize = defaultBufferSize
	}

	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	return cfg
}
