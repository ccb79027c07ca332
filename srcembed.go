// Package srcembed converts an arbitrary byte stream into a source-code
// fragment declaring a constant byte array, written to stdout in C or C++
// syntax.
//
// The package is built around a high-throughput byte-to-text pipeline with
// three cooperating parts:
//
//   - Specialized formatting. The per-byte emit paths are compiled once, at
//     package init, from short format blueprints into operation programs
//     (format.go); the hot loop executes programs against precomputed
//     decimal tables and never interprets a format string at runtime.
//
//   - Asynchronous double-buffered streams. Stdin and stdout each get a
//     two-half buffer driven by a dedicated background goroutine, with
//     lock-free half handoff over atomic flags (stdin_stream.go,
//     stdout_stream.go).
//
//   - Transport engines. At startup the selector stats stdin and stdout and
//     picks among memory-mapped input, zero-copy vmsplice pipe output, and
//     the buffered streams, with fallback chains when a fast path's setup
//     fails (transport.go).
//
// # Platforms
//
// Linux gets the full engine set. Mainstream non-Linux Unix keeps
// memory-mapped input but routes all output through the buffered stream.
// Everything else (Windows and friends) uses the buffered engine only. See
// io_contract.go for the backend contract.
//
// # Error handling
//
// All runtime I/O errors are fatal. On the fatal path the stream disposers
// deliberately do not run: the background goroutines are abandoned and the
// process exits, avoiding any touch of possibly inconsistent shared state.
//
// # Concurrency
//
// Embed is not reentrant with respect to its descriptors: it owns stdin and
// stdout for the duration of the call (stdin is switched to non-blocking
// mode). Run it once per process.
package srcembed

import (
	"errors"
	"fmt"
)

// Language selects the output dialect.
type Language uint8

const (
	// LangC emits `const char <name>[] = { ... };`.
	LangC Language = iota
	// LangCPP emits `const char <name>[] { ... };`.
	LangCPP
)

func (l Language) String() string {
	switch l {
	case LangC:
		return "c"
	case LangCPP:
		return "c++"
	default:
		return "unknown"
	}
}

// ParseLanguage maps a CLI language name to a Language. Unknown names are a
// UsageError.
func ParseLanguage(s string) (Language, error) {
	switch s {
	case "c":
		return LangC, nil
	case "c++":
		return LangCPP, nil
	default:
		return 0, &UsageError{Msg: "invalid language"}
	}
}

// arraySuffix closes the declaration for both dialects.
const arraySuffix = " };\n"

// arrayPrefix opens the declaration. The framing is cold-path; plain string
// concatenation is fine here.
func (l Language) arrayPrefix(varname string) string {
	if l == LangCPP {
		return "const char " + varname + "[] { "
	}

	return "const char " + varname + "[] = { "
}

// DefaultVarname is the array name used when the caller does not override
// it.
const DefaultVarname = "data"

// Embed reads the entire input stream and writes the framed declaration to
// the output stream. It returns nil on success, ErrNoData if the input was
// empty, or an *IOError for any runtime failure.
//
// On error the async streams are intentionally not disposed; see the
// package comment. The caller is expected to exit.
func Embed(lang Language, varname string, opts ...Option) error {
	cfg := applyOptions(opts)

	if varname == "" {
		varname = DefaultVarname
	}

	// Best-effort prefetch; only has an effect when stdin is a seekable
	// file, which is exactly the case the mmap engines care about.
	readaheadHint(cfg.stdinFd)

	mode, inSize, err := chooseTransport(cfg)
	if err != nil {
		return err
	}

	job := &embedJob{
		cfg:    cfg,
		out:    newStdoutStream(cfg.stdoutFd, cfg.bufferSize),
		inSize: inSize,
		log:    cfg.logger,
	}

	if !job.out.write([]byte(lang.arrayPrefix(varname))) {
		return &IOError{Op: "write declaration prefix", Err: job.out.err()}
	}

	if err := runTransport(mode, job); err != nil {
		if errors.Is(err, ErrNoData) {
			return ErrNoData
		}

		return &IOError{Op: fmt.Sprintf("%s engine", mode), Err: err}
	}

	if !job.out.write([]byte(arraySuffix)) {
		return &IOError{Op: "write declaration suffix", Err: job.out.err()}
	}

	if !job.out.dispose() {
		return &IOError{Op: "flush stdout", Err: job.out.err()}
	}

	return nil
}
