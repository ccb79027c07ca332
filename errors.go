package srcembed

import "errors"

// Error taxonomy:
//
//   - UsageError: the invocation itself was wrong (unknown language, bad
//     flags). Reported to stderr; the process still exits successfully.
//   - ErrNoData: the selected language requires input data and stdin was
//     empty. Exits with failure.
//   - IOError: a runtime I/O failure (read, write, mmap, splice, fcntl,
//     munmap) or an internal invariant violation. Exits with failure.
//
// All runtime errors are fatal; there is no recovery path.

// ErrNoData is returned by Embed when stdin yields zero bytes.
var ErrNoData = errors.New("no data received, language requires data")

// UsageError reports an invocation problem. Per the CLI contract these are
// user errors, not failures: the binary prints them and exits successfully.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

// IOError wraps a fatal runtime failure with the operation that produced it.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	if e.Err == nil {
		return e.Op
	}

	return e.Op + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}
