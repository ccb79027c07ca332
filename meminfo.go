package srcembed

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ============================================================================
// Huge-page-size parser
// ============================================================================
//
// parseHugePageSize scans the kernel's memory-info file for the
// "Hugepagesize" key and returns its value in bytes (the file reports
// kibibytes). The scanner works on fixed-size reads and resumes matches
// across buffer boundaries; this is sound because "Hugepagesize" contains no
// proper prefix of itself at any other position, so a failed partial match
// can never hide the start of a real one.

// meminfoPath is the memory-info file consulted for the huge page size.
// Overridable for tests.
var meminfoPath = "/proc/meminfo"

const hugePageKey = "Hugepagesize"

var errHugePageSize = errors.New("huge page size not found")

// A key match must start at the beginning of a token; these characters end
// the previous token.
func isPreamble(b byte) bool {
	switch b {
	case '\n', ' ', ';':
		return true
	default:
		return false
	}
}

// Characters allowed between the key and its value.
func isSkippable(b byte) bool {
	switch b {
	case ' ', ':', '\t':
		return true
	default:
		return false
	}
}

type meminfoPhase uint8

const (
	// phaseKey is matching hugePageKey at a token start.
	phaseKey meminfoPhase = iota
	// phaseSeekPreamble is resynchronizing to the next token start after a
	// mismatch.
	phaseSeekPreamble
	// phaseAfterKey verifies the full match is not a prefix of a longer key
	// (e.g. "Hugepagesize2") and skips the separator characters.
	phaseAfterKey
	// phaseSeekDigit scans forward to the first digit of the value.
	phaseSeekDigit
	// phaseValue accumulates decimal digits.
	phaseValue
)

// parseHugePageSize returns the system huge page size in bytes, or -1 and an
// error if the file cannot be read or the key is absent.
func parseHugePageSize(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return -1, fmt.Errorf("open meminfo: %w", err)
	}
	defer f.Close()

	var (
		buf     [1024]byte
		phase   meminfoPhase
		matched int
		value   int64
	)

	for {
		n, err := f.Read(buf[:])
		if n == 0 {
			if err == nil || errors.Is(err, io.EOF) {
				if phase == phaseValue {
					return value * 1024, nil
				}

				return -1, errHugePageSize
			}

			return -1, fmt.Errorf("read meminfo: %w", err)
		}

		for _, b := range buf[:n] {
			switch phase {
			case phaseKey:
				if b == 0 {
					continue
				}

				if b == hugePageKey[matched] {
					matched++
					if matched == len(hugePageKey) {
						phase = phaseAfterKey
					}

					continue
				}

				matched = 0
				if !isPreamble(b) {
					phase = phaseSeekPreamble
				}

			case phaseSeekPreamble:
				if isPreamble(b) {
					phase = phaseKey
				}

			case phaseAfterKey:
				if b == 0 {
					continue
				}

				if isSkippable(b) {
					phase = phaseSeekDigit

					continue
				}

				// Longer key sharing our spelling; keep looking.
				matched = 0
				if isPreamble(b) {
					phase = phaseKey
				} else {
					phase = phaseSeekPreamble
				}

			case phaseSeekDigit:
				if b >= '0' && b <= '9' {
					value = int64(b - '0')
					phase = phaseValue
				}

			case phaseValue:
				if b >= '0' && b <= '9' {
					value = value*10 + int64(b-'0')

					continue
				}

				return value * 1024, nil
			}
		}
	}
}
