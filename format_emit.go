package srcembed

import "strings"

// ============================================================================
// Program execution (formatter)
// ============================================================================
//
// Programs execute against one of two sinks:
//
//   - a memory sink: a caller-provided byte slice, advanced on every write
//     (program.execMem)
//   - a stream sink: the async stdout stream, with sticky error semantics
//     (streamSink)
//
// Decimal conversion never goes through runtime formatting. Each byte value
// maps through a precomputed 256-entry table holding right-justified ASCII
// digits, so a placeholder emit is a single bounded copy.

// bytesPerChunk is the input byte-group size K. The chunk-specialized program
// consumes exactly this many input bytes per execution. Authoritative everywhere; the
// iteration paths never hardcode the group size.
const bytesPerChunk = 8

// maxEmitLen is the largest byte count a single program execution can
// produce: the chunk program with every argument at three digits.
const maxEmitLen = bytesPerChunk * len(", 255")

// The three specialized programs of the C/C++ target:
//
//	initial: the very first output byte, no leading separator
//	single:  one byte with a leading separator (tail iteration)
//	chunk:   bytesPerChunk bytes, each with its leading separator
var (
	progInitial = mustCompileBlueprint("%u")
	progSingle  = mustCompileBlueprint(", %u")
	progChunk   = mustCompileBlueprint(strings.Repeat(", %u", bytesPerChunk))
)

// decEntry is one precomputed decimal expansion. blanks is the count of
// unused leading digit slots (0 for 255, 2 for 7); digits holds the ASCII
// digits right-justified. The emitted form is digits[blanks:].
type decEntry struct {
	blanks uint8
	digits [3]byte
}

var decTable = buildDecTable()

func buildDecTable() [256]decEntry {
	var table [256]decEntry

	for v := 0; v < 256; v++ {
		e := decEntry{}

		switch {
		case v >= 100:
			e.blanks = 0
		case v >= 10:
			e.blanks = 1
		default:
			e.blanks = 2
		}

		rem := v
		for slot := 2; slot >= 0; slot-- {
			e.digits[slot] = byte('0' + rem%10)
			rem /= 10
		}

		table[v] = e
	}

	return table
}

// execMem runs the program against a memory sink.
//
// dst must have room for the full expansion (at most maxEmitLen for the
// built-in programs). args must supply exactly one byte per placeholder; the
// argument count is fixed per program and bound by the engines, so a
// mismatch here is an internal invariant violation.
//
// When nulTerminate is set, a single NUL is written after the final op
// without advancing; the return value is unaffected.
//
// Returns the number of bytes written.
func (p program) execMem(dst []byte, args []byte, nulTerminate bool) int {
	if len(args) != p.placeholders {
		panic("srcembed: program argument count mismatch")
	}

	pos := 0
	arg := 0

	for _, o := range p.ops {
		if o.kind == opText {
			pos += copy(dst[pos:], o.text)

			continue
		}

		e := &decTable[args[arg]]
		arg++
		pos += copy(dst[pos:], e.digits[e.blanks:])
	}

	if nulTerminate {
		dst[pos] = 0
	}

	return pos
}

// streamSink executes programs against the async stdout stream.
//
// The first failed stream write makes the sink sticky-errored: every
// subsequent exec is a no-op returning -1. The engines' emit adapter checks
// the return of every exec and stops at the first negative one.
type streamSink struct {
	out     *stdoutStream
	failed  bool
	scratch [maxEmitLen]byte
}

// exec expands the program into scratch and pushes it through the stream.
// Returns the emitted length, or -1 once the sink has failed.
func (s *streamSink) exec(p program, args []byte) int {
	if s.failed {
		return -1
	}

	n := p.execMem(s.scratch[:], args, false)
	if !s.out.write(s.scratch[:n]) {
		s.failed = true

		return -1
	}

	return n
}
