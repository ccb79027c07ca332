package srcembed

import (
	"errors"
	"fmt"
)

// ============================================================================
// Blueprint compiler
// ============================================================================
//
// A blueprint is a short format string mixing literal text with typed
// placeholders. The only recognized placeholder is %u, which consumes one
// unsigned 8-bit value. Blueprints are compiled once, at package init, into
// operation programs; the hot emit paths (format_emit.go) execute programs
// without ever re-inspecting the blueprint text.
//
// The compiler is a two-state automaton over bytes:
//
//	state 1 (literal text):  '%' flushes the pending literal span and enters
//	                         state 2; any other byte extends the span.
//	state 2 (after '%'):     'u' emits a uint8 placeholder op and returns to
//	                         state 1; any other byte is invalid.
//
// End of input in state 2 is invalid. End of input in state 1 flushes any
// pending literal span.

// errBlueprintInvalid reports a malformed blueprint. Since all blueprints are
// package-level constants compiled at init, hitting this at runtime means a
// programming error, not bad user input.
var errBlueprintInvalid = errors.New("blueprint invalid")

// opKind discriminates operation program entries.
type opKind uint8

const (
	// opText copies a literal span of the blueprint.
	opText opKind = iota
	// opUint8 consumes one 8-bit argument and emits its decimal form.
	opUint8
)

// op is a single operation of a compiled program.
//
// For opText, text is a span of the original blueprint. For opUint8, text is
// empty.
type op struct {
	kind opKind
	text string
}

// program is a compiled blueprint: an ordered operation sequence plus the
// number of placeholder arguments one execution consumes.
//
// Invariants (established by compileBlueprint):
//   - adjacent literal text is coalesced into a single opText
//   - placeholders equals the number of opUint8 entries, which equals the
//     number of %u occurrences in the blueprint
type program struct {
	ops          []op
	placeholders int
}

// compileBlueprint parses blueprint into an operation program.
func compileBlueprint(blueprint string) (program, error) {
	var prog program

	const (
		stateText = 1
		statePct  = 2
	)

	state := stateText
	textBegin := -1 // start of the pending literal span, -1 if none

	flushText := func(end int) {
		if textBegin < 0 {
			return
		}

		prog.ops = append(prog.ops, op{kind: opText, text: blueprint[textBegin:end]})
		textBegin = -1
	}

	for i := 0; i < len(blueprint); i++ {
		c := blueprint[i]

		switch state {
		case stateText:
			if c == '%' {
				flushText(i)

				state = statePct

				continue
			}

			if textBegin < 0 {
				textBegin = i
			}

		case statePct:
			if c != 'u' {
				return program{}, fmt.Errorf("%w: unknown placeholder %%%c", errBlueprintInvalid, c)
			}

			prog.ops = append(prog.ops, op{kind: opUint8})
			prog.placeholders++
			state = stateText
		}
	}

	if state == statePct {
		return program{}, fmt.Errorf("%w: trailing %%", errBlueprintInvalid)
	}

	flushText(len(blueprint))

	return prog, nil
}

// mustCompileBlueprint is compileBlueprint for package-level program tables.
// Blueprints are build constants; an invalid one panics at init.
func mustCompileBlueprint(blueprint string) program {
	prog, err := compileBlueprint(blueprint)
	if err != nil {
		panic(fmt.Sprintf("srcembed: compile blueprint %q: %v", blueprint, err))
	}

	return prog
}
