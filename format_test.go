package srcembed

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_CompileBlueprint_Builds_Single_Placeholder_Program(t *testing.T) {
	t.Parallel()

	prog, err := compileBlueprint("%u")
	require.NoError(t, err)
	require.Equal(t, 1, prog.placeholders)
	require.Len(t, prog.ops, 1)
	require.Equal(t, opUint8, prog.ops[0].kind)
}

func Test_CompileBlueprint_Splits_Text_And_Placeholders(t *testing.T) {
	t.Parallel()

	prog, err := compileBlueprint(", %u")
	require.NoError(t, err)
	require.Equal(t, 1, prog.placeholders)
	require.Len(t, prog.ops, 2)
	require.Equal(t, opText, prog.ops[0].kind)
	require.Equal(t, ", ", prog.ops[0].text)
	require.Equal(t, opUint8, prog.ops[1].kind)
}

func Test_CompileBlueprint_Coalesces_Adjacent_Text(t *testing.T) {
	t.Parallel()

	prog, err := compileBlueprint("ab%ucd%uef")
	require.NoError(t, err)
	require.Equal(t, 2, prog.placeholders)

	var kinds []opKind
	var texts []string

	for _, o := range prog.ops {
		kinds = append(kinds, o.kind)
		if o.kind == opText {
			texts = append(texts, o.text)
		}
	}

	require.Equal(t, []opKind{opText, opUint8, opText, opUint8, opText}, kinds)
	require.Equal(t, []string{"ab", "cd", "ef"}, texts)
}

func Test_CompileBlueprint_Accepts_Empty_Blueprint(t *testing.T) {
	t.Parallel()

	prog, err := compileBlueprint("")
	require.NoError(t, err)
	require.Empty(t, prog.ops)
	require.Zero(t, prog.placeholders)
}

func Test_CompileBlueprint_Counts_Placeholders_Per_Occurrence(t *testing.T) {
	t.Parallel()

	blueprint := strings.Repeat(", %u", bytesPerChunk)

	prog, err := compileBlueprint(blueprint)
	require.NoError(t, err)
	require.Equal(t, bytesPerChunk, prog.placeholders)
	require.Equal(t, strings.Count(blueprint, "%u"), prog.placeholders)
}

func Test_CompileBlueprint_Rejects_Unknown_Placeholder(t *testing.T) {
	t.Parallel()

	_, err := compileBlueprint("%x")
	require.ErrorIs(t, err, errBlueprintInvalid)
}

func Test_CompileBlueprint_Rejects_Double_Percent(t *testing.T) {
	t.Parallel()

	_, err := compileBlueprint("%%")
	require.ErrorIs(t, err, errBlueprintInvalid)
}

func Test_CompileBlueprint_Rejects_Trailing_Percent(t *testing.T) {
	t.Parallel()

	_, err := compileBlueprint("a%")
	require.ErrorIs(t, err, errBlueprintInvalid)
}

func Test_DecTable_Matches_Strconv_For_All_Byte_Values(t *testing.T) {
	t.Parallel()

	for v := 0; v < 256; v++ {
		e := decTable[v]
		got := string(e.digits[e.blanks:])
		require.Equal(t, strconv.Itoa(v), got, "value %d", v)
	}
}

func Test_ExecMem_Emits_Decimal_Without_Leading_Zeros(t *testing.T) {
	t.Parallel()

	var buf [maxEmitLen]byte

	for _, tc := range []struct {
		arg  byte
		want string
	}{
		{0, "0"},
		{7, "7"},
		{42, "42"},
		{100, "100"},
		{255, "255"},
	} {
		n := progInitial.execMem(buf[:], []byte{tc.arg}, false)
		require.Equal(t, tc.want, string(buf[:n]))
	}
}

func Test_ExecMem_Emits_Chunk_With_Leading_Separators(t *testing.T) {
	t.Parallel()

	args := make([]byte, bytesPerChunk)
	for i := range args {
		args[i] = byte(i + 1)
	}

	var buf [maxEmitLen]byte

	n := progChunk.execMem(buf[:], args, false)
	require.Equal(t, ", 1, 2, 3, 4, 5, 6, 7, 8", string(buf[:n]))
}

func Test_ExecMem_Writes_Nul_Without_Advancing(t *testing.T) {
	t.Parallel()

	buf := []byte{0xAA, 0xAA, 0xAA, 0xAA, 0xAA}

	n := progInitial.execMem(buf, []byte{42}, true)
	require.Equal(t, 2, n)
	require.Equal(t, []byte{'4', '2', 0, 0xAA, 0xAA}, buf)
}

func Test_ExecMem_Panics_On_Argument_Count_Mismatch(t *testing.T) {
	t.Parallel()

	var buf [maxEmitLen]byte

	require.Panics(t, func() {
		progChunk.execMem(buf[:], []byte{1}, false)
	})
}

func Test_MaxEmitLen_Bounds_The_Largest_Chunk_Emission(t *testing.T) {
	t.Parallel()

	args := make([]byte, bytesPerChunk)
	for i := range args {
		args[i] = 255
	}

	var buf [maxEmitLen]byte

	n := progChunk.execMem(buf[:], args, false)
	require.Equal(t, maxEmitLen, n)
}
