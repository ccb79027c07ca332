package srcembed

import (
	"os"
	"testing"
)

// newTestPipe returns an os.Pipe pair registered for cleanup. Closing twice
// is tolerated so tests can close ends early to signal EOF.
func newTestPipe(t *testing.T) (*os.File, *os.File) {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}

	t.Cleanup(func() {
		_ = r.Close()
		_ = w.Close()
	})

	return r, w
}

// writeTempInput creates a file holding data and opens it for reading.
func writeTempInput(t *testing.T, data []byte) *os.File {
	t.Helper()

	path := t.TempDir() + "/input"
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open input: %v", err)
	}

	t.Cleanup(func() { _ = f.Close() })

	return f
}

// patternBytes returns n bytes of a deterministic non-repeating-ish pattern.
func patternBytes(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + i>>8)
	}

	return data
}
