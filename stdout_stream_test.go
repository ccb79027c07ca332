package srcembed

import (
	"bytes"
	"io"
	"testing"
)

// collectPipe drains r in the background and delivers everything read once
// the write side is closed.
func collectPipe(r io.Reader) chan []byte {
	out := make(chan []byte, 1)

	go func() {
		data, _ := io.ReadAll(r)
		out <- data
	}()

	return out
}

func Test_StdoutStream_Preserves_Write_Order_Across_Half_Sizes(t *testing.T) {
	t.Parallel()

	for _, halfSize := range []int{1, 7, 64, 4096} {
		halfSize := halfSize

		t.Run("", func(t *testing.T) {
			t.Parallel()

			r, w := newTestPipe(t)
			got := collectPipe(r)

			s := newStdoutStream(int(w.Fd()), halfSize)

			var want []byte

			// Assorted sizes: sub-half, exactly a half, spanning both
			// halves, and larger than the whole double buffer.
			for i, size := range []int{1, 3, halfSize, 2*halfSize + 1, 5*halfSize + 3, 2} {
				chunk := bytes.Repeat([]byte{byte('a' + i)}, size)
				want = append(want, chunk...)

				if !s.write(chunk) {
					t.Fatalf("write %d failed", i)
				}
			}

			if !s.flush() {
				t.Fatal("flush failed")
			}

			if !s.dispose() {
				t.Fatal("dispose failed")
			}

			_ = w.Close()

			if data := <-got; !bytes.Equal(data, want) {
				t.Fatalf("order broken: got %d bytes, want %d", len(data), len(want))
			}
		})
	}
}

func Test_StdoutStream_Flush_Drains_Partial_Half_Immediately(t *testing.T) {
	t.Parallel()

	r, w := newTestPipe(t)

	s := newStdoutStream(int(w.Fd()), 4096)

	if !s.write([]byte("abc")) {
		t.Fatal("write failed")
	}

	if !s.flush() {
		t.Fatal("flush failed")
	}

	// The bytes must be in the pipe now, without dispose.
	buf := make([]byte, 16)

	n, err := r.Read(buf)
	if err != nil {
		t.Fatalf("pipe read: %v", err)
	}

	if string(buf[:n]) != "abc" {
		t.Fatalf("got %q", buf[:n])
	}

	if !s.write([]byte("def")) {
		t.Fatal("second write failed")
	}

	if !s.dispose() {
		t.Fatal("dispose failed")
	}

	n, err = r.Read(buf)
	if err != nil {
		t.Fatalf("pipe read: %v", err)
	}

	if string(buf[:n]) != "def" {
		t.Fatalf("got %q", buf[:n])
	}
}

func Test_StdoutStream_Write_Fails_Sticky_After_Broken_Pipe(t *testing.T) {
	t.Parallel()

	r, w := newTestPipe(t)

	_ = r.Close()

	const halfSize = 512

	s := newStdoutStream(int(w.Fd()), halfSize)

	payload := patternBytes(halfSize)

	// The first handoff makes the flusher hit EPIPE; the producer observes
	// it on a later handoff wait. Keep writing until it surfaces.
	failed := false

	for i := 0; i < 64; i++ {
		if !s.write(payload) {
			failed = true

			break
		}
	}

	if !failed {
		t.Fatal("write never failed on broken pipe")
	}

	if s.write([]byte("x")) {
		t.Fatal("write succeeded after terminal error")
	}

	if s.flush() {
		t.Fatal("flush succeeded after terminal error")
	}

	if s.dispose() {
		t.Fatal("dispose succeeded after terminal error")
	}

	if s.err() == nil {
		t.Fatal("terminal error not recorded")
	}
}

func Test_StdoutStream_Dispose_Flushes_Remaining_Bytes(t *testing.T) {
	t.Parallel()

	r, w := newTestPipe(t)
	got := collectPipe(r)

	s := newStdoutStream(int(w.Fd()), 64)

	want := patternBytes(100) // one full half plus a partial one

	if !s.write(want) {
		t.Fatal("write failed")
	}

	if !s.dispose() {
		t.Fatal("dispose failed")
	}

	_ = w.Close()

	if data := <-got; !bytes.Equal(data, want) {
		t.Fatalf("lost bytes: got %d, want %d", len(data), len(want))
	}
}
