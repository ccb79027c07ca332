package srcembed

import (
	"errors"
	"os"
	"testing"
)

func openForWrite(t *testing.T, path string) *os.File {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Cleanup(func() { _ = f.Close() })

	return f
}

func Test_ChooseTransport_Selects_MmapVmsplice_For_File_To_Pipe(t *testing.T) {
	t.Parallel()

	in := writeTempInput(t, []byte("payload"))
	_, w := newTestPipe(t)

	cfg := applyOptions([]Option{WithStdin(int(in.Fd())), WithStdout(int(w.Fd()))})

	mode, size, err := chooseTransport(cfg)
	if err != nil {
		t.Fatalf("choose: %v", err)
	}

	if mode != TransportMmapVmsplice {
		t.Fatalf("mode = %v", mode)
	}

	if size != 7 {
		t.Fatalf("size = %d", size)
	}
}

func Test_ChooseTransport_Selects_MmapBuffered_For_File_To_File(t *testing.T) {
	t.Parallel()

	in := writeTempInput(t, []byte("payload"))
	out := openForWrite(t, t.TempDir()+"/out")

	cfg := applyOptions([]Option{WithStdin(int(in.Fd())), WithStdout(int(out.Fd()))})

	mode, _, err := chooseTransport(cfg)
	if err != nil {
		t.Fatalf("choose: %v", err)
	}

	if mode != TransportMmapBuffered {
		t.Fatalf("mode = %v", mode)
	}
}

func Test_ChooseTransport_Selects_ReadVmsplice_For_Pipe_To_Pipe(t *testing.T) {
	t.Parallel()

	inr, _ := newTestPipe(t)
	_, outw := newTestPipe(t)

	cfg := applyOptions([]Option{WithStdin(int(inr.Fd())), WithStdout(int(outw.Fd()))})

	mode, _, err := chooseTransport(cfg)
	if err != nil {
		t.Fatalf("choose: %v", err)
	}

	if mode != TransportReadVmsplice {
		t.Fatalf("mode = %v", mode)
	}
}

func Test_ChooseTransport_Selects_ReadBuffered_For_Pipe_To_File(t *testing.T) {
	t.Parallel()

	inr, _ := newTestPipe(t)
	out := openForWrite(t, t.TempDir()+"/out")

	cfg := applyOptions([]Option{WithStdin(int(inr.Fd())), WithStdout(int(out.Fd()))})

	mode, _, err := chooseTransport(cfg)
	if err != nil {
		t.Fatalf("choose: %v", err)
	}

	if mode != TransportReadBuffered {
		t.Fatalf("mode = %v", mode)
	}
}

func Test_ChooseTransport_ShortCircuits_Empty_Regular_File(t *testing.T) {
	t.Parallel()

	in := writeTempInput(t, nil)
	_, w := newTestPipe(t)

	cfg := applyOptions([]Option{WithStdin(int(in.Fd())), WithStdout(int(w.Fd()))})

	_, _, err := chooseTransport(cfg)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func Test_ChooseTransport_Reports_Empty_Input_Even_When_Forced(t *testing.T) {
	t.Parallel()

	in := writeTempInput(t, nil)
	_, w := newTestPipe(t)

	cfg := applyOptions([]Option{
		WithStdin(int(in.Fd())),
		WithStdout(int(w.Fd())),
		WithTransport(TransportReadBuffered),
	})

	_, _, err := chooseTransport(cfg)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func Test_ChooseTransport_Honors_Forced_Transport(t *testing.T) {
	t.Parallel()

	in := writeTempInput(t, []byte("payload"))
	_, w := newTestPipe(t)

	cfg := applyOptions([]Option{
		WithStdin(int(in.Fd())),
		WithStdout(int(w.Fd())),
		WithTransport(TransportReadBuffered),
	})

	mode, size, err := chooseTransport(cfg)
	if err != nil {
		t.Fatalf("choose: %v", err)
	}

	if mode != TransportReadBuffered {
		t.Fatalf("mode = %v", mode)
	}

	if size != 7 {
		t.Fatalf("size = %d", size)
	}
}
