package srcembed

// ============================================================================
// Buffered engine and shared emit loops
// ============================================================================

// emitter abstracts where a specialized program execution lands: the
// buffered stdout stream (streamSink) or a zero-copy pipe buffer
// (vmspliceWriter).
type emitter interface {
	emit(p program, args []byte) error
}

// emit adapts the stream sink's sticky-error protocol to the engines' error
// flow. A negative execution result means the stdout stream failed.
func (s *streamSink) emit(p program, args []byte) error {
	if s.exec(p, args) < 0 {
		if err := s.out.err(); err != nil {
			return err
		}

		return &IOError{Op: "stdout stream write"}
	}

	return nil
}

// emitFromStream drives the async stdin stream through the emitter: the
// first byte with the initial program, then full chunks, then a byte-wise
// tail once a short read signals EOF.
func emitFromStream(in *stdinStream, e emitter) error {
	var first [1]byte

	n, err := in.read(first[:])
	if err != nil {
		return err
	}

	if n == 0 {
		return ErrNoData
	}

	if err := e.emit(progInitial, first[:]); err != nil {
		return err
	}

	var chunk [bytesPerChunk]byte

	for {
		n, err := in.read(chunk[:])
		if err != nil {
			return err
		}

		if n == bytesPerChunk {
			if err := e.emit(progChunk, chunk[:]); err != nil {
				return err
			}

			continue
		}

		// Short read: EOF. Finish the tail byte by byte.
		for i := 0; i < n; i++ {
			if err := e.emit(progSingle, chunk[i:i+1]); err != nil {
				return err
			}
		}

		return nil
	}
}

// emitMapped walks an in-memory input through the emitter: initial byte,
// aligned chunks, byte-wise tail.
func emitMapped(data []byte, e emitter) error {
	if len(data) == 0 {
		return ErrNoData
	}

	if err := e.emit(progInitial, data[:1]); err != nil {
		return err
	}

	i := 1
	for ; i+bytesPerChunk <= len(data); i += bytesPerChunk {
		if err := e.emit(progChunk, data[i:i+bytesPerChunk]); err != nil {
			return err
		}
	}

	for ; i < len(data); i++ {
		if err := e.emit(progSingle, data[i:i+1]); err != nil {
			return err
		}
	}

	return nil
}

// runReadBuffered is the portable engine: async stdin stream in, async
// stdout stream out.
func runReadBuffered(job *embedJob) error {
	in, err := newStdinStream(job.cfg.stdinFd, job.cfg.bufferSize)
	if err != nil {
		return err
	}

	sink := &streamSink{out: job.out}

	if err := emitFromStream(in, sink); err != nil {
		// Fatal; the reader goroutine is abandoned on process exit.
		return err
	}

	in.dispose()

	return nil
}
