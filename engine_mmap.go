//go:build (linux && !android) || (darwin && !ios) || freebsd || openbsd || netbsd || dragonfly

package srcembed

// runMmapBuffered maps the whole input read-only with sequential-access
// hints and emits through the buffered stdout stream. A mapping failure is
// reported via errMmapSetup so the selector can fall back to the read
// engine; an unmap failure after a fully emitted input is fatal.
func runMmapBuffered(job *embedJob) error {
	data, err := mmapInput(job.cfg.stdinFd, int(job.inSize))
	if err != nil {
		return wrapSetup(errMmapSetup, err)
	}

	adviseSequential(data)

	sink := &streamSink{out: job.out}

	if err := emitMapped(data, sink); err != nil {
		return err
	}

	return munmapInput(data)
}
