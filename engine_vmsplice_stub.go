//go:build !linux || android

package srcembed

// vmsplice is Linux-only; selection falls through to buffered output.

func runReadVmsplice(*embedJob) error {
	return wrapSetup(errVmspliceSetup, errNotSupported)
}

func runMmapVmsplice(*embedJob) error {
	return wrapSetup(errVmspliceSetup, errNotSupported)
}
