package srcembed

import "go.uber.org/zap"

// NewDebugLogger returns a console logger on stderr for the opt-in
// diagnostic channel (--debug on the CLI). Only setup-time decisions log
// through it (transport selection, fallback causes, buffer geometry); the
// data path never does. Stdout stays clean: it carries the generated source.
func NewDebugLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true

	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}

	return log.Named("srcembed")
}
