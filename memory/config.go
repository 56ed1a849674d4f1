package memory

import "go.uber.org/zap"

// Mode selects which Memory implementation New constructs.
type Mode int

const (
	// ModeSegmented models each segment ordinal as an independently
	// allocated byte buffer, the way the legacy loader kept modules
	// isolated from one another.
	ModeSegmented Mode = iota
	// ModeRealMode models a single flat 1 MiB buffer addressed as
	// seg*16+off, matching real 8086 addressing.
	ModeRealMode
)

// Config configures a Memory instance.
type Config struct {
	Mode   Mode
	Logger *zap.SugaredLogger
}

func (c Config) logger() *zap.SugaredLogger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop().Sugar()
}

// New constructs the Memory implementation selected by cfg.Mode.
func New(cfg Config) Memory {
	if cfg.Mode == ModeRealMode {
		return newRealMode(cfg)
	}
	return newSegmented(cfg)
}
