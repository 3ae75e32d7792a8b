package server

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// LogConfig configures the server's logging backend.
type LogConfig struct {
	// LogFile enables rotated file logging when set.
	LogFile string

	// DebugLevel is the level applied to every logger: trace, debug,
	// info, warn, error, critical. Defaults to info.
	DebugLevel string

	// MaxLogFiles is the number of rotated files kept. Defaults to 3.
	MaxLogFiles int
}

// LogBackend fans log output to stderr and, when configured, a rotated log
// file. Loggers for individual subsystems hang off the shared backend.
type LogBackend struct {
	backend *slog.Backend
	level   slog.Level
	rotator *rotator.Rotator
}

// NewLogBackend builds the logging backend from cfg.
func NewLogBackend(cfg LogConfig) (*LogBackend, error) {
	level, ok := slog.LevelFromString(cfg.DebugLevel)
	if !ok {
		if cfg.DebugLevel != "" {
			return nil, fmt.Errorf("unknown log level %q", cfg.DebugLevel)
		}
		level = slog.LevelInfo
	}

	lb := &LogBackend{level: level}

	var w io.Writer = os.Stderr
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %v", err)
		}
		maxRolls := cfg.MaxLogFiles
		if maxRolls == 0 {
			maxRolls = 3
		}
		r, err := rotator.New(cfg.LogFile, 32*1024, false, maxRolls)
		if err != nil {
			return nil, fmt.Errorf("failed to create log rotator: %v", err)
		}
		lb.rotator = r
		w = io.MultiWriter(os.Stderr, r)
	}

	lb.backend = slog.NewBackend(w)
	return lb, nil
}

// Logger returns a leveled logger for the named subsystem.
func (lb *LogBackend) Logger(subsystem string) slog.Logger {
	log := lb.backend.Logger(subsystem)
	log.SetLevel(lb.level)
	return log
}

// Close flushes and closes the rotated log file, if any.
func (lb *LogBackend) Close() error {
	if lb.rotator != nil {
		return lb.rotator.Close()
	}
	return nil
}
