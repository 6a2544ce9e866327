package logging

import (
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"artifact-collector/src/config"
)

const serviceName = "artifact-collector"

// NewLogger creates a structured zerolog.Logger writing to w. Every entry
// carries the service name and a per-run ID; the source is added when set.
func NewLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	if cfg.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true}
	}
	ctx := zerolog.New(w).With().Timestamp().
		Str("service", serviceName).
		Str("run_id", uuid.NewString())

	if cfg.Source != "" {
		ctx = ctx.Str("source", cfg.Source)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
