package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Config selects level and output format of the process logger.
type Config struct {
	Debug        bool `split_words:"true" default:"false"`
	PrettyFormat bool `split_words:"true" default:"false"`
}

// ZerologAdapter implements Logger on top of zerolog. Key/value args are
// attached as fields.
type ZerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologAdapter wraps an existing zerolog logger.
func NewZerologAdapter(l zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: l}
}

// New builds the default process logger writing to stdout.
func New(cfg Config) *ZerologAdapter {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter builds a logger writing to w. PrettyFormat switches to the
// human readable console writer.
func NewWithWriter(cfg Config, w io.Writer) *ZerologAdapter {
	var zl zerolog.Logger
	if cfg.PrettyFormat {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	} else {
		zl = zerolog.New(w).With().Timestamp().Logger()
	}

	if cfg.Debug {
		zl = zl.Level(zerolog.DebugLevel)
	} else {
		zl = zl.Level(zerolog.InfoLevel)
	}

	return NewZerologAdapter(zl.With().Caller().Logger())
}

// Zerolog exposes the wrapped logger.
func (z *ZerologAdapter) Zerolog() zerolog.Logger { return z.logger }

// Debug logs a debug message.
func (z *ZerologAdapter) Debug(msg string, args ...any) { emit(z.logger.Debug(), msg, args) }

// Info logs an informational message.
func (z *ZerologAdapter) Info(msg string, args ...any) { emit(z.logger.Info(), msg, args) }

// Warn logs a warning message.
func (z *ZerologAdapter) Warn(msg string, args ...any) { emit(z.logger.Warn(), msg, args) }

// Error logs an error message.
func (z *ZerologAdapter) Error(msg string, args ...any) { emit(z.logger.Error(), msg, args) }

func emit(ev *zerolog.Event, msg string, args []any) {
	if ev == nil { // level disabled
		return
	}
	if len(args) > 0 {
		ev = ev.Fields(args)
	}
	ev.CallerSkipFrame(2).Msg(msg)
}
