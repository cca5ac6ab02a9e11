package log

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config configures the process logger. Output defaults to stdout.
type Config struct {
	Level       string    `mapstructure:"level"`
	Pretty      bool      `mapstructure:"pretty"`
	Caller      bool      `mapstructure:"caller"`
	ServiceName string    `mapstructure:"service_name"`
	Output      io.Writer `mapstructure:"-"`
}

var (
	global   = zerolog.New(os.Stdout).With().Timestamp().Logger()
	initOnce sync.Once
)

// New builds a logger from cfg without touching the global one.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	ctx := zerolog.New(out).Level(parseLevel(cfg.Level)).With().Timestamp()
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	if cfg.ServiceName != "" {
		ctx = ctx.Str(FieldService, cfg.ServiceName)
	}
	return ctx.Logger()
}

// Init replaces the global logger on first call and redirects the standard
// library logger into it. Later calls are ignored.
func Init(cfg Config) {
	initOnce.Do(func() {
		global = New(cfg)
		stdlog.SetFlags(0)
		stdlog.SetOutput(global.With().Str(FieldLogType, "stdlog").Logger())
	})
}

// L returns the global logger.
func L() zerolog.Logger {
	return global
}

// Nop returns a disabled logger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

var levels = map[string]zerolog.Level{
	"trace":    zerolog.TraceLevel,
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"warning":  zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"fatal":    zerolog.FatalLevel,
	"off":      zerolog.Disabled,
	"disabled": zerolog.Disabled,
}

func parseLevel(s string) zerolog.Level {
	if lvl, ok := levels[strings.ToLower(strings.TrimSpace(s))]; ok {
		return lvl
	}
	return zerolog.InfoLevel
}
