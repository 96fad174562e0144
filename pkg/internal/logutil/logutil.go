package logutil

import (
    "log"
    "strings"
    "sync/atomic"

    "github.com/rs/zerolog"
    "github.com/vrischmann/envconfig"
)

// Config is read from the environment at package init.
type Config struct {
    JSON   bool   `envconfig:"PLATFORM_LOG_JSON,optional"`
    Format string `envconfig:"PLATFORM_LOG_FORMAT,optional"`
}

var jsonMode atomic.Bool

func init() {
    var cfg Config
    if err := envconfig.Init(&cfg); err != nil { return }
    if cfg.JSON || strings.EqualFold(cfg.Format, "json") {
        jsonMode.Store(true)
    }
}

func SetJSON(enabled bool) { jsonMode.Store(enabled) }

func Infof(l *log.Logger, f string, args ...any)  { logf(l, zerolog.InfoLevel, f, args...) }
func Warnf(l *log.Logger, f string, args ...any)  { logf(l, zerolog.WarnLevel, f, args...) }
func Errorf(l *log.Logger, f string, args ...any) { logf(l, zerolog.ErrorLevel, f, args...) }

func logf(l *log.Logger, level zerolog.Level, f string, args ...any) {
    if l == nil { l = log.Default() }
    if jsonMode.Load() {
        // one JSON object per line on the logger's writer
        zl := zerolog.New(l.Writer()).With().Timestamp().Logger()
        zl.WithLevel(level).Msgf(f, args...)
        return
    }
    prefix(l, strings.ToUpper(level.String())+" ").Printf(f, args...)
}

func prefix(l *log.Logger, p string) *log.Logger {
    return log.New(l.Writer(), p, l.Flags())
}
