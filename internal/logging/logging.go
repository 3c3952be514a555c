// Package logging configures structured JSON logging for the ledger service.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps debug|info|warn|error to a slog level. Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a JSON logger writing to w. Every line carries the service name
// and, when set, the environment.
func New(w io.Writer, service, env, level string) *slog.Logger {
	return slog.New(newHandler(w, service, env, level))
}

func newHandler(w io.Writer, service, env, level string) slog.Handler {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})

	attrs := []slog.Attr{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}
	return h.WithAttrs(attrs)
}

// Setup installs the JSON logger on stdout as the slog default and routes the
// standard library logger (used by gorm and echo internals) through it.
func Setup(service, env, level string) *slog.Logger {
	h := newHandler(os.Stdout, service, env, level)
	base := slog.New(h)
	slog.SetDefault(base)

	bridge := slog.NewLogLogger(h, slog.LevelInfo)
	log.SetOutput(bridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}
