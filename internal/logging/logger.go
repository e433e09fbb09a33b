package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/grafana/loki-client-go/loki"
	slogloki "github.com/samber/slog-loki/v3"
)

const serviceName = "foodorder"

type Config struct {
	Level   string
	LokiURL string
}

// New returns a JSON stdout logger, or a Loki logger when LokiURL is set.
// Loki setup errors fall back to stdout.
func New(cfg Config) *slog.Logger {
	level := ParseLevel(cfg.Level)
	if cfg.LokiURL == "" {
		return NewWithWriter(os.Stdout, level)
	}

	lokiConfig, err := loki.NewDefaultConfig(cfg.LokiURL)
	if err != nil {
		l := NewWithWriter(os.Stdout, level)
		l.Warn("loki config rejected, logging to stdout", "error", err)
		return l
	}
	client, err := loki.New(lokiConfig)
	if err != nil {
		l := NewWithWriter(os.Stdout, level)
		l.Warn("loki client failed, logging to stdout", "error", err)
		return l
	}

	return slog.New(slogloki.Option{
		Level:           level,
		Client:          client,
		AttrFromContext: []func(ctx context.Context) []slog.Attr{attrsFromContext},
	}.NewLokiHandler()).With("service", serviceName)
}

func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(ContextHandler{Handler: h}).With("service", serviceName)
}

// Discard is used by tests and tools that do not care about logs.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ParseLevel(v string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
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
