package observability

import (
	"context"
	"io"
	"log/slog"

	"github.com/duckmesh/duckframe/internal/config"
)

type ctxKey string

const statementIDKey ctxKey = "statement_id"

func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	var handler slog.Handler
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: cfg.Observability.LogLevel})
	} else {
		handler = slog.NewTextHandler(writer, &slog.HandlerOptions{Level: cfg.Observability.LogLevel})
	}
	return slog.New(handler).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
	)
}

// OrDiscard returns logger, or a logger that drops everything when nil.
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}

func ContextWithStatementID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, statementIDKey, id)
}

func StatementIDFromContext(ctx context.Context) string {
	value, ok := ctx.Value(statementIDKey).(string)
	if !ok {
		return ""
	}
	return value
}
