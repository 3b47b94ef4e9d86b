package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// StartStatement tags ctx with a statement id and returns a finish func that
// logs the outcome and records statement metrics.
func StartStatement(ctx context.Context, logger *slog.Logger, engine, kind, sql string) (context.Context, func(error)) {
	id := StatementIDFromContext(ctx)
	if id == "" {
		id = uuid.NewString()
		ctx = ContextWithStatementID(ctx, id)
	}
	logger = OrDiscard(logger)
	start := time.Now()
	return ctx, func(err error) {
		elapsed := time.Since(start)
		ObserveStatement(engine, kind, err, elapsed)
		attrs := []any{
			slog.String("statement_id", id),
			slog.String("engine", engine),
			slog.String("kind", kind),
			slog.String("duration", elapsed.String()),
		}
		if err != nil {
			logger.WarnContext(ctx, "statement_failed", append(attrs, slog.String("sql", sql), slog.Any("error", err))...)
			return
		}
		logger.DebugContext(ctx, "statement", append(attrs, slog.String("sql", sql))...)
	}
}
