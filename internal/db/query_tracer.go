package db

import (
	"context"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5"
)

const maxStatementLen = 512

type querySpanKey struct{}

// queryTracer turns pgx queries into sentry db spans. Queries issued outside
// a traced request are left alone.
type queryTracer struct {
	system string
}

func newQueryTracer() *queryTracer {
	return &queryTracer{system: "postgresql"}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	if sentry.SpanFromContext(ctx) == nil {
		return ctx
	}

	statement, operation := describeQuery(data.SQL)
	span := sentry.StartSpan(
		ctx,
		"db.query",
		sentry.WithDescription(statement),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	span.SetData("db.system", t.system)
	if operation != "" {
		span.SetData("db.operation", operation)
	}
	if len(data.Args) > 0 {
		span.SetData("db.args_count", len(data.Args))
	}

	return context.WithValue(span.Context(), querySpanKey{}, span)
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(querySpanKey{}).(*sentry.Span)
	if !ok || span == nil {
		return
	}
	defer span.Finish()

	if data.Err != nil {
		span.Status = sentry.SpanStatusInternalError
		span.SetData("db.error", data.Err.Error())
		return
	}
	span.Status = sentry.SpanStatusOK
	if rows := data.CommandTag.RowsAffected(); rows >= 0 {
		span.SetData("db.rows_affected", rows)
	}
}

// describeQuery collapses whitespace in sql, truncates it for display and
// returns the leading keyword as the operation.
func describeQuery(sql string) (statement, operation string) {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "sql.query", ""
	}

	statement = strings.Join(fields, " ")
	if len(statement) > maxStatementLen {
		statement = statement[:maxStatementLen]
	}
	return statement, strings.ToUpper(fields[0])
}
