package db

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"foundermatch/pkg/metrics"
	"foundermatch/pkg/otel"
)

type queryStartKey struct{}

type queryStart struct {
	at   time.Time
	sql  string
	span trace.Span
}

// QueryTracer 为每条查询开 otel span，并记录慢查询
type QueryTracer struct {
	logger        *zap.Logger
	slowThreshold time.Duration
}

// NewQueryTracer 创建查询 Tracer，默认慢查询阈值 100ms
func NewQueryTracer(logger *zap.Logger, slowThreshold time.Duration) *QueryTracer {
	if slowThreshold <= 0 {
		slowThreshold = 100 * time.Millisecond
	}
	return &QueryTracer{
		logger:        logger,
		slowThreshold: slowThreshold,
	}
}

// TraceQueryStart 查询开始时的钩子
func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx, span := otel.DBSpan(ctx, operationOf(data.SQL), data.SQL)
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: time.Now(), sql: data.SQL, span: span})
}

// TraceQueryEnd 查询结束时的钩子
func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	otel.EndDBSpan(start.span, data.Err)

	duration := time.Since(start.at)
	if duration <= t.slowThreshold {
		return
	}

	sql := start.sql
	if len(sql) > 200 {
		sql = sql[:200] + "..."
	}

	t.logger.Warn("slow-query",
		zap.String("sql", sql),
		zap.Duration("took", duration),
		zap.String("command_tag", data.CommandTag.String()),
	)
	metrics.IncrementSlowQuery(operationOf(start.sql), duration)
}

// operationOf 取 SQL 的首个关键字作为操作名
func operationOf(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}
