package util

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"foundermatch/pkg/apperr"
)

// IsRetryableError 判断错误是否值得重试，返回 (可重试, 错误类型)
func IsRetryableError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false, "json_decode_error"
	}

	// 领域错误重放也不会成功
	if apperr.IsDomain(err) {
		return false, "domain_" + strings.ToLower(string(apperr.CodeOf(err)))
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return false, "not_found"
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return false, "duplicate_key"
		case strings.HasPrefix(pgErr.Code, "23"), strings.HasPrefix(pgErr.Code, "22"):
			return false, "constraint_violation"
		case strings.HasPrefix(pgErr.Code, "08"), pgErr.Code == "40001", pgErr.Code == "40P01", pgErr.Code == "57P01":
			return true, "db_transient_error"
		}
	}
	if pgconn.SafeToRetry(err) {
		return true, "db_connection_error"
	}

	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	if strings.Contains(err.Error(), "connection") {
		return true, "connection_error"
	}

	// 未知错误保守处理，不重试
	return false, "unknown_error"
}

// ShouldRetry 结合重试次数判断是否重试
func ShouldRetry(retryCount int64, maxRetries int64, isRetryable bool) bool {
	if !isRetryable {
		return false
	}
	return retryCount <= maxRetries
}
