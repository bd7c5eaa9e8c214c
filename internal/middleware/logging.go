// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"time"
)

// AuditLog は監査ログの構造体。
type AuditLog struct {
	Operation string `json:"operation"`
	Version   string `json:"version,omitempty"`
	Result    string `json:"result"`
	Timestamp string `json:"timestamp"`
}

// 監査ログの結果。
const (
	ResultSuccess = "SUCCESS"
	ResultFailed  = "FAILED"
)

// WriteAuditLog は台帳の状態を変更・検証する操作の監査ログを出力する。
func WriteAuditLog(ctx context.Context, operation string, version string, result string) {
	entry := AuditLog{
		Operation: operation,
		Version:   version,
		Result:    result,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	slog.InfoContext(ctx, "migration operation completed",
		"operation", entry.Operation,
		"version", entry.Version,
		"result", entry.Result,
		"timestamp", entry.Timestamp,
	)
}
