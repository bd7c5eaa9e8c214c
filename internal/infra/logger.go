package infra

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"cassandra-migration/config"
)

// TraceHandler はトレース情報をログに付与するslogハンドラ。
// 台帳テーブル名が設定されている場合は全レコードに ledger_table を付与する。
type TraceHandler struct {
	next        slog.Handler
	projectID   string
	otelEnabled bool
}

// NewTraceHandler はトレース情報付きのslogハンドラを生成する。
func NewTraceHandler(next slog.Handler, cfg *config.Config) *TraceHandler {
	if table := cfg.Migration.Table; table != "" {
		next = next.WithAttrs([]slog.Attr{slog.String("ledger_table", table)})
	}
	return &TraceHandler{
		next:        next,
		projectID:   cfg.LogProjectID,
		otelEnabled: cfg.OtelEnabled,
	}
}

func (h *TraceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle はログレコードにトレース情報を付与して次のハンドラに渡す。
func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.traceAttrs(ctx)...)
	return h.next.Handle(ctx, r)
}

func (h *TraceHandler) traceAttrs(ctx context.Context) []slog.Attr {
	if !h.otelEnabled {
		return nil
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}

	traceID := sc.TraceID().String()
	spanID := sc.SpanID().String()
	attrs := []slog.Attr{
		slog.String("trace", traceID),
		slog.String("spanId", spanID),
		slog.Bool("traceSampled", sc.IsSampled()),
	}

	// Google Cloud Logging連携用
	if h.projectID != "" {
		attrs = append(attrs,
			slog.String("logging.googleapis.com/trace", "projects/"+h.projectID+"/traces/"+traceID),
			slog.String("logging.googleapis.com/spanId", spanID),
		)
	}
	return attrs
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{next: h.next.WithAttrs(attrs), projectID: h.projectID, otelEnabled: h.otelEnabled}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{next: h.next.WithGroup(name), projectID: h.projectID, otelEnabled: h.otelEnabled}
}

// SetupLogger はトレース情報付きのグローバルロガーを標準出力に設定する。
func SetupLogger(cfg *config.Config, level slog.Level) {
	slog.SetDefault(NewLogger(os.Stdout, cfg, level))
}

// NewLogger は w に出力するトレース情報付きのロガーを生成する。
// LOG_FORMAT=text の場合はテキスト形式、それ以外はJSON形式で出力する。
func NewLogger(w io.Writer, cfg *config.Config, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var base slog.Handler
	if strings.EqualFold(cfg.LogFormat, config.LogFormatText) {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}
	return slog.New(NewTraceHandler(base, cfg))
}

// ParseLogLevel は LOG_LEVEL の値をログレベルに変換する。不明な値は INFO。
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
