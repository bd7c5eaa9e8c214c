package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"cassandra-migration/config"
)

// NewRouter はルーターを生成する。トレーシングが有効な場合はリクエストごとにスパンを記録する。
func NewRouter(h *MigrationHandler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// ミドルウェア
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)

	// ルート定義
	r.Get("/healthz", h.Healthz)
	r.Route("/v1/migrations", func(r chi.Router) {
		r.Get("/", h.ListMigrations)
		r.Get("/pending", h.ListPendingMigrations)
		r.Post("/validate", h.ValidateMigrations)
	})

	if cfg != nil && cfg.OtelEnabled {
		return otelhttp.NewHandler(r, cfg.OtelServiceName)
	}
	return r
}
