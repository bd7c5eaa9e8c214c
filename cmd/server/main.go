// Package main はマイグレーション状態を返すAPIサーバーのエントリポイント。
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"cassandra-migration/config"
	"cassandra-migration/internal/app"
	"cassandra-migration/internal/handler"
	"cassandra-migration/internal/infra"
	"cassandra-migration/migrations"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// .envファイルを読み込む（既存の環境変数は上書きしない）
	_ = godotenv.Load()

	if err := run(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// トレーサー初期化（ロガー設定の前に実行）
	tp, err := infra.InitTracer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to init tracer: %w", err)
	}
	if tp != nil {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				slog.Error("failed to shutdown tracer", "error", err)
			}
		}()
	}
	infra.SetupLogger(cfg, infra.ParseLogLevel(cfg.LogLevel))

	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	a, err := app.New(cfg, migrations.FS, migrations.Registry)
	if err != nil {
		return fmt.Errorf("failed to init database: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.NewRouter(handler.NewMigrationHandler(a.Service), cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "port", cfg.Port, "ledger_table", a.Ledger.Table())
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// シグナル受信またはサーバー停止で終了処理に入る
		<-gctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
