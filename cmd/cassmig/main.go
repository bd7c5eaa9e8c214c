// Package main はマイグレーションCLIのエントリポイント。
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"cassandra-migration/config"
	"cassandra-migration/internal/app"
	"cassandra-migration/internal/domain"
	"cassandra-migration/internal/infra"
	"cassandra-migration/internal/scanner"
	"cassandra-migration/migrations"
)

const version = "1.0.0"

// flags は設定を上書きするコマンドラインフラグ。
type flags struct {
	dsn        string
	locations  string
	table      string
	target     string
	outOfOrder bool
	output     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		f   flags
		cfg *config.Config
		tp  *sdktrace.TracerProvider
	)

	rootCmd := &cobra.Command{
		Use:           "cassmig",
		Short:         "Versioned schema migrations",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .envファイルを読み込む（存在しない場合は無視）
			_ = godotenv.Load()

			loaded, err := config.Load()
			if err != nil {
				return err
			}
			if err := f.apply(cmd, loaded); err != nil {
				return err
			}
			cfg = loaded

			tp, err = infra.InitTracer(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to init tracer: %w", err)
			}
			slog.SetDefault(infra.NewLogger(os.Stderr, cfg, infra.ParseLogLevel(cfg.LogLevel)))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if tp != nil {
				return tp.Shutdown(context.Background())
			}
			return nil
		},
	}

	// グローバルフラグ
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.dsn, "dsn", "", "Database DSN (or set DATABASE_URL; prefix with sqlite: for a local file)")
	pf.StringVar(&f.locations, "locations", "", "Comma separated migration locations (or set MIGRATION_LOCATIONS)")
	pf.StringVar(&f.table, "table", "", "Ledger table name (or set MIGRATION_TABLE)")
	pf.StringVar(&f.target, "target", "", "Target version: latest, current or a version (or set MIGRATION_TARGET)")
	pf.BoolVar(&f.outOfOrder, "out-of-order", false, "Allow applying migrations below the current version")
	pf.StringVar(&f.output, "output", "text", "Output format: text, json")

	withApp := func(run func(cmd *cobra.Command, a *app.App) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL environment variable or --dsn is required")
			}
			a, err := app.New(cfg, migrations.FS, migrations.Registry)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := a.Close(); err != nil {
					slog.Error("failed to close database", "error", err)
				}
			}()

			ctx, span := infra.Tracer().Start(cmd.Context(), "cassmig "+cmd.Name())
			defer span.End()
			cmd.SetContext(ctx)
			return run(cmd, a)
		}
	}

	// サブコマンド登録
	rootCmd.AddCommand(infoCmd(withApp, &f))
	rootCmd.AddCommand(validateCmd(withApp))
	rootCmd.AddCommand(migrateCmd(withApp))
	rootCmd.AddCommand(baselineCmd(withApp, func() *config.Config { return cfg }))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// apply は明示的に指定されたフラグで設定を上書きする。
func (f *flags) apply(cmd *cobra.Command, cfg *config.Config) error {
	pf := cmd.Flags()
	if pf.Changed("dsn") {
		cfg.DatabaseURL = f.dsn
	}
	if pf.Changed("locations") {
		var locations []string
		for _, l := range scanner.ParseLocations(f.locations) {
			locations = append(locations, l.String())
		}
		if len(locations) == 0 {
			return fmt.Errorf("--locations must not be empty")
		}
		cfg.Migration.Locations = locations
	}
	if pf.Changed("table") {
		cfg.Migration.Table = f.table
	}
	if pf.Changed("target") {
		target, err := domain.ParseTargetVersion(f.target)
		if err != nil {
			return fmt.Errorf("invalid --target: %w", err)
		}
		cfg.Migration.Target = target
	}
	if pf.Changed("out-of-order") {
		cfg.Migration.OutOfOrder = f.outOfOrder
	}
	if f.output != "text" && f.output != "json" {
		return fmt.Errorf("invalid --output %q: must be text or json", f.output)
	}
	return nil
}

// versionCmd はバージョン情報を表示する。
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// 設定の読み込みは不要
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cassmig version %s\n", version)
		},
	}
}
