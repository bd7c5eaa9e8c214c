package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cassandra-migration/config"
	"cassandra-migration/internal/app"
	"cassandra-migration/internal/domain"
	"cassandra-migration/internal/engine"
	"cassandra-migration/internal/middleware"
)

type appRunner func(run func(cmd *cobra.Command, a *app.App) error) func(*cobra.Command, []string) error

// infoCmd は全マイグレーションの状態を表示する。
func infoCmd(withApp appRunner, f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show migration status",
		Long:  "Show the state of every resolved and applied migration",
		RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
			result, err := a.Service.Info(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			return renderInfo(cmd.OutOrStdout(), result, f.output)
		}),
	}
}

// validateCmd はローカルのマイグレーションと台帳を検証する。
func validateCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate applied migrations against local migrations",
		RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
			ctx := cmd.Context()
			_, err := a.Service.Validate(ctx)
			if err != nil {
				middleware.WriteAuditLog(ctx, "VALIDATE", "", middleware.ResultFailed)
				var verr *domain.ValidationError
				if errors.As(err, &verr) {
					renderFindings(cmd.ErrOrStderr(), verr.Findings)
				}
				return fmt.Errorf("validation failed: %w", err)
			}
			middleware.WriteAuditLog(ctx, "VALIDATE", "", middleware.ResultSuccess)
			fmt.Fprintln(cmd.OutOrStdout(), "Successfully validated migrations.")
			return nil
		}),
	}
}

// migrateCmd は適用待ちのマイグレーションを実行する。
func migrateCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		Long:  "Apply all pending migrations up to the target version",
		RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
			ctx := cmd.Context()
			appliedCount, err := a.Service.Migrate(ctx)
			if err != nil {
				middleware.WriteAuditLog(ctx, "MIGRATE", "", middleware.ResultFailed)
				return fmt.Errorf("migration failed after %d migration(s): %w", appliedCount, err)
			}

			result, err := a.Service.Info(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			current := ""
			if c := result.Current(); c != nil {
				current = c.Version().String()
			}
			middleware.WriteAuditLog(ctx, "MIGRATE", current, middleware.ResultSuccess)

			out := cmd.OutOrStdout()
			if appliedCount == 0 {
				fmt.Fprintln(out, "No pending migrations.")
			} else {
				fmt.Fprintf(out, "Applied %d migration(s) successfully. Current version: %s\n", appliedCount, current)
			}
			return nil
		}),
	}
}

// baselineCmd は既存のスキーマに対してベースラインを記録する。
func baselineCmd(withApp appRunner, cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "baseline",
		Short: "Baseline an existing schema",
		Long:  "Record a baseline marker so that migrations up to the baseline version are skipped",
		RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
			ctx := cmd.Context()
			version := cfg().Migration.BaselineVersion.String()
			if err := a.Service.Baseline(ctx); err != nil {
				middleware.WriteAuditLog(ctx, "BASELINE", version, middleware.ResultFailed)
				return fmt.Errorf("baseline failed: %w", err)
			}
			middleware.WriteAuditLog(ctx, "BASELINE", version, middleware.ResultSuccess)
			fmt.Fprintf(cmd.OutOrStdout(), "Baselined schema at version %s.\n", version)
			return nil
		}),
	}
}

// infoJSON はinfoコマンドのJSON出力形式。
type infoJSON struct {
	Current    string          `json:"current,omitempty"`
	Migrations []migrationJSON `json:"migrations"`
}

type migrationJSON struct {
	Version     string `json:"version"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Script      string `json:"script"`
	State       string `json:"state"`
	InstalledOn string `json:"installed_on,omitempty"`
}

// renderInfo は照合結果を指定の形式で出力する。
func renderInfo(w io.Writer, result *engine.Result, format string) error {
	current := ""
	if c := result.Current(); c != nil {
		current = c.Version().String()
	}

	if format == "json" {
		out := infoJSON{Current: current, Migrations: []migrationJSON{}}
		for _, info := range result.All() {
			m := migrationJSON{
				Version:     info.Version().String(),
				Description: info.Description(),
				Type:        string(info.Type()),
				Script:      info.Script(),
				State:       info.State.String(),
			}
			if info.Applied != nil {
				m.InstalledOn = info.InstalledOn().Format("2006-01-02 15:04:05")
			}
			out.Migrations = append(out.Migrations, m)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if current == "" {
		fmt.Fprintln(w, "Current version: << Empty Schema >>")
	} else {
		fmt.Fprintf(w, "Current version: %s\n", current)
	}

	// テーブル形式で出力
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tDESCRIPTION\tTYPE\tINSTALLED ON\tSTATE")
	fmt.Fprintln(tw, "-------\t-----------\t----\t------------\t-----")

	for _, info := range result.All() {
		installedOn := "-"
		if info.Applied != nil {
			installedOn = info.InstalledOn().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			info.Version(), info.Description(), info.Type(), installedOn, info.State.DisplayName())
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}

func renderFindings(w io.Writer, findings []domain.ValidationFinding) {
	for _, f := range findings {
		fmt.Fprintf(w, "  %s\t%s\n", f.State.DisplayName(), f.Message)
	}
}
