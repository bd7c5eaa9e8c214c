// Package usecase はアプリケーションのユースケースを実装する。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cassandra-migration/internal/domain"
	"cassandra-migration/internal/engine"
	"cassandra-migration/internal/resolver"
)

var tracer = otel.Tracer("cassandra-migration/internal/usecase")

// LedgerRepository は台帳へのアクセスのインターフェース。
type LedgerRepository interface {
	EnsureTable(ctx context.Context) error
	FindAllApplied(ctx context.Context) ([]domain.AppliedMigration, error)
	Record(ctx context.Context, m domain.AppliedMigration) error
	HasAppliedMigrations(ctx context.Context) (bool, error)
	BaselineMarker(ctx context.Context) (*domain.AppliedMigration, error)
}

// MigrationResolver はローカルのマイグレーションを探索するインターフェース。
type MigrationResolver interface {
	Resolve(ctx context.Context) ([]resolver.Migration, error)
}

// MigrationExecutor はマイグレーションを実行するインターフェース。
type MigrationExecutor interface {
	Execute(ctx context.Context, m resolver.Migration) (time.Duration, error)
}

// Options はユースケースの設定を表す。
type Options struct {
	Target              domain.Version
	OutOfOrder          bool
	BaselineVersion     domain.Version
	BaselineDescription string
	InstalledBy         string
}

// MigrationService はマイグレーションのビジネスロジックを提供する。
type MigrationService struct {
	ledger   LedgerRepository
	resolver MigrationResolver
	executor MigrationExecutor
	opts     Options
}

// NewMigrationService は新しいMigrationServiceを生成する。
func NewMigrationService(ledger LedgerRepository, migrations MigrationResolver, executor MigrationExecutor, opts Options) *MigrationService {
	return &MigrationService{
		ledger:   ledger,
		resolver: migrations,
		executor: executor,
		opts:     opts,
	}
}

// reconciled は照合結果と、実行に必要な解決済みマイグレーションを保持する。
type reconciled struct {
	result     *engine.Result
	migrations map[string]resolver.Migration
}

func (s *MigrationService) reconcile(ctx context.Context, operation string) (*reconciled, error) {
	if err := s.ledger.EnsureTable(ctx); err != nil {
		return nil, err
	}

	migrations, err := s.resolver.Resolve(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to resolve migrations",
			"operation", operation,
			"error", err,
		)
		return nil, err
	}

	applied, err := s.ledger.FindAllApplied(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch applied migrations: %w", err)
	}

	resolved := make([]domain.ResolvedMigration, len(migrations))
	byVersion := make(map[string]resolver.Migration, len(migrations))
	for i, m := range migrations {
		resolved[i] = m.ResolvedMigration
		byVersion[m.Version.Key()] = m
	}

	result, err := engine.Reconcile(resolved, applied, engine.Options{
		Target:     s.opts.Target,
		OutOfOrder: s.opts.OutOfOrder,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to reconcile migrations",
			"operation", operation,
			"error", err,
		)
		return nil, err
	}

	slog.DebugContext(ctx, "migrations reconciled",
		"operation", operation,
		"resolved", len(resolved),
		"applied", len(applied),
		"pending", len(result.Pending()),
	)
	return &reconciled{result: result, migrations: byVersion}, nil
}

// Info はローカルと台帳を照合した結果を返す。
func (s *MigrationService) Info(ctx context.Context) (*engine.Result, error) {
	ctx, span := tracer.Start(ctx, "MigrationService.Info")
	defer span.End()

	r, err := s.reconcile(ctx, "info")
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return r.result, nil
}

// Validate は照合結果を検証する。問題がある場合も照合結果は返す。
func (s *MigrationService) Validate(ctx context.Context) (*engine.Result, error) {
	ctx, span := tracer.Start(ctx, "MigrationService.Validate")
	defer span.End()

	r, err := s.reconcile(ctx, "validate")
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	if err := r.result.Validate(); err != nil {
		slog.WarnContext(ctx, "validation failed",
			"operation", "validate",
			"error", err,
		)
		recordError(span, err)
		return r.result, err
	}
	return r.result, nil
}

// Migrate は適用待ちのマイグレーションをバージョン順に実行し、適用した件数を返す。
// 失敗したマイグレーションは台帳に記録したうえで処理を中断する。
func (s *MigrationService) Migrate(ctx context.Context) (int, error) {
	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "MigrationService.Migrate",
		trace.WithAttributes(attribute.String("migration.run_id", runID)))
	defer span.End()

	r, err := s.reconcile(ctx, "migrate")
	if err != nil {
		recordError(span, err)
		return 0, err
	}

	if failed := r.result.Failed(); len(failed) > 0 {
		err := fmt.Errorf("%w: ledger contains failed migration to version %s", domain.ErrMigrationFailed, failed[0].Version())
		slog.ErrorContext(ctx, "refusing to migrate",
			"operation", "migrate",
			"run_id", runID,
			"version", failed[0].Version().String(),
			"state", failed[0].State.String(),
			"error", err,
		)
		recordError(span, err)
		return 0, err
	}

	pending := s.selectPending(r.result)
	if len(pending) == 0 {
		slog.InfoContext(ctx, "schema is up to date",
			"operation", "migrate",
			"run_id", runID,
		)
		return 0, nil
	}

	appliedCount := 0
	for _, info := range pending {
		m := r.migrations[info.Version().Key()]
		if err := s.apply(ctx, runID, m); err != nil {
			recordError(span, err)
			return appliedCount, err
		}
		appliedCount++
	}

	span.SetAttributes(attribute.Int("migration.applied", appliedCount))
	return appliedCount, nil
}

// selectPending は実行対象を返す。ターゲットが CURRENT の場合は現在のバージョン以下に限る。
func (s *MigrationService) selectPending(result *engine.Result) []domain.MigrationInfo {
	pending := result.Pending()
	if !s.opts.Target.IsCurrent() {
		return pending
	}
	current := result.Current()
	var selected []domain.MigrationInfo
	for _, info := range pending {
		if current != nil && info.Version().Compare(current.Version()) <= 0 {
			selected = append(selected, info)
		}
	}
	return selected
}

// apply は1件のマイグレーションを実行し、結果を台帳に記録する。
func (s *MigrationService) apply(ctx context.Context, runID string, m resolver.Migration) error {
	slog.InfoContext(ctx, "applying migration",
		"operation", "migrate",
		"run_id", runID,
		"version", m.Version.String(),
		"description", m.Description,
	)

	elapsed, execErr := s.executor.Execute(ctx, m)
	applied := domain.NewAppliedMigration(m.Version, m.Description, m.Type, m.Script, m.Checksum,
		int(elapsed.Milliseconds()), execErr == nil)
	applied.InstalledBy = s.opts.InstalledBy

	if err := s.ledger.Record(ctx, applied); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.Version, err)
	}

	if execErr != nil {
		slog.ErrorContext(ctx, "failed to apply migration",
			"operation", "migrate",
			"run_id", runID,
			"version", m.Version.String(),
			"error", execErr,
		)
		return fmt.Errorf("%w: version %s: %v", domain.ErrMigrationFailed, m.Version, execErr)
	}
	return nil
}

// Baseline は台帳にベースラインを記録する。
// 同じベースラインが既に存在する場合は何もしない。
func (s *MigrationService) Baseline(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "MigrationService.Baseline")
	defer span.End()

	version := s.opts.BaselineVersion
	description := s.opts.BaselineDescription

	err := s.baseline(ctx, version, description)
	if err != nil {
		slog.ErrorContext(ctx, "failed to baseline",
			"operation", "baseline",
			"version", version.String(),
			"error", err,
		)
		recordError(span, err)
	}
	return err
}

func (s *MigrationService) baseline(ctx context.Context, version domain.Version, description string) error {
	// バージョン0はスキーマ作成のマーカー用に予約されている
	if version.IsSentinel() || version.Compare(domain.MustParseVersion("0")) == 0 {
		return fmt.Errorf("%w: invalid baseline version %s", domain.ErrBaselineRejected, version)
	}

	if err := s.ledger.EnsureTable(ctx); err != nil {
		return err
	}

	hasApplied, err := s.ledger.HasAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	if hasApplied {
		return fmt.Errorf("%w: ledger already contains applied migrations", domain.ErrBaselineRejected)
	}

	marker, err := s.ledger.BaselineMarker(ctx)
	if err != nil {
		return err
	}
	if marker != nil {
		if marker.Version.Equal(version) && marker.Description == description {
			slog.InfoContext(ctx, "baseline already recorded",
				"operation", "baseline",
				"version", version.String(),
			)
			return nil
		}
		return fmt.Errorf("%w: ledger already baselined at version %s (%s)",
			domain.ErrBaselineRejected, marker.Version, marker.Description)
	}

	applied := domain.NewAppliedMigration(version, description, domain.MigrationTypeBaseline, description, nil, 0, true)
	applied.InstalledBy = s.opts.InstalledBy
	if err := s.ledger.Record(ctx, applied); err != nil {
		return fmt.Errorf("failed to record baseline: %w", err)
	}

	slog.InfoContext(ctx, "baseline recorded",
		"operation", "baseline",
		"version", version.String(),
	)
	return nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
