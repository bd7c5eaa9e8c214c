// Package repository はデータアクセス層の実装を提供する。
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cassandra-migration/internal/domain"
)

// AppliedMigrationModel は台帳テーブルのgorm用モデル定義。
// テーブル名は設定で変わるため、TableName ではなく LedgerRepository が指定する。
type AppliedMigrationModel struct {
	ID            string    `gorm:"type:char(36);primaryKey"`
	InstalledRank int       `gorm:"not null"`
	Version       string    `gorm:"type:varchar(255);not null"`
	Description   string    `gorm:"type:varchar(200)"`
	Type          string    `gorm:"type:varchar(20);not null"`
	Script        string    `gorm:"type:varchar(1000);not null"`
	Checksum      *int32    `gorm:"type:int"`
	InstalledBy   string    `gorm:"type:varchar(100);not null"`
	InstalledOn   time.Time `gorm:"not null;autoCreateTime"`
	ExecutionTime int       `gorm:"not null"`
	Success       bool      `gorm:"not null"`
}

// BeforeCreate はレコード作成前にUUIDを生成する。
func (m *AppliedMigrationModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// toDomain はモデルをドメインエンティティに変換する。
func (m *AppliedMigrationModel) toDomain() (domain.AppliedMigration, error) {
	version, err := domain.ParseVersion(m.Version)
	if err != nil {
		return domain.AppliedMigration{}, fmt.Errorf("ledger row %s: %w", m.ID, err)
	}
	return domain.AppliedMigration{
		Version:       version,
		Description:   m.Description,
		Type:          domain.MigrationType(m.Type),
		Script:        m.Script,
		Checksum:      m.Checksum,
		InstalledRank: m.InstalledRank,
		InstalledOn:   m.InstalledOn,
		InstalledBy:   m.InstalledBy,
		ExecutionTime: m.ExecutionTime,
		Success:       m.Success,
	}, nil
}

// LedgerRepository は台帳テーブルへのアクセスを提供する。
type LedgerRepository struct {
	db    *gorm.DB
	table string
}

// NewLedgerRepository は新しいLedgerRepositoryを生成する。table が空の場合は既定のテーブル名を使う。
func NewLedgerRepository(db *gorm.DB, table string) *LedgerRepository {
	if table == "" {
		table = domain.DefaultLedgerTable
	}
	return &LedgerRepository{db: db, table: table}
}

// Table は台帳テーブル名を返す。
func (r *LedgerRepository) Table() string {
	return r.table
}

func (r *LedgerRepository) ledger(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.table)
}

// EnsureTable は台帳テーブルが存在しなければ作成する。
func (r *LedgerRepository) EnsureTable(ctx context.Context) error {
	if err := r.ledger(ctx).AutoMigrate(&AppliedMigrationModel{}); err != nil {
		slog.ErrorContext(ctx, "failed to ensure ledger table",
			"operation", "ensure_table",
			"table", r.table,
			"error", err,
		)
		return fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	return nil
}

// FindAllApplied は台帳の全行をバージョン順に取得する。同じバージョン内では記録順に並ぶ。
func (r *LedgerRepository) FindAllApplied(ctx context.Context) ([]domain.AppliedMigration, error) {
	var models []AppliedMigrationModel
	if err := r.ledger(ctx).Order("installed_rank ASC").Find(&models).Error; err != nil {
		slog.ErrorContext(ctx, "failed to find all applied migrations",
			"operation", "find_all_applied",
			"table", r.table,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}

	applied := make([]domain.AppliedMigration, 0, len(models))
	for i := range models {
		m, err := models[i].toDomain()
		if err != nil {
			slog.ErrorContext(ctx, "invalid version in ledger",
				"operation", "find_all_applied",
				"table", r.table,
				"version", models[i].Version,
				"error", err,
			)
			return nil, err
		}
		applied = append(applied, m)
	}

	slices.SortStableFunc(applied, func(a, b domain.AppliedMigration) int {
		return a.Version.Compare(b.Version)
	})
	return applied, nil
}

// Record は台帳に1行を追加する。installed_rank は既存の最大値の次の値になる。
func (r *LedgerRepository) Record(ctx context.Context, m domain.AppliedMigration) error {
	model := &AppliedMigrationModel{
		Version:       m.Version.VersionString(),
		Description:   m.Description,
		Type:          string(m.Type),
		Script:        m.Script,
		Checksum:      m.Checksum,
		InstalledBy:   m.InstalledBy,
		InstalledOn:   m.InstalledOn,
		ExecutionTime: m.ExecutionTime,
		Success:       m.Success,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxRank *int
		if err := tx.Table(r.table).Select("MAX(installed_rank)").Scan(&maxRank).Error; err != nil {
			return err
		}
		model.InstalledRank = 1
		if maxRank != nil {
			model.InstalledRank = *maxRank + 1
		}
		return tx.Table(r.table).Create(model).Error
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to record migration",
			"operation", "record",
			"table", r.table,
			"version", m.Version.String(),
			"error", err,
		)
		return fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	return nil
}

// HasAppliedMigrations はマーカー行以外の記録があるか確認する。
func (r *LedgerRepository) HasAppliedMigrations(ctx context.Context) (bool, error) {
	var count int64
	err := r.ledger(ctx).
		Where("type NOT IN ?", []string{string(domain.MigrationTypeBaseline), string(domain.MigrationTypeSchema)}).
		Count(&count).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to count applied migrations",
			"operation", "has_applied_migrations",
			"table", r.table,
			"error", err,
		)
		return false, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	return count > 0, nil
}

// BaselineMarker はベースラインの行を取得する。存在しない場合は nil を返す。
func (r *LedgerRepository) BaselineMarker(ctx context.Context) (*domain.AppliedMigration, error) {
	var model AppliedMigrationModel
	err := r.ledger(ctx).
		Where("type = ?", string(domain.MigrationTypeBaseline)).
		Order("installed_rank DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to find baseline marker",
			"operation", "baseline_marker",
			"table", r.table,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	m, err := model.toDomain()
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// HasBaselineMarker はベースラインの行が存在するか確認する。
func (r *LedgerRepository) HasBaselineMarker(ctx context.Context) (bool, error) {
	marker, err := r.BaselineMarker(ctx)
	if err != nil {
		return false, err
	}
	return marker != nil, nil
}
