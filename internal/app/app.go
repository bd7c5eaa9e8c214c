// Package app は設定から各コンポーネントを組み立てる。
package app

import (
	"io/fs"

	"gorm.io/gorm"

	"cassandra-migration/config"
	"cassandra-migration/internal/executor"
	"cassandra-migration/internal/infra"
	"cassandra-migration/internal/repository"
	"cassandra-migration/internal/resolver"
	"cassandra-migration/internal/scanner"
	"cassandra-migration/internal/usecase"
)

// App は組み立て済みのコンポーネントを保持する。
type App struct {
	DB      *gorm.DB
	Ledger  *repository.LedgerRepository
	Service *usecase.MigrationService
}

// New はデータベースに接続し、Appを生成する。
func New(cfg *config.Config, embedded fs.FS, registry *scanner.Registry) (*App, error) {
	db, err := infra.NewDB(cfg.DatabaseURL, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithDB(db, cfg, embedded, registry), nil
}

// NewWithDB は接続済みのデータベースからAppを生成する。
func NewWithDB(db *gorm.DB, cfg *config.Config, embedded fs.FS, registry *scanner.Registry) *App {
	m := cfg.Migration

	locations := make([]scanner.Location, 0, len(m.Locations))
	for _, raw := range m.Locations {
		locations = append(locations, scanner.ParseLocation(raw))
	}

	r := resolver.New(scanner.New(embedded, registry), locations, resolver.Config{
		Prefix:     m.Prefix,
		Separator:  m.Separator,
		Suffix:     m.Suffix,
		Capability: executor.GoMigrationType,
	})
	ledger := repository.NewLedgerRepository(db, m.Table)

	service := usecase.NewMigrationService(ledger, r, executor.New(db), usecase.Options{
		Target:              m.Target,
		OutOfOrder:          m.OutOfOrder,
		BaselineVersion:     m.BaselineVersion,
		BaselineDescription: m.BaselineDescription,
		InstalledBy:         m.InstalledBy,
	})

	return &App{DB: db, Ledger: ledger, Service: service}
}

// Close はデータベース接続を閉じる。
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
