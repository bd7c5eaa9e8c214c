// Package migrations はバイナリに埋め込むマイグレーションを提供する。
package migrations

import (
	"context"
	"embed"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cassandra-migration/internal/scanner"
)

// Location は埋め込みマイグレーションのロケーション。
const Location = scanner.EmbeddedPrefix + "db/migration"

// FS は埋め込みのスクリプト。
//
//go:embed db/migration
var FS embed.FS

// Registry は埋め込みのGoマイグレーション。
var Registry = scanner.NewRegistry()

func init() {
	Registry.Register("db/migration", &V2__Seed_deploy_events{})
}

// V2__Seed_deploy_events は初期のデプロイ履歴を登録する。
type V2__Seed_deploy_events struct{}

func (*V2__Seed_deploy_events) Migrate(ctx context.Context, db *gorm.DB) error {
	return db.Exec("INSERT INTO deploy_events (id, name, source) VALUES (?, ?, ?)",
		uuid.NewString(), "initial", "seed").Error
}
