// Package infra は外部サービスとの接続を提供する。
package infra

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"cassandra-migration/config"
)

// SQLitePrefix が付いた DATABASE_URL はSQLiteのファイルとして開く。ローカル検証用。
const SQLitePrefix = "sqlite:"

// NewDB はgormによるデータベース接続を初期化する。
// トレーシングが有効な場合はクエリごとにスパンを記録する。
func NewDB(dsn string, cfg *config.Config) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	db, err := gorm.Open(dialector(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if cfg != nil && cfg.OtelEnabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, fmt.Errorf("failed to register tracing plugin: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 接続プール設定
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

func dialector(dsn string) gorm.Dialector {
	if path, ok := strings.CutPrefix(dsn, SQLitePrefix); ok {
		return sqlite.Open(path)
	}
	return mysql.Open(dsn)
}
