// Package executor は解決済みマイグレーションを対象データベースに対して実行する。
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"gorm.io/gorm"

	"cassandra-migration/internal/domain"
	"cassandra-migration/internal/resolver"
	"cassandra-migration/internal/scanner"
)

// GoMigration はGoで記述されたマイグレーションが実装するインターフェース。
// 型名は "V<version>__<description>" の規約に従い、scanner.Registry に登録する。
type GoMigration interface {
	Migrate(ctx context.Context, db *gorm.DB) error
}

// GoMigrationType は探索時に使う GoMigration のインターフェース型。
var GoMigrationType = reflect.TypeOf((*GoMigration)(nil)).Elem()

// Executor はマイグレーションを1件ずつ実行する。
type Executor struct {
	db *gorm.DB
}

// New は新しいExecutorを生成する。
func New(db *gorm.DB) *Executor {
	return &Executor{db: db}
}

// Execute はマイグレーションを実行し、所要時間を返す。
func (e *Executor) Execute(ctx context.Context, m resolver.Migration) (time.Duration, error) {
	start := time.Now()

	var err error
	switch m.Type {
	case domain.MigrationTypeCQL:
		err = e.executeScript(ctx, m)
	case domain.MigrationTypeGo:
		err = e.executeGo(ctx, m)
	default:
		err = fmt.Errorf("unsupported migration type %s", m.Type)
	}
	elapsed := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "failed to execute migration",
			"operation", "execute",
			"version", m.Version.String(),
			"script", m.Script,
			"error", err,
		)
		return elapsed, err
	}
	slog.DebugContext(ctx, "migration executed",
		"operation", "execute",
		"version", m.Version.String(),
		"script", m.Script,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return elapsed, nil
}

// executeScript はスクリプトを ";" で区切られた文ごとに実行する。
func (e *Executor) executeScript(ctx context.Context, m resolver.Migration) error {
	if m.Resource == nil {
		return fmt.Errorf("no resource for script %s", m.Script)
	}
	content, err := m.Resource.Load()
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", m.PhysicalLocation, err)
	}

	for _, stmt := range SplitStatements(string(content)) {
		if err := e.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to execute statement %q: %w", stmt, err)
		}
	}
	return nil
}

func (e *Executor) executeGo(ctx context.Context, m resolver.Migration) error {
	if m.GoType == nil {
		return fmt.Errorf("no go type for migration %s", m.Script)
	}
	migration, ok := scanner.Instantiate(m.GoType).(GoMigration)
	if !ok {
		return fmt.Errorf("%s does not implement GoMigration", m.Script)
	}
	return migration.Migrate(ctx, e.db.WithContext(ctx))
}

// SplitStatements はスクリプトを文に分割する。"--" と "//" で始まる行はコメントとして除く。
// 引用符内の ";" では分割しない。
func SplitStatements(script string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimPrefix(script, "\ufeff"), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") || strings.HasPrefix(trimmed, "//") {
			continue
		}
		lines = append(lines, line)
	}
	body := strings.Join(lines, "\n")

	var (
		stmts   []string
		current strings.Builder
		quote   rune
	)
	for _, r := range body {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ';':
			if s := strings.TrimSpace(current.String()); s != "" {
				stmts = append(stmts, s)
			}
			current.Reset()
			continue
		}
		current.WriteRune(r)
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		stmts = append(stmts, s)
	}
	return stmts
}
