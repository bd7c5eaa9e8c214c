package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"cassandra-migration/internal/domain"
)

// setupTestDB はテスト用のSQLiteデータベースを作成し、台帳テーブルを用意する。
func setupTestDB(t *testing.T) (*gorm.DB, *LedgerRepository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	repo := NewLedgerRepository(db, "test_migration_version")
	if err := repo.EnsureTable(context.Background()); err != nil {
		t.Fatalf("failed to create ledger table: %v", err)
	}
	return db, repo
}

func newApplied(version string, typ domain.MigrationType, success bool) domain.AppliedMigration {
	m := domain.NewAppliedMigration(domain.MustParseVersion(version), "migration "+version, typ,
		"V"+version+"__migration.cql", domain.Checksum(int32(len(version))), 12, success)
	m.InstalledBy = "tester"
	return m
}

func TestLedgerRepository_RecordAndFindAllApplied(t *testing.T) {
	ctx := context.Background()
	_, repo := setupTestDB(t)

	// 記録順とバージョン順が異なる
	for _, v := range []string{"2", "1.1", "1_2", "10"} {
		if err := repo.Record(ctx, newApplied(v, domain.MigrationTypeCQL, true)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	applied, err := repo.FindAllApplied(ctx)
	if err != nil {
		t.Fatalf("FindAllApplied failed: %v", err)
	}
	if len(applied) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(applied))
	}

	wantVersions := []string{"1.1", "1.2", "2", "10"}
	wantRanks := []int{2, 3, 1, 4}
	for i, m := range applied {
		if m.Version.String() != wantVersions[i] {
			t.Errorf("row %d: expected version %s, got %s", i, wantVersions[i], m.Version)
		}
		if m.InstalledRank != wantRanks[i] {
			t.Errorf("row %d: expected rank %d, got %d", i, wantRanks[i], m.InstalledRank)
		}
	}

	first := applied[0]
	if first.InstalledBy != "tester" || first.ExecutionTime != 12 || !first.Success {
		t.Errorf("unexpected row contents: %+v", first)
	}
	if first.Checksum == nil || *first.Checksum != 3 {
		t.Errorf("expected checksum 3, got %v", first.Checksum)
	}
	if first.InstalledOn.IsZero() {
		t.Error("expected installed_on to be set")
	}
}

func TestLedgerRepository_RecordPreservesNilChecksum(t *testing.T) {
	ctx := context.Background()
	_, repo := setupTestDB(t)

	m := newApplied("1", domain.MigrationTypeGo, false)
	m.Checksum = nil
	m.InstalledOn = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.Record(ctx, m); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	applied, err := repo.FindAllApplied(ctx)
	if err != nil {
		t.Fatalf("FindAllApplied failed: %v", err)
	}
	if applied[0].Checksum != nil {
		t.Errorf("expected nil checksum, got %d", *applied[0].Checksum)
	}
	if applied[0].Success {
		t.Error("expected success=false")
	}
	if applied[0].Type != domain.MigrationTypeGo {
		t.Errorf("expected type GO, got %s", applied[0].Type)
	}
	if !applied[0].InstalledOn.Equal(m.InstalledOn) {
		t.Errorf("expected installed_on %v, got %v", m.InstalledOn, applied[0].InstalledOn)
	}
}

func TestLedgerRepository_InvalidStoredVersion(t *testing.T) {
	ctx := context.Background()
	db, repo := setupTestDB(t)

	if err := db.Exec("INSERT INTO test_migration_version (id, installed_rank, version, description, type, script, installed_by, installed_on, execution_time, success) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		"row-1", 1, "not-a-version", "broken", "CQL", "x.cql", "tester", time.Now(), 0, true).Error; err != nil {
		t.Fatalf("failed to insert test data: %v", err)
	}

	_, err := repo.FindAllApplied(ctx)
	if !errors.Is(err, domain.ErrInvalidVersionFormat) {
		t.Errorf("expected ErrInvalidVersionFormat, got %v", err)
	}
}

func TestLedgerRepository_HasAppliedMigrations(t *testing.T) {
	ctx := context.Background()
	_, repo := setupTestDB(t)

	has, err := repo.HasAppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("HasAppliedMigrations failed: %v", err)
	}
	if has {
		t.Error("expected has=false for empty ledger")
	}

	// マーカー行は適用済みとして数えない
	if err := repo.Record(ctx, newApplied("1", domain.MigrationTypeBaseline, true)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	has, err = repo.HasAppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("HasAppliedMigrations failed: %v", err)
	}
	if has {
		t.Error("expected has=false with only a baseline marker")
	}

	if err := repo.Record(ctx, newApplied("2", domain.MigrationTypeCQL, true)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	has, err = repo.HasAppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("HasAppliedMigrations failed: %v", err)
	}
	if !has {
		t.Error("expected has=true")
	}
}

func TestLedgerRepository_BaselineMarker(t *testing.T) {
	ctx := context.Background()
	_, repo := setupTestDB(t)

	marker, err := repo.BaselineMarker(ctx)
	if err != nil {
		t.Fatalf("BaselineMarker failed: %v", err)
	}
	if marker != nil {
		t.Errorf("expected nil marker, got %+v", marker)
	}

	if err := repo.Record(ctx, newApplied("3", domain.MigrationTypeBaseline, true)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	marker, err = repo.BaselineMarker(ctx)
	if err != nil {
		t.Fatalf("BaselineMarker failed: %v", err)
	}
	if marker == nil || marker.Version.String() != "3" {
		t.Fatalf("expected baseline marker at version 3, got %+v", marker)
	}

	has, err := repo.HasBaselineMarker(ctx)
	if err != nil {
		t.Fatalf("HasBaselineMarker failed: %v", err)
	}
	if !has {
		t.Error("expected has=true")
	}
}

func TestLedgerRepository_DefaultTable(t *testing.T) {
	repo := NewLedgerRepository(nil, "")
	if repo.Table() != domain.DefaultLedgerTable {
		t.Errorf("expected table %s, got %s", domain.DefaultLedgerTable, repo.Table())
	}
}

func TestLedgerRepository_Unavailable(t *testing.T) {
	ctx := context.Background()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open gorm with sqlmock: %v", err)
	}
	repo := NewLedgerRepository(db, "")

	mock.ExpectQuery("SELECT (.+) FROM `migration_version`").WillReturnError(errors.New("connection refused"))
	if _, err := repo.FindAllApplied(ctx); !errors.Is(err, domain.ErrLedgerUnavailable) {
		t.Errorf("expected ErrLedgerUnavailable, got %v", err)
	}

	mock.ExpectQuery("SELECT count(.+) FROM `migration_version`").WillReturnError(errors.New("connection refused"))
	if _, err := repo.HasAppliedMigrations(ctx); !errors.Is(err, domain.ErrLedgerUnavailable) {
		t.Errorf("expected ErrLedgerUnavailable, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
