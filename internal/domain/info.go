package domain

import "time"

// MigrationInfo は照合済みのマイグレーション1件を表す。
// Resolved と Applied の少なくとも一方は nil ではない。
type MigrationInfo struct {
	Resolved *ResolvedMigration
	Applied  *AppliedMigration
	State    MigrationState
}

// Version はマイグレーションのバージョンを返す。
func (i MigrationInfo) Version() Version {
	if i.Applied != nil {
		return i.Applied.Version
	}
	return i.Resolved.Version
}

// Description は説明を返す。適用済みの場合は台帳の値を優先する。
func (i MigrationInfo) Description() string {
	if i.Applied != nil {
		return i.Applied.Description
	}
	return i.Resolved.Description
}

// Type はマイグレーションの種類を返す。
func (i MigrationInfo) Type() MigrationType {
	if i.Applied != nil {
		return i.Applied.Type
	}
	return i.Resolved.Type
}

// Script はスクリプト名を返す。
func (i MigrationInfo) Script() string {
	if i.Applied != nil {
		return i.Applied.Script
	}
	return i.Resolved.Script
}

// Checksum はチェックサムを返す。
func (i MigrationInfo) Checksum() *int32 {
	if i.Applied != nil {
		return i.Applied.Checksum
	}
	return i.Resolved.Checksum
}

// InstalledOn は適用日時を返す。未適用の場合はゼロ値。
func (i MigrationInfo) InstalledOn() time.Time {
	if i.Applied == nil {
		return time.Time{}
	}
	return i.Applied.InstalledOn
}

// ExecutionTime は実行時間（ミリ秒）を返す。
func (i MigrationInfo) ExecutionTime() int {
	if i.Applied == nil {
		return 0
	}
	return i.Applied.ExecutionTime
}
