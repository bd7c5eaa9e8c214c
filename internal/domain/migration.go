package domain

import "time"

// MigrationType はマイグレーションの種類を表す。
type MigrationType string

const (
	// MigrationTypeCQL はスクリプトファイルによるマイグレーション。
	MigrationTypeCQL MigrationType = "CQL"
	// MigrationTypeGo はGoのコードで実装されたマイグレーション。
	MigrationTypeGo MigrationType = "GO"
	// MigrationTypeBaseline はベースライン操作で記録されるマーカー。
	MigrationTypeBaseline MigrationType = "BASELINE"
	// MigrationTypeSchema はキースペース作成時に記録されるマーカー。
	MigrationTypeSchema MigrationType = "SCHEMA"
)

const (
	maxDescriptionLength = 200
	maxScriptLength      = 1000
	ellipsis             = "..."
)

// ResolvedMigration はローカルで発見されたマイグレーションを表す。
type ResolvedMigration struct {
	Version          Version
	Description      string
	Script           string // ロケーションからの相対名
	Checksum         *int32
	Type             MigrationType
	PhysicalLocation string // 診断用の絶対パスまたはURI
}

// Equal は全フィールドが等しいかを返す。
func (m ResolvedMigration) Equal(o ResolvedMigration) bool {
	return m.Version.Equal(o.Version) &&
		m.Description == o.Description &&
		m.Script == o.Script &&
		checksumEqual(m.Checksum, o.Checksum) &&
		m.Type == o.Type &&
		m.PhysicalLocation == o.PhysicalLocation
}

// AppliedMigration は台帳の1行を表す。
type AppliedMigration struct {
	Version       Version
	Description   string
	Type          MigrationType
	Script        string
	Checksum      *int32
	InstalledRank int // 台帳への記録順。0 は不明を表す
	InstalledOn   time.Time
	InstalledBy   string
	ExecutionTime int // ミリ秒
	Success       bool
}

// NewAppliedMigration は台帳へ新規記録するための AppliedMigration を生成する。
// 保存できる長さに収まるよう description と script を切り詰める。
func NewAppliedMigration(version Version, description string, typ MigrationType, script string,
	checksum *int32, executionTime int, success bool) AppliedMigration {
	if executionTime < 0 {
		executionTime = 0
	}
	return AppliedMigration{
		Version:       version,
		Description:   abbreviateDescription(description),
		Type:          typ,
		Script:        abbreviateScript(script),
		Checksum:      checksum,
		ExecutionTime: executionTime,
		Success:       success,
	}
}

// abbreviateDescription は200文字を超える説明の末尾を "..." に置き換える。
func abbreviateDescription(description string) string {
	r := []rune(description)
	if len(r) <= maxDescriptionLength {
		return description
	}
	return string(r[:maxDescriptionLength-len(ellipsis)]) + ellipsis
}

// abbreviateScript は1000文字を超えるスクリプト名の末尾側を残し、先頭を "..." にする。
func abbreviateScript(script string) string {
	r := []rune(script)
	if len(r) <= maxScriptLength {
		return script
	}
	return ellipsis + string(r[len(r)-(maxScriptLength-len(ellipsis)):])
}

// Equal は全フィールドが等しいかを返す。
func (m AppliedMigration) Equal(o AppliedMigration) bool {
	return m.Version.Equal(o.Version) &&
		m.Description == o.Description &&
		m.Type == o.Type &&
		m.Script == o.Script &&
		checksumEqual(m.Checksum, o.Checksum) &&
		m.InstalledRank == o.InstalledRank &&
		m.InstalledOn.Equal(o.InstalledOn) &&
		m.InstalledBy == o.InstalledBy &&
		m.ExecutionTime == o.ExecutionTime &&
		m.Success == o.Success
}

// IsMarker はベースラインまたはスキーマ作成のマーカー行かを返す。
func (m AppliedMigration) IsMarker() bool {
	return m.Type == MigrationTypeBaseline || m.Type == MigrationTypeSchema
}

func checksumEqual(a, b *int32) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Checksum は値からチェックサムへのポインタを返す。
func Checksum(v int32) *int32 {
	return &v
}
