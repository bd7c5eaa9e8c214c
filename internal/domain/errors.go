package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidVersionFormat はバージョン文字列が解釈できない場合のエラー。
	ErrInvalidVersionFormat = errors.New("invalid version format")

	// ErrDiscoveryFailure はロケーションの走査に失敗した場合のエラー。
	ErrDiscoveryFailure = errors.New("discovery failure")

	// ErrChecksumMismatch はローカルと台帳でチェックサムが異なる場合のエラー。
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrVersionConflict は同じバージョンのマイグレーションが複数発見された場合のエラー。
	ErrVersionConflict = errors.New("version conflict")

	// ErrValidationFailed は照合結果の検証に失敗した場合のエラー。
	ErrValidationFailed = errors.New("validation failed")

	// ErrMigrationFailed はマイグレーション実行時のエラー。
	ErrMigrationFailed = errors.New("migration failed")

	// ErrBaselineRejected はベースライン操作が拒否された場合のエラー。
	ErrBaselineRejected = errors.New("baseline rejected")

	// ErrLedgerUnavailable は台帳の読み書きに失敗した場合のエラー。
	ErrLedgerUnavailable = errors.New("ledger unavailable")
)

// InvalidVersionError は解釈できなかったバージョン文字列を保持する。
type InvalidVersionError struct {
	Raw string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("%s: only 0..9, '.' and '_' are allowed: %q", ErrInvalidVersionFormat, e.Raw)
}

func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersionFormat }

// DiscoveryError は走査に失敗したロケーションと原因を保持する。
type DiscoveryError struct {
	Location string
	Err      error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("%s: unable to scan for migrations in location %q: %v", ErrDiscoveryFailure, e.Location, e.Err)
}

func (e *DiscoveryError) Unwrap() []error { return []error{ErrDiscoveryFailure, e.Err} }

// ChecksumMismatchError はチェックサムが一致しないバージョンを保持する。
type ChecksumMismatchError struct {
	Version  Version
	Resolved *int32
	Applied  *int32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%s: migration %s: applied to ledger with %s, resolved locally with %s",
		ErrChecksumMismatch, e.Version, formatChecksum(e.Applied), formatChecksum(e.Resolved))
}

func (e *ChecksumMismatchError) Unwrap() error { return ErrChecksumMismatch }

// VersionConflictError は同じバージョンを持つ2つのスクリプトを保持する。
type VersionConflictError struct {
	Version Version
	First   string
	Second  string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("%s: found more than one migration with version %s (%s, %s)",
		ErrVersionConflict, e.Version, e.First, e.Second)
}

func (e *VersionConflictError) Unwrap() error { return ErrVersionConflict }

// ValidationFinding は検証で見つかった問題1件を表す。
type ValidationFinding struct {
	Version Version
	State   MigrationState
	Message string
}

// ValidationError は検証で見つかった全ての問題を保持する。
type ValidationError struct {
	Findings []ValidationFinding
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Findings))
	for i, f := range e.Findings {
		msgs[i] = f.Message
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

func formatChecksum(c *int32) string {
	if c == nil {
		return "no checksum"
	}
	return fmt.Sprintf("checksum %d", *c)
}
