package engine

import (
	"fmt"

	"cassandra-migration/internal/domain"
)

// Result は照合結果を保持する。All はバージョン順、同一バージョン内では台帳の記録順に並ぶ。
type Result struct {
	infos []domain.MigrationInfo
}

// All は全てのマイグレーションを返す。
func (r *Result) All() []domain.MigrationInfo {
	return r.infos
}

// Current は成功として適用済みで最も上位のマイグレーションを返す。該当するものがなければ nil を返す。
// 同じバージョンの行が複数ある場合は後に記録されたものを返す。
func (r *Result) Current() *domain.MigrationInfo {
	var current *domain.MigrationInfo
	for i := range r.infos {
		info := &r.infos[i]
		if !info.State.IsApplied() || info.State.IsFailed() {
			continue
		}
		if current == nil || info.Version().Compare(current.Version()) >= 0 {
			current = info
		}
	}
	return current
}

// Pending は適用待ちのマイグレーションを返す。
func (r *Result) Pending() []domain.MigrationInfo {
	return r.filter(func(s domain.MigrationState) bool { return s == domain.StatePending })
}

// Applied は台帳に記録されたマイグレーションを返す。
func (r *Result) Applied() []domain.MigrationInfo {
	return r.filter(domain.MigrationState.IsApplied)
}

// Resolved はローカルに存在するマイグレーションを返す。
func (r *Result) Resolved() []domain.MigrationInfo {
	return r.filter(domain.MigrationState.IsResolved)
}

// Failed は失敗したマイグレーションを返す。
func (r *Result) Failed() []domain.MigrationInfo {
	return r.filter(domain.MigrationState.IsFailed)
}

// Future はローカルより新しいバージョンで適用済みのマイグレーションを返す。
func (r *Result) Future() []domain.MigrationInfo {
	return r.filter(func(s domain.MigrationState) bool {
		return s == domain.StateFutureSuccess || s == domain.StateFutureFailed
	})
}

// OutOfOrder は順序外で適用されたマイグレーションを返す。
func (r *Result) OutOfOrder() []domain.MigrationInfo {
	return r.filter(func(s domain.MigrationState) bool { return s == domain.StateOutOfOrder })
}

func (r *Result) filter(keep func(domain.MigrationState) bool) []domain.MigrationInfo {
	var out []domain.MigrationInfo
	for _, info := range r.infos {
		if keep(info.State) {
			out = append(out, info)
		}
	}
	return out
}

// Validate はローカルと台帳の不整合を検査し、問題があれば ValidationError を返す。
// 新しいバージョンの適用済みマイグレーション（FUTURE_SUCCESS）は問題としない。
func (r *Result) Validate() error {
	var findings []domain.ValidationFinding
	for _, info := range r.infos {
		var msg string
		switch {
		case info.State.IsFailed():
			msg = fmt.Sprintf("detected failed migration to version %s (%s)", info.Version(), info.Description())
		case info.State == domain.StateIgnored:
			msg = fmt.Sprintf("detected resolved migration not applied to database: %s", info.Version())
		case info.State == domain.StateMissingSuccess:
			msg = fmt.Sprintf("detected applied migration not resolved locally: %s", info.Version())
		default:
			continue
		}
		findings = append(findings, domain.ValidationFinding{
			Version: info.Version(),
			State:   info.State,
			Message: msg,
		})
	}
	if len(findings) == 0 {
		return nil
	}
	return &domain.ValidationError{Findings: findings}
}
