// Package engine はローカルのマイグレーションと台帳を照合し、各マイグレーションの状態を決定する。
//
// 照合は入出力を持たない純粋な関数で、結果は2つの入力列と Options のみに依存する。
package engine

import (
	"slices"

	"cassandra-migration/internal/domain"
)

// Options は照合の設定を表す。
type Options struct {
	// Target はこのバージョンより上位の未適用マイグレーションを ABOVE_TARGET とする。
	// LATEST / CURRENT、およびゼロ値（EMPTY）の場合は制限しない。
	Target domain.Version
	// OutOfOrder が true の場合、適用済みバージョンより下位の未適用マイグレーションも PENDING とする。
	OutOfOrder bool
}

// summary は照合1回分の集計値を保持する。
type summary struct {
	target       domain.Version
	outOfOrder   bool
	lastResolved domain.Version
	lastApplied  domain.Version
	baseline     domain.Version
	hasBaseline  bool
}

type versionEntry struct {
	version  domain.Version
	resolved *domain.ResolvedMigration
	applied  []int // 台帳上の記録順
}

// Reconcile はローカルで解決されたマイグレーションと台帳の行を照合する。
// 同じバージョンのマイグレーションがローカルに複数ある場合は VersionConflictError、
// ローカルと台帳のチェックサムが異なる場合は ChecksumMismatchError を返し、状態は決定しない。
func Reconcile(resolved []domain.ResolvedMigration, applied []domain.AppliedMigration, opts Options) (*Result, error) {
	sum := summary{
		target:       opts.Target,
		outOfOrder:   opts.OutOfOrder,
		lastResolved: domain.EmptyVersion,
		lastApplied:  domain.EmptyVersion,
	}

	entries := make(map[string]*versionEntry)
	entryFor := func(v domain.Version) *versionEntry {
		key := v.Key()
		e, ok := entries[key]
		if !ok {
			e = &versionEntry{version: v}
			entries[key] = e
		}
		return e
	}

	for i := range resolved {
		r := &resolved[i]
		e := entryFor(r.Version)
		if e.resolved != nil {
			return nil, &domain.VersionConflictError{
				Version: r.Version,
				First:   e.resolved.PhysicalLocation,
				Second:  r.PhysicalLocation,
			}
		}
		e.resolved = r
		if r.Version.Compare(sum.lastResolved) > 0 {
			sum.lastResolved = r.Version
		}
	}

	// 台帳の記録順に走査し、その時点での最大バージョンより下位のものを順序外とする
	outOfOrder := make([]bool, len(applied))
	for _, i := range installationOrder(applied) {
		a := applied[i]
		if a.Type == domain.MigrationTypeBaseline {
			sum.baseline = a.Version
			sum.hasBaseline = true
		}
		if a.Version.Compare(sum.lastApplied) < 0 {
			outOfOrder[i] = true
		} else {
			sum.lastApplied = a.Version
		}
		e := entryFor(a.Version)
		e.applied = append(e.applied, i)
	}

	ordered := make([]*versionEntry, 0, len(entries))
	for _, e := range entries {
		ordered = append(ordered, e)
	}
	slices.SortFunc(ordered, func(a, b *versionEntry) int {
		return a.version.Compare(b.version)
	})

	infos := make([]domain.MigrationInfo, 0, len(resolved)+len(applied))
	for _, e := range ordered {
		if len(e.applied) == 0 {
			infos = append(infos, domain.MigrationInfo{
				Resolved: e.resolved,
				State:    sum.unappliedState(e.resolved.Version),
			})
			continue
		}

		if err := checkChecksum(e, applied); err != nil {
			return nil, err
		}
		for _, i := range e.applied {
			a := &applied[i]
			infos = append(infos, domain.MigrationInfo{
				Resolved: e.resolved,
				Applied:  a,
				State:    sum.appliedState(e.resolved, a, outOfOrder[i]),
			})
		}
	}

	return &Result{infos: infos}, nil
}

// unappliedState は台帳に記録のないマイグレーションの状態を決定する。
func (c *summary) unappliedState(v domain.Version) domain.MigrationState {
	if c.hasBaseline && v.Compare(c.baseline) < 0 {
		return domain.StateBelowBaseline
	}
	if c.limitsTarget() && v.Compare(c.target) > 0 {
		return domain.StateAboveTarget
	}
	if v.Compare(c.lastApplied) < 0 && !c.outOfOrder {
		return domain.StateIgnored
	}
	return domain.StatePending
}

// appliedState は台帳の1行の状態を決定する。resolved は nil の場合がある。
func (c *summary) appliedState(resolved *domain.ResolvedMigration, a *domain.AppliedMigration, outOfOrder bool) domain.MigrationState {
	if a.Type == domain.MigrationTypeBaseline {
		return domain.StateBaseline
	}

	if resolved == nil {
		if a.Type == domain.MigrationTypeSchema {
			return domain.StateSuccess
		}
		if a.Version.Compare(c.lastResolved) < 0 {
			if a.Success {
				return domain.StateMissingSuccess
			}
			return domain.StateMissingFailed
		}
		if a.Success {
			return domain.StateFutureSuccess
		}
		return domain.StateFutureFailed
	}

	if !a.Success {
		return domain.StateFailed
	}
	if outOfOrder {
		return domain.StateOutOfOrder
	}
	return domain.StateSuccess
}

func (c *summary) limitsTarget() bool {
	return !c.target.IsLatest() && !c.target.IsCurrent() && !c.target.IsEmpty()
}

// checkChecksum はローカルのチェックサムを、そのバージョンの台帳行と比較する。
// マーカー行は比較しない。失敗した行は、後に修正版で再適用されている場合のみ比較を省く。
func checkChecksum(e *versionEntry, applied []domain.AppliedMigration) error {
	if e.resolved == nil {
		return nil
	}
	last := len(e.applied) - 1
	for n, i := range e.applied {
		a := applied[i]
		if a.IsMarker() || (!a.Success && n != last) {
			continue
		}
		if !sameChecksum(e.resolved.Checksum, a.Checksum) {
			return &domain.ChecksumMismatchError{
				Version:  e.version,
				Resolved: e.resolved.Checksum,
				Applied:  a.Checksum,
			}
		}
	}
	return nil
}

func sameChecksum(a, b *int32) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// installationOrder は台帳の行を記録順に並べたインデックスを返す。
// installed_rank を持つ行は rank 順、rank が不明（0）な行は installed_on 順に並べ、
// 両者を installed_on でマージする。installed_on が同じ場合は rank 不明の行を先にする。
func installationOrder(applied []domain.AppliedMigration) []int {
	var ranked, legacy []int
	for i, a := range applied {
		if a.InstalledRank == 0 {
			legacy = append(legacy, i)
		} else {
			ranked = append(ranked, i)
		}
	}

	// 同値の場合はバージョン、最後に入力順で比較する
	tieBreak := func(i, j int) int {
		if c := applied[i].Version.Compare(applied[j].Version); c != 0 {
			return c
		}
		return i - j
	}
	slices.SortFunc(ranked, func(i, j int) int {
		if c := applied[i].InstalledRank - applied[j].InstalledRank; c != 0 {
			return c
		}
		return tieBreak(i, j)
	})
	slices.SortFunc(legacy, func(i, j int) int {
		if c := applied[i].InstalledOn.Compare(applied[j].InstalledOn); c != 0 {
			return c
		}
		return tieBreak(i, j)
	})

	order := make([]int, 0, len(applied))
	for len(ranked) > 0 && len(legacy) > 0 {
		if applied[legacy[0]].InstalledOn.After(applied[ranked[0]].InstalledOn) {
			order = append(order, ranked[0])
			ranked = ranked[1:]
		} else {
			order = append(order, legacy[0])
			legacy = legacy[1:]
		}
	}
	order = append(order, legacy...)
	return append(order, ranked...)
}
