// Package resolver は探索結果を ResolvedMigration に変換する。
package resolver

import (
	"bytes"
	"context"
	"fmt"
	"hash/crc32"
	"log/slog"
	"reflect"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"cassandra-migration/internal/domain"
	"cassandra-migration/internal/scanner"
)

// Config はマイグレーション名の規約を表す。
type Config struct {
	Prefix    string // 例: "V"
	Separator string // 例: "__"
	Suffix    string // 例: ".cql"
	// Capability はGoマイグレーションが実装すべきインターフェース型。nil の場合Goマイグレーションは探索しない。
	Capability reflect.Type
}

// Migration は解決済みマイグレーションと、その実行に必要な実体を保持する。
type Migration struct {
	domain.ResolvedMigration
	Resource scanner.Resource // CQL の場合のみ
	GoType   reflect.Type     // GO の場合のみ
}

// Resolver は設定された全ロケーションからマイグレーションを解決する。
type Resolver struct {
	scanner   *scanner.Scanner
	locations []scanner.Location
	cfg       Config
}

// New は新しいResolverを生成する。
func New(s *scanner.Scanner, locations []scanner.Location, cfg Config) *Resolver {
	return &Resolver{scanner: s, locations: locations, cfg: cfg}
}

// Resolve は全ロケーションを並行に探索し、重複を除いてバージョン順に並べた結果を返す。
// 全ロケーションの探索が完了するまで結果は返さない。
func (r *Resolver) Resolve(ctx context.Context) ([]Migration, error) {
	perLocation := make([][]Migration, len(r.locations))

	g, ctx := errgroup.WithContext(ctx)
	for i, location := range r.locations {
		g.Go(func() error {
			migrations, err := r.resolveLocation(ctx, location)
			if err != nil {
				return err
			}
			perLocation[i] = migrations
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var all []Migration
	for _, migrations := range perLocation {
		for _, m := range migrations {
			// 重なったロケーションから同じ実体が見つかった場合は最初のものを採用する
			key := m.dedupKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			all = append(all, m)
		}
	}

	slices.SortStableFunc(all, func(a, b Migration) int {
		if c := a.Version.Compare(b.Version); c != 0 {
			return c
		}
		return strings.Compare(a.Script, b.Script)
	})
	return all, nil
}

func (m Migration) dedupKey() string {
	if m.GoType != nil {
		return string(m.Type) + ":" + m.GoType.PkgPath() + "." + m.GoType.Name()
	}
	return string(m.Type) + ":" + m.PhysicalLocation
}

func (r *Resolver) resolveLocation(ctx context.Context, location scanner.Location) ([]Migration, error) {
	resources, err := r.scanner.ScanForResources(location, r.cfg.Prefix, r.cfg.Suffix)
	if err != nil {
		return nil, err
	}

	var migrations []Migration
	for _, resource := range resources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resolved, ok, err := ScriptNameToResolvedMigration(resource, r.cfg.Prefix, r.cfg.Separator, r.cfg.Suffix)
		if err != nil {
			return nil, &domain.DiscoveryError{Location: location.String(), Err: err}
		}
		if !ok {
			slog.DebugContext(ctx, "skipping resource with unparsable name",
				"operation", "resolve_location",
				"location", location.String(),
				"resource", resource.Location(),
			)
			continue
		}
		migrations = append(migrations, Migration{ResolvedMigration: resolved, Resource: resource})
	}

	if r.cfg.Capability == nil {
		return migrations, nil
	}
	types, err := r.scanner.ScanForClasses(location, r.cfg.Capability)
	if err != nil {
		return nil, err
	}
	for _, t := range types {
		resolved, ok := TypeToResolvedMigration(t, r.cfg.Prefix, r.cfg.Separator)
		if !ok {
			slog.DebugContext(ctx, "skipping go migration with unparsable name",
				"operation", "resolve_location",
				"location", location.String(),
				"type", scanner.TypeName(t),
			)
			continue
		}
		migrations = append(migrations, Migration{ResolvedMigration: resolved, GoType: t})
	}
	return migrations, nil
}

// ScriptNameToResolvedMigration はリソース名からバージョンと説明を取り出し、内容のチェックサムを計算する。
// 名前が規約に合わない場合は ok=false を返す。エラーは内容の読み込みに失敗した場合のみ返す。
func ScriptNameToResolvedMigration(resource scanner.Resource, prefix, separator, suffix string) (domain.ResolvedMigration, bool, error) {
	version, description, ok := extractVersionAndDescription(resource.Filename(), prefix, separator, suffix)
	if !ok {
		return domain.ResolvedMigration{}, false, nil
	}

	content, err := resource.Load()
	if err != nil {
		return domain.ResolvedMigration{}, false, fmt.Errorf("failed to load %s: %w", resource.PhysicalLocation(), err)
	}

	return domain.ResolvedMigration{
		Version:          version,
		Description:      description,
		Script:           resource.Location(),
		Checksum:         domain.Checksum(CalculateChecksum(content)),
		Type:             domain.MigrationTypeCQL,
		PhysicalLocation: resource.PhysicalLocation(),
	}, true, nil
}

// TypeToResolvedMigration はGoの型名（例: V1_2__AddIndex）からバージョンと説明を取り出す。
func TypeToResolvedMigration(t reflect.Type, prefix, separator string) (domain.ResolvedMigration, bool) {
	version, description, ok := extractVersionAndDescription(t.Name(), prefix, separator, "")
	if !ok {
		return domain.ResolvedMigration{}, false
	}
	return domain.ResolvedMigration{
		Version:          version,
		Description:      description,
		Script:           scanner.TypeName(t),
		Type:             domain.MigrationTypeGo,
		PhysicalLocation: t.PkgPath(),
	}, true
}

// extractVersionAndDescription は "<prefix><version><separator><description><suffix>" を分解する。
// 区切りがない場合は全体をバージョンとし、説明は空とする。
func extractVersionAndDescription(name, prefix, separator, suffix string) (domain.Version, string, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return domain.Version{}, "", false
	}
	cleaned := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)

	rawVersion, rawDescription := cleaned, ""
	if separator != "" {
		if v, d, found := strings.Cut(cleaned, separator); found {
			rawVersion, rawDescription = v, d
		}
	}
	if rawVersion == "" {
		return domain.Version{}, "", false
	}

	version, err := domain.ParseVersion(rawVersion)
	if err != nil || version.IsSentinel() {
		return domain.Version{}, "", false
	}
	return version, strings.ReplaceAll(rawDescription, "_", " "), true
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CalculateChecksum はBOMを除いた内容のCRC32を返す。
func CalculateChecksum(content []byte) int32 {
	return int32(crc32.ChecksumIEEE(bytes.TrimPrefix(content, utf8BOM)))
}
