package scanner

import (
	"fmt"
	"io/fs"
	"reflect"

	"cassandra-migration/internal/domain"
)

// ResourceScanner は1種類の格納媒体を探索するバックエンド。
type ResourceScanner interface {
	ScanForResources(location Location, prefix, suffix string) ([]Resource, error)
}

// Scanner はロケーションの種類に応じてバックエンドを選択する。
type Scanner struct {
	fileSystem ResourceScanner
	embedded   ResourceScanner
	registry   *Registry
}

// New は新しいScannerを生成する。embedded が nil の場合、埋め込みロケーションの走査は失敗する。
func New(embedded fs.FS, registry *Registry) *Scanner {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Scanner{
		fileSystem: FileSystemScanner{},
		embedded:   NewEmbeddedScanner(embedded),
		registry:   registry,
	}
}

// NewWithBackends はバックエンドを指定してScannerを生成する。
func NewWithBackends(fileSystem, embedded ResourceScanner, registry *Registry) *Scanner {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Scanner{fileSystem: fileSystem, embedded: embedded, registry: registry}
}

// ScanForResources は location 配下で prefix で始まり suffix で終わるリソースを探索する。
// バックエンドの失敗は全て DiscoveryError に包んで返す。
func (s *Scanner) ScanForResources(location Location, prefix, suffix string) ([]Resource, error) {
	backend := s.embedded
	if location.IsFileSystem() {
		backend = s.fileSystem
	}

	resources, err := backend.ScanForResources(location, prefix, suffix)
	if err != nil {
		return nil, &domain.DiscoveryError{Location: location.String(), Err: err}
	}
	return resources, nil
}

// ScanForClasses は location 配下に登録された具象型のうち、capability を実装するものを返す。
// capability はインターフェース型でなければならない。
func (s *Scanner) ScanForClasses(location Location, capability reflect.Type) ([]reflect.Type, error) {
	if capability == nil || capability.Kind() != reflect.Interface {
		return nil, &domain.DiscoveryError{
			Location: location.String(),
			Err:      fmt.Errorf("capability %v is not an interface", capability),
		}
	}
	if location.IsFileSystem() {
		// ファイルシステム上にGoの型は存在しない
		return nil, nil
	}

	var found []reflect.Type
	for _, t := range s.registry.typesUnder(location.Path()) {
		if !isConcrete(t) {
			continue
		}
		if t.Implements(capability) || reflect.PointerTo(t).Implements(capability) {
			found = append(found, t)
		}
	}
	sortTypes(found)
	return found, nil
}

func isConcrete(t reflect.Type) bool {
	return t.Kind() != reflect.Interface && t.Name() != ""
}
