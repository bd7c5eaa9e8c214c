package scanner

import (
	"path"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Registry はGoで実装されたマイグレーションの型をロケーションごとに保持する。
// 通常は init 関数から登録し、以降は読み取りのみ行う。
type Registry struct {
	mu    sync.RWMutex
	types map[string][]reflect.Type
}

// NewRegistry は新しいRegistryを生成する。
func NewRegistry() *Registry {
	return &Registry{types: make(map[string][]reflect.Type)}
}

// Register はマイグレーションの型を location 配下に登録する。ポインタは要素型として登録する。
func (r *Registry) Register(location string, migration any) {
	t := reflect.TypeOf(migration)
	if t == nil {
		return
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	key := ParseLocation(location).Path()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.types[key] {
		if existing == t {
			return
		}
	}
	r.types[key] = append(r.types[key], t)
}

// typesUnder は location とその配下に登録された型を返す。
func (r *Registry) typesUnder(location string) []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found []reflect.Type
	for key, types := range r.types {
		if location == "." || key == location || strings.HasPrefix(key, location+"/") {
			found = append(found, types...)
		}
	}
	return found
}

// TypeName は型の完全修飾名（パッケージパス.型名）を返す。
func TypeName(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.Name()
	}
	return path.Base(t.PkgPath()) + "." + t.Name()
}

// Instantiate は型の新しいインスタンス（ポインタ）を生成する。
func Instantiate(t reflect.Type) any {
	return reflect.New(t).Interface()
}

func sortTypes(types []reflect.Type) {
	sort.Slice(types, func(i, j int) bool {
		if types[i].Name() != types[j].Name() {
			return types[i].Name() < types[j].Name()
		}
		return types[i].PkgPath() < types[j].PkgPath()
	})
}
