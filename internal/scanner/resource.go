package scanner

import (
	"io/fs"
	"os"
	"path"
	"strings"
)

// Resource は探索で見つかった未解釈のマイグレーション候補。
type Resource interface {
	// Location はロケーションからの相対パス（"/" 区切り）を返す。
	Location() string
	// Filename はファイル名を返す。
	Filename() string
	// PhysicalLocation は診断用の絶対パスまたはURIを返す。
	PhysicalLocation() string
	// Load は内容を読み込む。
	Load() ([]byte, error)
}

type fileResource struct {
	relative string
	absolute string
}

func (r *fileResource) Location() string         { return r.relative }
func (r *fileResource) Filename() string         { return path.Base(r.relative) }
func (r *fileResource) PhysicalLocation() string { return r.absolute }

func (r *fileResource) Load() ([]byte, error) {
	return os.ReadFile(r.absolute)
}

type embeddedResource struct {
	fsys     fs.FS
	root     string
	fullPath string
}

func (r *embeddedResource) Location() string {
	if r.root == "." {
		return r.fullPath
	}
	return strings.TrimPrefix(r.fullPath, r.root+"/")
}

func (r *embeddedResource) Filename() string         { return path.Base(r.fullPath) }
func (r *embeddedResource) PhysicalLocation() string { return EmbeddedPrefix + r.fullPath }

func (r *embeddedResource) Load() ([]byte, error) {
	return fs.ReadFile(r.fsys, r.fullPath)
}

func matches(filename, prefix, suffix string) bool {
	return strings.HasPrefix(filename, prefix) &&
		strings.HasSuffix(filename, suffix) &&
		len(filename) > len(prefix)+len(suffix)
}
