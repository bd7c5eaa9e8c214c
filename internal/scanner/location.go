// Package scanner はマイグレーション候補の探索を提供する。
package scanner

import (
	"path"
	"strings"
)

const (
	// FileSystemPrefix はファイルシステム上のディレクトリを指すロケーションの接頭辞。
	FileSystemPrefix = "filesystem:"
	// EmbeddedPrefix は埋め込みファイルシステム上のディレクトリを指すロケーションの接頭辞。
	EmbeddedPrefix = "embedded:"
)

// Location はマイグレーションを探索する場所を表す。
type Location struct {
	prefix string
	path   string
}

// ParseLocation はロケーション文字列を解釈する。接頭辞がなければ埋め込みとみなす。
func ParseLocation(raw string) Location {
	raw = strings.TrimSpace(raw)
	if p, ok := strings.CutPrefix(raw, FileSystemPrefix); ok {
		return Location{prefix: FileSystemPrefix, path: strings.TrimRight(p, "/")}
	}
	p := strings.TrimPrefix(raw, EmbeddedPrefix)
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" {
		p = "."
	}
	return Location{prefix: EmbeddedPrefix, path: p}
}

// ParseLocations はカンマ区切りのロケーション一覧を解釈する。空要素は無視する。
func ParseLocations(raw string) []Location {
	var locations []Location
	for _, s := range strings.Split(raw, ",") {
		if strings.TrimSpace(s) == "" {
			continue
		}
		locations = append(locations, ParseLocation(s))
	}
	return locations
}

// IsFileSystem はファイルシステム上のロケーションかを返す。
func (l Location) IsFileSystem() bool {
	return l.prefix == FileSystemPrefix
}

// Path は接頭辞を除いたパスを返す。
func (l Location) Path() string {
	return l.path
}

func (l Location) String() string {
	return l.prefix + l.path
}
