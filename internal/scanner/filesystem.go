package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// FileSystemScanner はファイルシステム上のディレクトリを再帰的に探索する。
type FileSystemScanner struct{}

// ScanForResources は prefix で始まり suffix で終わるファイルを探索する。
// ディレクトリが存在しない場合は警告を出して空の結果を返す。
func (FileSystemScanner) ScanForResources(location Location, prefix, suffix string) ([]Resource, error) {
	root, err := filepath.Abs(location.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory: %w", err)
	}

	stat, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("migration location does not exist",
			"operation", "scan_for_resources",
			"location", location.String(),
		)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat directory: %w", err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var resources []Resource
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() || !matches(d.Name(), prefix, suffix) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		resources = append(resources, &fileResource{
			relative: filepath.ToSlash(rel),
			absolute: p,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read contents of directory: %w", err)
	}

	sort.Slice(resources, func(i, j int) bool {
		return resources[i].Location() < resources[j].Location()
	})
	return resources, nil
}
