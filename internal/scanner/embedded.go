package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
)

// EmbeddedScanner は embed.FS などの fs.FS を探索する。
type EmbeddedScanner struct {
	fsys fs.FS
}

// NewEmbeddedScanner は新しいEmbeddedScannerを生成する。
func NewEmbeddedScanner(fsys fs.FS) *EmbeddedScanner {
	return &EmbeddedScanner{fsys: fsys}
}

// ScanForResources は prefix で始まり suffix で終わるファイルを探索する。
func (s *EmbeddedScanner) ScanForResources(location Location, prefix, suffix string) ([]Resource, error) {
	if s.fsys == nil {
		return nil, errors.New("no embedded filesystem configured")
	}

	root := location.Path()
	stat, err := fs.Stat(s.fsys, root)
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
	err = fs.WalkDir(s.fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !matches(d.Name(), prefix, suffix) {
			return nil
		}
		resources = append(resources, &embeddedResource{
			fsys:     s.fsys,
			root:     root,
			fullPath: p,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk embedded directory: %w", err)
	}

	sort.Slice(resources, func(i, j int) bool {
		return resources[i].Location() < resources[j].Location()
	})
	return resources, nil
}
