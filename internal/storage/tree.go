package storage

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// UploadTree pushes every regular file under dir to the bucket, preserving
// relative subdirectory structure beneath prefix. The first failed upload
// aborts the walk: a partially published stream must never look complete.
// Returns the keys written so far in walk order.
func UploadTree(ctx context.Context, store ObjectStore, dir, bucket, prefix string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)

	uploaded := make([]string, 0, len(files))
	for _, path := range files {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return uploaded, fmt.Errorf("relativize %s: %w", path, err)
		}
		key := prefix + strings.ReplaceAll(rel, string(filepath.Separator), "/")
		if err := store.Upload(ctx, path, bucket, key); err != nil {
			return uploaded, err
		}
		uploaded = append(uploaded, key)
	}
	return uploaded, nil
}
