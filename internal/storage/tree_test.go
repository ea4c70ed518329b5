package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"riptide/internal/storage"
	"riptide/internal/testsupport"
)

func TestUploadTreePreservesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "index.m3u8"), 64)
	testsupport.WriteFile(t, filepath.Join(dir, "segment000.ts"), 1024)
	testsupport.WriteFile(t, filepath.Join(dir, "thumbs", "sprite.jpg"), 512)

	objects := testsupport.NewFakeObjectStore()
	keys, err := storage.UploadTree(context.Background(), objects, dir, "media", "orgs/o/uploads/m/streaming/")
	if err != nil {
		t.Fatalf("UploadTree: %v", err)
	}

	want := []string{
		"orgs/o/uploads/m/streaming/index.m3u8",
		"orgs/o/uploads/m/streaming/segment000.ts",
		"orgs/o/uploads/m/streaming/thumbs/sprite.jpg",
	}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for _, key := range want {
		if _, ok := objects.Object("media", key); !ok {
			t.Errorf("missing uploaded object %s", key)
		}
	}
}

func TestUploadTreeAbortsOnFirstFailure(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "a.ts"), 16)
	testsupport.WriteFile(t, filepath.Join(dir, "b.ts"), 16)
	testsupport.WriteFile(t, filepath.Join(dir, "c.ts"), 16)

	objects := testsupport.NewFakeObjectStore()
	objects.UploadErrFor = "b.ts"

	keys, err := storage.UploadTree(context.Background(), objects, dir, "media", "p/")
	if err == nil {
		t.Fatal("expected the failed upload to abort the walk")
	}
	if len(keys) != 1 || keys[0] != "p/a.ts" {
		t.Fatalf("keys = %v, want only the upload before the failure", keys)
	}
	if _, ok := objects.Object("media", "p/c.ts"); ok {
		t.Fatal("uploads after the failure must not happen")
	}
}

func TestUploadTreeEmptyDirUploadsNothing(t *testing.T) {
	objects := testsupport.NewFakeObjectStore()
	keys, err := storage.UploadTree(context.Background(), objects, t.TempDir(), "media", "p/")
	if err != nil {
		t.Fatalf("UploadTree: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("keys = %v, want none", keys)
	}
}
