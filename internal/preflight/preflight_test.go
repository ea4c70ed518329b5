package preflight_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"riptide/internal/preflight"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()

	result := preflight.CheckDirectoryAccess("Work directory", dir)
	if !result.Passed {
		t.Fatalf("expected writable temp dir to pass: %+v", result)
	}

	result = preflight.CheckDirectoryAccess("Work directory", filepath.Join(dir, "missing"))
	if result.Passed {
		t.Fatalf("expected missing dir to fail: %+v", result)
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %q", result.Detail)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	result = preflight.CheckDirectoryAccess("Work directory", file)
	if result.Passed {
		t.Fatalf("expected regular file to fail: %+v", result)
	}
}

func TestCheckBinary(t *testing.T) {
	dir := t.TempDir()
	good := writeScript(t, dir, "ffmpeg-ok", "#!/bin/sh\nexit 0\n")
	bad := writeScript(t, dir, "ffmpeg-bad", "#!/bin/sh\nexit 1\n")

	result := preflight.CheckBinary(context.Background(), "FFmpeg", good)
	if !result.Passed {
		t.Fatalf("expected healthy binary to pass: %+v", result)
	}
	if result.Detail != good {
		t.Fatalf("expected resolved path in detail, got %q", result.Detail)
	}

	result = preflight.CheckBinary(context.Background(), "FFmpeg", bad)
	if result.Passed {
		t.Fatalf("expected failing binary to fail: %+v", result)
	}

	result = preflight.CheckBinary(context.Background(), "FFmpeg", filepath.Join(dir, "absent"))
	if result.Passed {
		t.Fatalf("expected missing binary to fail: %+v", result)
	}
}

func TestPassedIgnoresAdvisoryFailures(t *testing.T) {
	results := []preflight.Result{
		{Name: "Work directory", Passed: true},
		{Name: "Hardware decoder", Passed: false, Advisory: true},
	}
	if !preflight.Passed(results) {
		t.Fatal("advisory failure should not block")
	}

	results = append(results, preflight.Result{Name: "FFmpeg", Passed: false})
	if preflight.Passed(results) {
		t.Fatal("required failure should block")
	}
}
