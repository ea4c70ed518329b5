// Package workspace manages the job-scoped scratch directories holding the
// fetched input, transcoded segments, and generated thumbnails. A workspace
// is owned exclusively by the job execution that created it and is removed
// unconditionally when that execution ends.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is one job's scratch area.
type Workspace struct {
	root      string
	inputPath string
	outputDir string
}

// Create builds a fresh workspace for the given media asset under workRoot.
func Create(workRoot, mediaID string) (*Workspace, error) {
	root := filepath.Join(workRoot, mediaID)
	outputDir := filepath.Join(root, "output")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", root, err)
	}
	return &Workspace{
		root:      root,
		inputPath: filepath.Join(root, "input.mp4"),
		outputDir: outputDir,
	}, nil
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string { return w.root }

// InputPath is where the fetched source file lands.
func (w *Workspace) InputPath() string { return w.inputPath }

// OutputDir holds every artifact destined for upload.
func (w *Workspace) OutputDir() string { return w.outputDir }

// Destroy removes the workspace tree. Partial trees are tolerated; only an
// error other than absence is reported.
func (w *Workspace) Destroy() error {
	if w == nil || w.root == "" {
		return nil
	}
	if err := os.RemoveAll(w.root); err != nil {
		return fmt.Errorf("remove workspace %s: %w", w.root, err)
	}
	return nil
}

// InputSize reports the fetched input's size in bytes.
func (w *Workspace) InputSize() (int64, error) {
	info, err := os.Stat(w.inputPath)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
