package analyzer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// workspace is the directory projections are written to and the analyzer
// runs in.
type workspace struct {
	dir     string
	rootDir string
	keep    bool
}

// newWorkspace uses tmpFolder (relative to rootDir unless absolute) when set
// and keeps it afterwards; otherwise it creates a throwaway directory.
func newWorkspace(tmpFolder, rootDir string) (*workspace, error) {
	if tmpFolder == "" {
		dir, err := os.MkdirTemp("", "ruumba-")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp directory: %w", err)
		}
		return &workspace{dir: dir, rootDir: rootDir}, nil
	}

	dir := tmpFolder
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(rootDir, dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create tmp folder %s: %w", dir, err)
	}
	return &workspace{dir: dir, rootDir: rootDir, keep: true}, nil
}

// relative returns where a template lives relative to the project root.
// Templates outside the root are placed under "_external".
func (w *workspace) relative(path string) string {
	rel, err := filepath.Rel(w.rootDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Join("_external", strings.TrimPrefix(path, filepath.VolumeName(path)))
	}
	return rel
}

// projectionPath is the file a template's projection is written to,
// relative to the workspace.
func projectionPath(rel string, rbExtension bool) string {
	if rbExtension {
		return rel + ".rb"
	}
	return rel
}

func (w *workspace) write(rel string, projection string) (string, error) {
	path := filepath.Join(w.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(path, []byte(projection), 0644); err != nil {
		return "", fmt.Errorf("failed to write projection %s: %w", rel, err)
	}
	return path, nil
}

func (w *workspace) cleanup() error {
	if w.keep {
		return nil
	}
	return os.RemoveAll(w.dir)
}
