package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ChangeSet sorts templates by what the state store knows about them.
type ChangeSet struct {
	Added     []string // Never checked
	Modified  []string // Content differs from the last check
	Failing   []string // Same content, but the last check reported offenses
	Unchanged []string // Same content, last check was clean
	Deleted   []string // Remembered, but gone from disk
}

// Pending returns the templates an incremental run has to analyze.
func (c *ChangeSet) Pending() []string {
	pending := make([]string, 0, len(c.Added)+len(c.Modified)+len(c.Failing))
	pending = append(pending, c.Added...)
	pending = append(pending, c.Modified...)
	return append(pending, c.Failing...)
}

// ChangeDetector compares templates on disk with the state store.
type ChangeDetector struct {
	rootDir string
	store   *Store
}

// NewChangeDetector creates a change detector for templates under rootDir.
func NewChangeDetector(rootDir string, store *Store) *ChangeDetector {
	return &ChangeDetector{rootDir: rootDir, store: store}
}

// Detect classifies paths (absolute, or relative to the root). Paths keep the
// form they were given in.
//
// Algorithm:
//  1. Load all remembered templates
//  2. For each path:
//     a. Not remembered: Added
//     b. Same mtime as remembered: content unchanged (fast path, skip hash)
//     c. Otherwise hash the file; a different hash is Modified
//     d. Unchanged content is Failing when the last check was not clean
//  3. Remembered templates that no longer exist on disk: Deleted
func (cd *ChangeDetector) Detect(ctx context.Context, paths []string) (*ChangeSet, error) {
	changes := &ChangeSet{
		Added:     []string{},
		Modified:  []string{},
		Failing:   []string{},
		Unchanged: []string{},
		Deleted:   []string{},
	}

	remembered, err := cd.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	byPath := make(map[string]*Template, len(remembered))
	for _, tmpl := range remembered {
		byPath[tmpl.Path] = tmpl
	}

	for _, path := range paths {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		key, err := cd.Key(path)
		if err != nil {
			return nil, err
		}
		absPath := cd.abs(path)

		info, err := os.Stat(absPath)
		if err != nil {
			return nil, fmt.Errorf("failed to stat template %s: %w", path, err)
		}

		tmpl, ok := byPath[key]
		if !ok {
			changes.Added = append(changes.Added, path)
			continue
		}

		if !info.ModTime().Equal(tmpl.LastModified) {
			hash, err := HashFile(absPath)
			if err != nil {
				return nil, fmt.Errorf("failed to calculate hash for %s: %w", path, err)
			}
			if hash != tmpl.ContentHash {
				changes.Modified = append(changes.Modified, path)
				continue
			}
		}

		if tmpl.Clean() {
			changes.Unchanged = append(changes.Unchanged, path)
		} else {
			changes.Failing = append(changes.Failing, path)
		}
	}

	for key := range byPath {
		if _, err := os.Stat(filepath.Join(cd.rootDir, filepath.FromSlash(key))); os.IsNotExist(err) {
			changes.Deleted = append(changes.Deleted, key)
		}
	}

	return changes, nil
}

// Snapshot builds the state to record for path after a run with exitCode.
// hash is the Hash of the contents that were analyzed; if the file changed
// since, its new mtime makes the next Detect compare hashes.
func (cd *ChangeDetector) Snapshot(path, hash string, exitCode int, checkedAt time.Time) (Template, error) {
	key, err := cd.Key(path)
	if err != nil {
		return Template{}, err
	}

	info, err := os.Stat(cd.abs(path))
	if err != nil {
		return Template{}, fmt.Errorf("failed to stat template %s: %w", path, err)
	}

	return Template{
		Path:         key,
		ContentHash:  hash,
		SizeBytes:    info.Size(),
		LastModified: info.ModTime(),
		ExitCode:     exitCode,
		CheckedAt:    checkedAt,
	}, nil
}

// Key returns the slash separated, root relative form of path used as the
// primary key.
func (cd *ChangeDetector) Key(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path)), nil
	}
	rel, err := filepath.Rel(cd.rootDir, path)
	if err != nil {
		return "", fmt.Errorf("failed to get relative path for %s: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}

func (cd *ChangeDetector) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cd.rootDir, path)
}

// Hash returns the SHA-256 of contents as lowercase hex.
func Hash(contents string) string {
	sum := sha256.Sum256([]byte(contents))
	return hex.EncodeToString(sum[:])
}

// HashFile calculates the SHA-256 hash of a file.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
