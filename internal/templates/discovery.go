// Package templates finds ERB templates on disk and loads them as documents.
package templates

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"
)

// Extension is the suffix every template file carries.
const Extension = ".erb"

var (
	// ErrInvalidEncoding indicates a template that is not valid UTF-8.
	ErrInvalidEncoding = errors.New("template is not valid UTF-8")

	// ErrNotTemplate indicates an explicit file argument without the .erb suffix.
	ErrNotTemplate = errors.New("not an ERB template")
)

// Document is one template: where it lives and what it says.
type Document struct {
	Path     string
	Contents string
}

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Discovery resolves command line targets into template paths.
type Discovery struct {
	rootDir        string
	includePattern []compiledPattern
	ignorePatterns []compiledPattern
	skipDirs       []string
}

// NewDiscovery creates a discovery rooted at rootDir. Patterns are matched
// against slash separated paths relative to rootDir.
func NewDiscovery(rootDir string, include, ignore []string) (*Discovery, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", rootDir, err)
	}

	d := &Discovery{rootDir: abs}

	if d.includePattern, err = compile(include); err != nil {
		return nil, err
	}
	if d.ignorePatterns, err = compile(ignore); err != nil {
		return nil, err
	}

	return d, nil
}

func compile(patterns []string) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, compiledPattern{pattern: pattern, glob: g})
	}
	return compiled, nil
}

// Skip excludes everything under dir from directory walks. The analyzer
// registers its projection directory here so a tmp folder inside the project
// is never linted as templates.
func (d *Discovery) Skip(dir string) {
	if abs, err := filepath.Abs(dir); err == nil {
		d.skipDirs = append(d.skipDirs, abs)
	}
}

// Discover returns the absolute, sorted, de-duplicated template paths named by
// targets. Directories are walked for files matching the include patterns;
// files are taken as given but must end with .erb. No targets means rootDir.
func (d *Discovery) Discover(targets []string) ([]string, error) {
	if len(targets) == 0 {
		targets = []string{d.rootDir}
	}

	seen := make(map[string]bool)
	var paths []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}

	for _, target := range targets {
		abs := target
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(d.rootDir, target)
		}
		abs = filepath.Clean(abs)

		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", target, err)
		}

		if !info.IsDir() {
			if !strings.HasSuffix(abs, Extension) {
				return nil, fmt.Errorf("%w: %s", ErrNotTemplate, target)
			}
			add(abs)
			continue
		}

		if err := d.walk(abs, add); err != nil {
			return nil, err
		}
	}

	sort.Strings(paths)
	return paths, nil
}

func (d *Discovery) walk(dir string, add func(string)) error {
	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.skipped(path) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(d.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if entry.IsDir() {
			if path != dir && d.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.shouldIgnore(relPath) {
			return nil
		}

		if d.matchesAnyPattern(relPath, d.includePattern) {
			add(path)
		}
		return nil
	})
}

func (d *Discovery) skipped(path string) bool {
	for _, dir := range d.skipDirs {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// shouldIgnore checks if a path matches any ignore pattern.
func (d *Discovery) shouldIgnore(relPath string) bool {
	if d.matchesAnyPattern(relPath, d.ignorePatterns) {
		return true
	}

	// "node_modules" should match pattern "node_modules/**"
	return d.matchesAnyPattern(relPath+"/**", d.ignorePatterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func (d *Discovery) matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// "**/*.erb" also matches "index.erb" at the root.
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if !strings.HasPrefix(cp.pattern, "**/") {
				continue
			}
			if g, err := glob.Compile(strings.TrimPrefix(cp.pattern, "**/"), '/'); err == nil && g.Match(path) {
				return true
			}
		}
	}

	return false
}

// Load reads the template at path.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read template %s: %w", path, err)
	}
	return newDocument(path, data)
}

// StdinSource reads a single template from r, reported under name.
func StdinSource(name string, r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read template %s from stdin: %w", name, err)
	}
	return newDocument(name, data)
}

func newDocument(path string, data []byte) (Document, error) {
	if !utf8.Valid(data) {
		return Document{}, fmt.Errorf("%w: %s", ErrInvalidEncoding, path)
	}
	return Document{Path: path, Contents: string(data)}, nil
}
