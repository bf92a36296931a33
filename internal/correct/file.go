package correct

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mvp-joe/ruumba/internal/erb"
	"github.com/mvp-joe/ruumba/internal/logger"
)

// FileCorrector applies corrections the analyzer made to projection files.
type FileCorrector struct {
	replacer Replacer
	log      logger.Logger
}

// NewFileCorrector creates a FileCorrector that reports through log.
func NewFileCorrector(log logger.Logger) *FileCorrector {
	return &FileCorrector{log: log}
}

// Correct reads each record's generated file and rewrites the original
// template when the analyzer changed it. A failing template does not stop the
// batch; its error is carried in its Result.
func (c *FileCorrector) Correct(ctx context.Context, records []Record) []Result {
	results := make([]Result, 0, len(records))

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Path: record.Original, Outcome: erb.Aborted, Err: err})
			continue
		}

		outcome, err := c.correctOne(record)
		if err != nil {
			c.log.Warn("auto-correction skipped", "path", record.Original, "error", err)
		} else if outcome == erb.Corrected {
			c.log.Debug("template corrected", "path", record.Original)
		}

		results = append(results, Result{Path: record.Original, Outcome: outcome, Err: err})
	}

	return results
}

func (c *FileCorrector) correctOne(record Record) (erb.Outcome, error) {
	data, err := os.ReadFile(record.Generated)
	if err != nil {
		return erb.Aborted, fmt.Errorf("failed to read projection %s: %w", record.Generated, err)
	}

	out, outcome, err := c.replacer.Handle(record, string(data))
	if err != nil || outcome != erb.Corrected {
		return outcome, err
	}

	// Edits outside every tag's framing leave the template as it was.
	if original, _ := record.Contents.Contents(); original == out {
		return erb.Unchanged, nil
	}

	if err := writeFileAtomic(record.Original, []byte(out)); err != nil {
		return erb.Aborted, err
	}

	return erb.Corrected, nil
}

// writeFileAtomic replaces path's contents through a sibling temp file,
// keeping the original permission bits.
func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file for %s: %w", path, err)
	}
	if err := os.Chmod(tempPath, mode); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set mode on %s: %w", path, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		// Clean up temp file on error
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}
