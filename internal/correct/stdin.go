package correct

import (
	"strings"

	"github.com/mvp-joe/ruumba/internal/erb"
	"github.com/mvp-joe/ruumba/internal/logger"
)

// SourceSeparator is the line RuboCop prints between its report and the
// corrected source when checking stdin with auto-correct.
const SourceSeparator = "===================="

// StdinCorrector rewrites analyzer output produced for a template read from
// stdin.
type StdinCorrector struct {
	replacer Replacer
	log      logger.Logger
}

// NewStdinCorrector creates a StdinCorrector that reports through log.
func NewStdinCorrector(log logger.Logger) *StdinCorrector {
	return &StdinCorrector{log: log}
}

// Correct replaces the corrected projection that follows SourceSeparator in
// stdout or stderr with the corrected template. When the analyzer changed
// nothing, or a correction cannot be mapped back, the original template is
// emitted instead so the caller never receives projected code.
func (c *StdinCorrector) Correct(stdout, stderr string, record Record) (string, string, Result) {
	result := Result{Path: record.Original, Outcome: erb.Pending}

	rewrite := func(output string) string {
		prefix, source, ok := splitSource(output)
		if !ok {
			return output
		}

		out, outcome, err := c.replacer.Handle(record, source)
		result.Outcome, result.Err = outcome, err

		if outcome != erb.Corrected {
			if err != nil {
				c.log.Warn("auto-correction skipped", "path", record.Original, "error", err)
			}
			original, loadErr := record.Contents.Contents()
			if loadErr != nil {
				return output
			}
			out = original
		}

		return prefix + "\n" + out
	}

	return rewrite(stdout), rewrite(stderr), result
}

// splitSource splits output after the last separator line. prefix ends with
// the separator; source is everything after the newline that ends it.
func splitSource(output string) (prefix, source string, ok bool) {
	idx := strings.LastIndex(output, SourceSeparator)
	if idx < 0 {
		return "", "", false
	}

	end := idx + len(SourceSeparator)
	if end < len(output) && output[end] != '\n' {
		return "", "", false
	}

	prefix = output[:end]
	if end < len(output) {
		source = output[end+1:]
	}
	return prefix, source, true
}
