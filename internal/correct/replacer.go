package correct

import (
	"fmt"

	"github.com/mvp-joe/ruumba/internal/erb"
)

// Replacer turns an analyzer's corrected projection into a corrected template.
type Replacer struct{}

// Handle applies corrected to the record's template. The returned text is
// only meaningful when the outcome is erb.Corrected. Unchanged output never
// loads the template contents.
func (Replacer) Handle(record Record, corrected string) (string, erb.Outcome, error) {
	if erb.Digest(corrected) == record.Digest {
		return "", erb.Unchanged, nil
	}

	original, err := record.Contents.Contents()
	if err != nil {
		return "", erb.Aborted, fmt.Errorf("failed to load %s: %w", record.Original, err)
	}

	out, outcome, err := erb.Correct(original, corrected, record.Marker, record.Digest)
	if err != nil {
		return "", outcome, fmt.Errorf("failed to correct %s: %w", record.Original, err)
	}

	return out, outcome, nil
}
