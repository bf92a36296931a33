package erb

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMarkerNotFound indicates the analyzer output lost the framing of a
	// tag, so its corrected code cannot be located.
	ErrMarkerNotFound = errors.New("marker not found in corrected output")

	// ErrNoMarker indicates Replace was called without a marker.
	ErrNoMarker = errors.New("marker is required")
)

// Outcome is the terminal state of a correction.
type Outcome int

const (
	Pending Outcome = iota
	Unchanged
	Corrected
	Aborted
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Unchanged:
		return "unchanged"
	case Corrected:
		return "corrected"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Correct applies an analyzer's corrected marked projection to the original
// template. digest is the Digest of the marked projection that was handed to
// the analyzer; when the corrected text has the same digest nothing changed.
//
// The returned text is the original on Unchanged and Aborted.
func Correct(original, corrected string, marker Marker, digest string) (string, Outcome, error) {
	if Digest(corrected) == digest {
		return original, Unchanged, nil
	}

	out, err := Replace(original, corrected, marker)
	if err != nil {
		return original, Aborted, err
	}

	return out, Corrected, nil
}

// Replace rebuilds the template from original, taking each tag's code from
// the framed segment of corrected that carries the tag's marker token.
//
// Text outside tags is copied from original verbatim. Comment tags keep their
// original content. If any tag's framing is missing, Replace returns an error
// wrapping ErrMarkerNotFound and no text.
func Replace(original, corrected string, marker Marker) (string, error) {
	if marker == "" {
		return "", ErrNoMarker
	}

	var b strings.Builder
	b.Grow(len(original))
	cursor := 0

	for i, region := range Scan(original) {
		token := marker.Token(i + 1)
		inner, ok := framed(corrected, token)
		if !ok {
			return "", fmt.Errorf("%w: tag %d (%s)", ErrMarkerNotFound, i+1, token)
		}

		gap := original[cursor:region.Start]

		switch {
		case region.IsComment(original):
			b.WriteString(gap)
			b.WriteString(region.Content(original))
		case region.Helper:
			if code, ok := stripHelper(inner); ok {
				b.WriteString(gap)
				b.WriteString(code)
			} else {
				// The helper call was rewritten; fall back to a plain output tag.
				b.WriteString(gap[:len(gap)-1])
				if inner != "" && !isSpace(inner[0]) {
					b.WriteByte(' ')
				}
				b.WriteString(inner)
			}
		default:
			b.WriteString(gap)
			b.WriteString(inner)
		}

		cursor = region.End
	}

	b.WriteString(original[cursor:])
	return b.String(), nil
}

// framed returns the text between the first two lines of text that consist
// of token alone. The newline that ends the opening line and the one that
// starts the closing line belong to the framing.
func framed(text, token string) (string, bool) {
	open, ok := findLine(text, token, 0)
	if !ok {
		return "", false
	}

	from := open + len(token) + 1
	if from > len(text) {
		return "", false
	}

	end, ok := findLine(text, token, from)
	if !ok {
		return "", false
	}

	if end == from {
		return "", true
	}
	return text[from : end-1], true
}

// findLine returns the offset of the first line at or after from that is
// exactly token.
func findLine(text, token string, from int) (int, bool) {
	for from <= len(text) {
		idx := strings.Index(text[from:], token)
		if idx < 0 {
			return 0, false
		}

		pos := from + idx
		after := pos + len(token)
		if (pos == 0 || text[pos-1] == '\n') && (after == len(text) || text[after] == '\n') {
			return pos, true
		}

		from = pos + 1
	}
	return 0, false
}

func stripHelper(code string) (string, bool) {
	if strings.HasPrefix(code, HelperPrefix) {
		return code[len(HelperPrefix):], true
	}
	if code == strings.TrimSpace(HelperPrefix) {
		return "", true
	}
	return "", false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
