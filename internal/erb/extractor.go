package erb

import (
	"strings"
	"unicode/utf8"
)

// StatementSeparator is written between two tags that share a line so their
// code parses as separate statements.
const StatementSeparator = ';'

// Extract builds the Ruby projection of an ERB template.
//
// With an empty marker the projection is direct: it has the same number of
// characters as text, newlines at the same places, and every piece of code at
// its original line and column. With a marker, each tag's content is framed
// by marker lines (see Marker.Token) so Replace can find it again.
func Extract(text string, marker Marker) string {
	out := make([]byte, 0, len(text))
	cursor := 0

	for i, region := range Scan(text) {
		if region.Start > cursor {
			gap := text[cursor:region.Start]
			at := len(out)
			out = appendBlank(out, gap)

			// Two tags on one line need a separator or their code runs together.
			if cursor > 0 && strings.IndexByte(gap, '\n') < 0 {
				out[at] = StatementSeparator
			}

			// The opener `<%==` is blanked as four columns; the helper call goes there.
			if region.Helper && marker == "" {
				copy(out[len(out)-len(HelperPrefix):], HelperPrefix)
			}
		}

		content := region.Content(text)
		if region.IsComment(text) {
			content = blankComment(content)
		}

		if marker == "" {
			out = append(out, content...)
		} else {
			token := marker.Token(i + 1)
			out = appendMarkerLine(out, token)
			if region.Helper {
				out = append(out, HelperPrefix...)
			}
			out = append(out, content...)
			out = appendMarkerLine(out, token)
		}

		cursor = region.End
	}

	out = appendBlank(out, text[cursor:])
	return string(out)
}

// TrimTrailingSpace removes spaces and tabs at the end of every line of a
// projection. Code keeps its line and column; only the blanked tail of each
// line goes away.
func TrimTrailingSpace(projection string) string {
	lines := strings.Split(projection, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// appendMarkerLine appends "\n<token>\n".
func appendMarkerLine(out []byte, token string) []byte {
	out = append(out, '\n')
	out = append(out, token...)
	return append(out, '\n')
}

// appendBlank appends s with every character except '\n' replaced by a space.
func appendBlank(out []byte, s string) []byte {
	for _, r := range s {
		if r == '\n' {
			out = append(out, '\n')
		} else {
			out = append(out, ' ')
		}
	}
	return out
}

// blankComment blanks a comment tag's content, keeping line endings.
func blankComment(s string) string {
	var b strings.Builder
	b.Grow(utf8.RuneCountInString(s))
	for _, r := range s {
		switch r {
		case '\r', '\n':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}
