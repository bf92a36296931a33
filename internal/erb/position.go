package erb

import "unicode/utf8"

// Position is a 1-based line and column. Columns count characters, the way
// Ruby analyzers report them.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// PositionOf converts a byte offset in text to a Position.
func PositionOf(text string, offset int) Position {
	if offset > len(text) {
		offset = len(text)
	}

	pos := Position{Line: 1, Column: 1}
	lineStart := 0
	for i := 0; i < offset; i++ {
		if text[i] == '\n' {
			pos.Line++
			lineStart = i + 1
		}
	}
	pos.Column = utf8.RuneCountInString(text[lineStart:offset]) + 1
	return pos
}
