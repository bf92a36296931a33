package erb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan_Delimiters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []Region
	}{
		{
			name: "output tag",
			text: "<%= a %>",
			want: []Region{{Start: 3, End: 6}},
		},
		{
			name: "statement tag",
			text: "<% a %>",
			want: []Region{{Start: 2, End: 5}},
		},
		{
			name: "trim modifiers are not content",
			text: "<%- a -%>",
			want: []Region{{Start: 3, End: 6}},
		},
		{
			name: "raw output tag",
			text: "<%== a %>",
			want: []Region{{Start: 4, End: 7, Helper: true}},
		},
		{
			name: "multi-line content",
			text: "<%\nfoo\n%>",
			want: []Region{{Start: 2, End: 7}},
		},
		{
			name: "non-greedy across tags",
			text: "<% a %> b <% c %>",
			want: []Region{{Start: 2, End: 5}, {Start: 12, End: 15}},
		},
		{
			name: "adjacent tags",
			text: "<% a %><% b %>",
			want: []Region{{Start: 2, End: 5}, {Start: 9, End: 12}},
		},
		{
			name: "empty tag",
			text: "<%%>",
			want: []Region{{Start: 2, End: 2}},
		},
		{
			name: "no tags",
			text: "<h1>Dead or alive, you're coming with me.</h1>",
			want: []Region{},
		},
		{
			name: "unterminated tag",
			text: "<% a",
			want: []Region{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Scan(tt.text))
		})
	}
}

func TestScan_CommentIsRegularRegion(t *testing.T) {
	t.Parallel()

	text := "<%# a comment %>"
	regions := Scan(text)

	require.Len(t, regions, 1)
	assert.Equal(t, "# a comment ", regions[0].Content(text))
	assert.True(t, regions[0].IsComment(text))
}

func TestScan_Deterministic(t *testing.T) {
	t.Parallel()

	text := "<ul>\n<% items.each do |i| %>\n  <li><%= i %></li><%== i.html %>\n<% end %>\n</ul>\n"

	first := Scan(text)
	second := Scan(text)

	assert.Equal(t, first, second)
	require.Len(t, first, 4)
	for i := 1; i < len(first); i++ {
		assert.Less(t, first[i-1].End, first[i].Start, "regions must be ordered and disjoint")
	}
}

func TestRegion_Len(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, Region{Start: 2, End: 5}.Len())
	assert.Equal(t, 0, Region{Start: 2, End: 2}.Len())
}

func TestPositionOf(t *testing.T) {
	t.Parallel()

	text := "ab\ncdé\nf"

	assert.Equal(t, Position{Line: 1, Column: 1}, PositionOf(text, 0))
	assert.Equal(t, Position{Line: 1, Column: 3}, PositionOf(text, 2))
	assert.Equal(t, Position{Line: 2, Column: 1}, PositionOf(text, 3))
	// é is two bytes but one column
	assert.Equal(t, Position{Line: 3, Column: 1}, PositionOf(text, 8))
	assert.Equal(t, Position{Line: 3, Column: 2}, PositionOf(text, 100))
}
