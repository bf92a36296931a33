package erb

import "regexp"

// HelperPrefix is laid in front of the content of a raw output tag (`<%==`)
// so the projected code is a call to Rails' raw helper.
const HelperPrefix = "raw "

// tagPattern matches one ERB tag. Group 1 is the opening modifier, group 2
// the embedded code. The trailing trim modifier is left out of group 2 by the
// non-greedy content match.
var tagPattern = regexp.MustCompile(`(?s)<%(==|[-=])?(.*?)-?%>`)

// Region is the half-open byte range [Start, End) of embedded code inside a
// template.
type Region struct {
	Start int
	End   int

	// Helper is set for raw output tags (`<%==`). Their code is projected
	// as an argument of HelperPrefix.
	Helper bool
}

// Len returns the number of bytes covered by the region.
func (r Region) Len() int {
	return r.End - r.Start
}

// Content returns the region's code in text.
func (r Region) Content(text string) string {
	return text[r.Start:r.End]
}

// IsComment reports whether the region is an ERB comment (`<%# ... %>`).
func (r Region) IsComment(text string) bool {
	return r.End > r.Start && text[r.Start] == '#'
}

// Scan returns the regions of all ERB tags in text, in order.
//
// Offsets always refer to text itself. A raw output tag is reported with
// Helper set instead of being rewritten, so no offset ever shifts. A template
// without tags yields an empty slice.
func Scan(text string) []Region {
	matches := tagPattern.FindAllStringSubmatchIndex(text, -1)
	regions := make([]Region, 0, len(matches))

	for _, m := range matches {
		regions = append(regions, Region{
			Start:  m[4],
			End:    m[5],
			Helper: m[2] >= 0 && text[m[2]:m[3]] == "==",
		})
	}

	return regions
}
