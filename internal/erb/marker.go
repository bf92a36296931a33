package erb

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const markerPrefix = "ruumba_"

// Marker frames tag contents in a marked projection. The zero value means
// no framing.
type Marker string

// NewMarker derives a marker from a caller supplied seed. Characters that
// cannot appear in a Ruby identifier are replaced so a marker line parses as
// a bare method call.
func NewMarker(seed string) Marker {
	var b strings.Builder
	b.WriteString(markerPrefix)
	for _, r := range seed {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return Marker(b.String())
}

// NewRandomMarker returns a marker seeded with a random UUID.
func NewRandomMarker() Marker {
	return NewMarker(uuid.NewString())
}

// Token returns the marker line for the index-th tag (1-based).
func (m Marker) Token(index int) string {
	return fmt.Sprintf("%s_%010d", m, index)
}
