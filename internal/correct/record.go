// Package correct writes analyzer auto-corrections back into ERB templates.
package correct

import (
	"sync"

	"github.com/mvp-joe/ruumba/internal/erb"
)

// ContentSource yields a template's original contents, reading them at most once.
type ContentSource interface {
	Contents() (string, error)
}

type literal string

func (l literal) Contents() (string, error) { return string(l), nil }

// Literal wraps contents already in memory.
func Literal(contents string) ContentSource {
	return literal(contents)
}

type lazy struct {
	once     sync.Once
	load     func() (string, error)
	contents string
	err      error
}

func (l *lazy) Contents() (string, error) {
	l.once.Do(func() {
		l.contents, l.err = l.load()
	})
	return l.contents, l.err
}

// Lazy defers loading until the contents are first needed; later calls return
// the first result.
func Lazy(load func() (string, error)) ContentSource {
	return &lazy{load: load}
}

// Record links a template to the projection handed to the analyzer.
type Record struct {
	// Original is the template path as the user named it.
	Original string

	// Generated is the projection path inside the work directory. Empty in
	// stdin mode.
	Generated string

	// Marker frames every tag in the projection.
	Marker erb.Marker

	// Digest is erb.Digest of the projection as written.
	Digest string

	// Contents is the template text the projection was built from.
	Contents ContentSource
}

// Result is what happened to one template.
type Result struct {
	Path    string
	Outcome erb.Outcome
	Err     error
}
