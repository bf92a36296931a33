package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/ruumba/internal/erb"
)

func TestCache_ExtractMatchesErb(t *testing.T) {
	t.Parallel()

	cache, err := NewCache(1 << 20)
	require.NoError(t, err)
	defer cache.Close()

	text := "<p><%= a %></p>\n<% b %>"
	marker := erb.NewMarker("m")

	assert.Equal(t, erb.Extract(text, ""), cache.Extract(text, ""))
	assert.Equal(t, erb.Extract(text, marker), cache.Extract(text, marker))
	// Served from the cache the second time.
	assert.Equal(t, erb.Extract(text, ""), cache.Extract(text, ""))
}

func TestCache_KeyIncludesMarker(t *testing.T) {
	t.Parallel()

	cache, err := NewCache(1 << 20)
	require.NoError(t, err)
	defer cache.Close()

	text := "<% a %>"
	direct := cache.Extract(text, "")
	marked := cache.Extract(text, erb.NewMarker("x"))

	assert.NotEqual(t, direct, marked)
}

func TestCache_Disabled(t *testing.T) {
	t.Parallel()

	cache, err := NewCache(0)
	require.NoError(t, err)
	defer cache.Close()

	assert.Equal(t, "   a   ", cache.Extract("<% a %>", ""))
	hits, misses := cache.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}

func TestCache_NilIsUsable(t *testing.T) {
	t.Parallel()

	var cache *Cache

	assert.Equal(t, "   a   ", cache.Extract("<% a %>", ""))
	assert.NotPanics(t, cache.Close)
}
