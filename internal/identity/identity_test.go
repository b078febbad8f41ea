package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalLink(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"http upgraded", "http://Example.com/events/jazz-night/", "https://example.com/events/jazz-night"},
		{"query stripped", "https://example.com/events/jazz-night?ref=home", "https://example.com/events/jazz-night"},
		{"fragment stripped", "https://example.com/events/jazz-night#tickets", "https://example.com/events/jazz-night"},
		{"host lowercased", "https://EXAMPLE.COM/E/123", "https://example.com/E/123"},
		{"already canonical", "https://example.com/events/jazz-night", "https://example.com/events/jazz-night"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalLink(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalLink_Equivalence(t *testing.T) {
	variants := []string{
		"http://Example.com/events/jazz-night",
		"https://example.com/events/jazz-night/",
		"https://example.com/events/jazz-night?utm_source=feed",
		"https://EXAMPLE.com/events/jazz-night/#about",
	}

	first, err := CanonicalLink(variants[0])
	require.NoError(t, err)
	for _, v := range variants[1:] {
		got, err := CanonicalLink(v)
		require.NoError(t, err)
		assert.Equal(t, first, got, "variant %q", v)
	}
}

func TestCanonicalLink_Bad(t *testing.T) {
	for _, raw := range []string{"", "   ", "not a url", "/relative/path"} {
		_, err := CanonicalLink(raw)
		assert.ErrorIs(t, err, ErrBadLink, "raw %q", raw)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Jazz Night", "jazz-night"},
		{"Food & Wine Festival", "food-and-wine-festival"},
		{"Mo's Bar-B-Q!!!", "mos-bar-b-q"},
		{"  Café Olé  ", "cafe-ole"},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.title), "title %q", tt.title)
	}
}

func TestResolve_ReusesLinkSlug(t *testing.T) {
	var r Resolver
	id, err := r.Resolve("https://example.com/events/Jazz-Night/", "Something Else Entirely", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/events/Jazz-Night", id.CanonicalLink)
	assert.Equal(t, "jazz-night", id.Slug)
}

func TestResolve_NumericSegmentFallsBackToTitle(t *testing.T) {
	var r Resolver
	id, err := r.Resolve("https://example.com/events/48213", "Jazz Night", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "jazz-night", id.Slug)
}

func TestResolve_DateDisambiguation(t *testing.T) {
	r := Resolver{DisambiguateByDate: true}
	start := time.Date(2025, time.June, 14, 0, 0, 0, 0, time.UTC)

	id, err := r.Resolve("", "Jazz Night", start)
	require.ErrorIs(t, err, ErrBadLink)
	assert.Empty(t, id.CanonicalLink)
	assert.Equal(t, "jazz-night-2025-06-14", id.Slug)
}

func TestResolve_HashDisambiguation(t *testing.T) {
	r := Resolver{DisambiguateByHash: true}

	a, err := r.Resolve("https://example.com/e/1111", "Jazz Night", time.Time{})
	require.NoError(t, err)
	b, err := r.Resolve("https://example.com/e/2222", "Jazz Night", time.Time{})
	require.NoError(t, err)

	assert.NotEqual(t, a.Slug, b.Slug)
	assert.Contains(t, a.Slug, "jazz-night-")
}

func TestResolve_Deterministic(t *testing.T) {
	r := Resolver{DisambiguateByHash: true}
	start := time.Date(2025, time.June, 14, 0, 0, 0, 0, time.UTC)

	first, err := r.Resolve("https://example.com/e/1111", "Jazz Night", start)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := r.Resolve("https://example.com/e/1111", "Jazz Night", start)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolve_NoLinkNoDisambiguation(t *testing.T) {
	var r Resolver
	id, err := r.Resolve("", "Jazz Night", time.Time{})
	require.ErrorIs(t, err, ErrBadLink)
	assert.Equal(t, "jazz-night", id.Slug)
}
