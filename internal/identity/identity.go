// Package identity derives the natural keys used for deduplication and
// idempotent writes: a canonical form of the event's detail link and a
// deterministic slug. Both functions are pure; identical inputs always
// produce identical output across runs.
package identity

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrBadLink reports a detail link that cannot be parsed as a URL with
// a host. The record may still be persisted keyed by slug.
var ErrBadLink = fmt.Errorf("identity: unparseable link")

// Identity is the pair of natural keys for one event record.
type Identity struct {
	CanonicalLink string // empty when the source has no usable link
	Slug          string
}

// Resolver configures slug disambiguation for sources whose titles
// collide across distinct events.
type Resolver struct {
	// DisambiguateByDate appends "-YYYY-MM-DD" to title-derived slugs.
	// Recurring series at the same venue need this to stay distinct.
	DisambiguateByDate bool

	// DisambiguateByHash appends a short stable hash of the raw link
	// instead of the date. Used when the source repeats titles on the
	// same day (multiple showtimes).
	DisambiguateByHash bool
}

var (
	nonSlugRe     = regexp.MustCompile(`[^a-z0-9]+`)
	hasLetterRe   = regexp.MustCompile(`[a-zA-Z]`)
	apostropheRe  = regexp.MustCompile("[’'`]")
	slugFoldXform = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Resolve computes the canonical link and slug for a record. rawLink may
// be empty; startDate may be zero when the date is still unknown.
func (r Resolver) Resolve(rawLink, title string, startDate time.Time) (Identity, error) {
	var id Identity

	canonical, err := CanonicalLink(rawLink)
	if err == nil {
		id.CanonicalLink = canonical
	}

	// A link whose final path segment carries at least one letter is
	// treated as an already-stable slug and reused.
	if seg := lastPathSegment(id.CanonicalLink); seg != "" && hasLetterRe.MatchString(seg) {
		id.Slug = strings.ToLower(seg)
		return id, err
	}

	slug := Slugify(title)
	switch {
	case r.DisambiguateByDate && !startDate.IsZero():
		slug = fmt.Sprintf("%s-%s", slug, startDate.Format("2006-01-02"))
	case r.DisambiguateByHash && rawLink != "":
		slug = fmt.Sprintf("%s-%s", slug, shortHash(rawLink))
	}
	id.Slug = slug

	return id, err
}

// CanonicalLink normalizes a URL into the form used as the dedup key:
// https scheme, lowercase host, no trailing slash, no query or fragment.
func CanonicalLink(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrBadLink
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", ErrBadLink
	}
	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	return u.String(), nil
}

// Slugify folds a title into an identifier-safe slug: unicode accents
// stripped, "&" spelled out, every run of non [a-z0-9] collapsed to a
// single hyphen.
func Slugify(title string) string {
	s := strings.TrimSpace(title)
	if folded, _, err := transform.String(slugFoldXform, s); err == nil {
		s = folded
	}
	s = apostropheRe.ReplaceAllString(s, "")
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "&", " and ")
	s = nonSlugRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func lastPathSegment(link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	segs := strings.Split(path, "/")
	return segs[len(segs)-1]
}

func shortHash(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}
