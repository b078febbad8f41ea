// Package tagging maps event text onto a bounded, externally-owned tag
// vocabulary. Classification is rule-driven: an ordered list of regexp
// rules and organizer substrings vote for tag slugs, the result is
// intersected with the allowed vocabulary, seasonal tags are gated by
// their validity window, and the set is trimmed to a per-event cap with
// surviving seasonal matches always forced in.
package tagging

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Window is an inclusive date range in which a seasonal tag is valid.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether d (a calendar date) falls inside the window.
func (w Window) Contains(d time.Time) bool {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	from := time.Date(w.From.Year(), w.From.Month(), w.From.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(w.To.Year(), w.To.Month(), w.To.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(from) && !day.After(to)
}

// Rule pairs a regexp pattern with the tag slugs it votes for.
type Rule struct {
	Pattern string
	Tags    []string
}

// Vocabulary describes the externally supplied tag universe for one
// deployment: which slugs exist, how many an event may carry, which win
// when over the cap, and which are seasonal.
type Vocabulary struct {
	Allowed  []string
	Priority []string
	MaxTags  int
	Seasonal map[string]Window
}

// Classifier evaluates compiled rules against event text. It is
// immutable after New and safe for concurrent use.
type Classifier struct {
	rules      []compiledRule
	organizers []organizerRule
	allowed    map[string]struct{}
	priority   map[string]int
	seasonal   map[string]Window
	maxTags    int
}

type compiledRule struct {
	re   *regexp.Regexp
	tags []string
}

type organizerRule struct {
	needle string
	tags   []string
}

// New compiles the rule set. Rules keep their declaration order, which
// breaks priority ties. Organizer needles are matched as lowercase
// substrings, the way the per-venue scripts matched resident
// organizations.
func New(vocab Vocabulary, rules []Rule, organizers map[string][]string) (*Classifier, error) {
	c := &Classifier{
		allowed:  make(map[string]struct{}, len(vocab.Allowed)),
		priority: make(map[string]int, len(vocab.Priority)),
		seasonal: vocab.Seasonal,
		maxTags:  vocab.MaxTags,
	}
	if c.maxTags <= 0 {
		c.maxTags = 2
	}
	for _, slug := range vocab.Allowed {
		c.allowed[slug] = struct{}{}
	}
	for i, slug := range vocab.Priority {
		c.priority[slug] = i
	}
	for i, r := range rules {
		re, err := regexp.Compile(`(?i)` + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("tagging: rule %d (%q): %w", i, r.Pattern, err)
		}
		c.rules = append(c.rules, compiledRule{re: re, tags: r.Tags})
	}
	needles := make([]string, 0, len(organizers))
	for needle := range organizers {
		needles = append(needles, needle)
	}
	sort.Strings(needles)
	for _, needle := range needles {
		c.organizers = append(c.organizers, organizerRule{
			needle: strings.ToLower(needle),
			tags:   organizers[needle],
		})
	}
	return c, nil
}

// Classify returns at most MaxTags tag slugs for the given event text,
// ordered by priority. An empty result is a valid outcome, not an
// error: most events simply match nothing.
func (c *Classifier) Classify(title, description string, startDate time.Time) []string {
	text := strings.ToLower(strings.TrimSpace(title + " " + description))
	if text == "" {
		return nil
	}

	// Candidates keep first-match order so that priority ties resolve
	// by declaration order, run after run.
	var candidates []string
	seen := make(map[string]struct{})
	vote := func(tags []string) {
		for _, t := range tags {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			candidates = append(candidates, t)
		}
	}
	for _, r := range c.rules {
		if r.re.MatchString(text) {
			vote(r.tags)
		}
	}
	for _, org := range c.organizers {
		if strings.Contains(text, org.needle) {
			vote(org.tags)
		}
	}

	var seasonal, regular []string
	for _, slug := range candidates {
		// The classifier never invents tags: anything outside the
		// vocabulary is discarded.
		if _, ok := c.allowed[slug]; !ok {
			continue
		}
		if win, ok := c.seasonal[slug]; ok {
			if !win.Contains(startDate) {
				continue
			}
			seasonal = append(seasonal, slug)
			continue
		}
		regular = append(regular, slug)
	}

	c.sortByPriority(seasonal)
	c.sortByPriority(regular)

	// Seasonal survivors are always kept, displacing the lowest-priority
	// regular picks as needed to stay within the cap.
	result := make([]string, 0, c.maxTags)
	for _, s := range seasonal {
		if len(result) == c.maxTags {
			break
		}
		result = append(result, s)
	}
	for _, s := range regular {
		if len(result) == c.maxTags {
			break
		}
		result = append(result, s)
	}
	return result
}

func (c *Classifier) sortByPriority(slugs []string) {
	rank := func(slug string) int {
		if p, ok := c.priority[slug]; ok {
			return p
		}
		return len(c.priority)
	}
	// Insertion sort keeps equal-rank slugs in their original
	// (declaration) order.
	for i := 1; i < len(slugs); i++ {
		for j := i; j > 0 && rank(slugs[j]) < rank(slugs[j-1]); j-- {
			slugs[j], slugs[j-1] = slugs[j-1], slugs[j]
		}
	}
}
