package tagging

import (
	"fmt"
	"time"

	"eventsHarvester/internal/config"
)

// FromConfig builds the classifier from the YAML tagging section.
func FromConfig(cfg config.TaggingConfig) (*Classifier, error) {
	seasonal := make(map[string]Window, len(cfg.Seasonal))
	for slug, win := range cfg.Seasonal {
		from, err := time.Parse("2006-01-02", win.From)
		if err != nil {
			return nil, fmt.Errorf("tagging: seasonal %q from: %w", slug, err)
		}
		to, err := time.Parse("2006-01-02", win.To)
		if err != nil {
			return nil, fmt.Errorf("tagging: seasonal %q to: %w", slug, err)
		}
		seasonal[slug] = Window{From: from, To: to}
	}

	rules := make([]Rule, len(cfg.Rules))
	for i, r := range cfg.Rules {
		rules[i] = Rule{Pattern: r.Pattern, Tags: r.Tags}
	}

	vocab := Vocabulary{
		Allowed:  cfg.Allowed,
		Priority: cfg.Priority,
		MaxTags:  cfg.MaxTags,
		Seasonal: seasonal,
	}

	return New(vocab, rules, cfg.Organizers)
}
