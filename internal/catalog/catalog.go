package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Hashtag is a tracked hashtag with an editorial relevance tier.
type Hashtag struct {
	Tag       string `json:"tag"`
	Relevance string `json:"relevance"` // High, Medium or Low
}

// PrizePattern is one prize-detection rule. Rules are evaluated in declared
// order and the first match wins.
type PrizePattern struct {
	Pattern    string  `json:"pattern"`
	Currency   string  `json:"currency"`
	Multiplier float64 `json:"multiplier,omitempty"` // e.g. 1000 for "k" shorthand
}

// DurationPattern is one duration-detection rule. Either HoursMultiplier
// applies to the captured number, or FixedHours is used when the rule
// captures nothing (e.g. "weekend sprint").
type DurationPattern struct {
	Pattern         string `json:"pattern"`
	HoursMultiplier int    `json:"hours_multiplier,omitempty"`
	FixedHours      int    `json:"fixed_hours,omitempty"`
}

// Catalog is the static keyword and extraction-pattern configuration.
// Loaded once per run, read-only afterwards.
type Catalog struct {
	Hashtags         []Hashtag         `json:"hashtags"`
	Keywords         []string          `json:"keywords"`
	PrizePatterns    []PrizePattern    `json:"prize_patterns"`
	DurationPatterns []DurationPattern `json:"duration_patterns"`
}

// Generic hackathon indicators checked on every post in addition to the
// catalog keywords.
var Indicators = []string{"hackathon", "hack", "challenge", "competition", "sprint"}

// indicatorWeights mirrors the editorial weighting for the built-in terms.
var indicatorWeights = map[string]float64{
	"hackathon":   1.0,
	"hack":        0.8,
	"challenge":   0.8,
	"competition": 0.8,
	"sprint":      0.8,
	"bounty":      1.0,
	"contest":     0.6,
}

// DefaultWeight is applied to detected terms with no catalog entry.
const DefaultWeight = 0.4

// Load reads and parses a catalog JSON file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	return &c, nil
}

// KeywordWeights builds the keyword-to-weight map used by the scorer.
// Hashtag tiers: High=2.0, Medium=1.2, anything else 0.8. Catalog keywords
// are a flat 1.6. Built-in indicators keep their fixed weights.
func (c *Catalog) KeywordWeights() map[string]float64 {
	weights := make(map[string]float64, len(c.Hashtags)+len(c.Keywords)+len(indicatorWeights))

	for _, h := range c.Hashtags {
		tag := strings.ToLower(h.Tag)
		switch h.Relevance {
		case "High":
			weights[tag] = 2.0
		case "Medium":
			weights[tag] = 1.2
		default:
			weights[tag] = 0.8
		}
	}

	for _, kw := range c.Keywords {
		weights[strings.ToLower(kw)] = 1.6
	}

	for term, w := range indicatorWeights {
		weights[term] = w
	}

	return weights
}

// SearchTerms returns every term the scorer should look for in post text:
// catalog keywords first, then hashtags, then the generic indicators.
func (c *Catalog) SearchTerms() []string {
	terms := make([]string, 0, len(c.Keywords)+len(c.Hashtags)+len(Indicators))
	terms = append(terms, c.Keywords...)
	for _, h := range c.Hashtags {
		terms = append(terms, h.Tag)
	}
	terms = append(terms, Indicators...)
	return terms
}

// DefaultPrizePatterns is the built-in prize rule list, used when the catalog
// file does not declare its own. The "k" shorthand rules are declared before
// the plain amount rules so that "$10.8k" resolves to 10800 and not 10.
// Overlap between rules is resolved purely by declaration order.
func DefaultPrizePatterns() []PrizePattern {
	return []PrizePattern{
		{Pattern: `\$(\d+(?:\.\d+)?)[kK]\b`, Currency: "USD", Multiplier: 1000},
		{Pattern: `\$(\d+(?:,\d{3})*(?:\.\d+)?)`, Currency: "USD"},
		{Pattern: `€(\d+(?:\.\d+)?)[kK]\b`, Currency: "EUR", Multiplier: 1000},
		{Pattern: `€(\d+(?:,\d{3})*(?:\.\d+)?)`, Currency: "EUR"},
		{Pattern: `(?i)(\d+(?:\.\d+)?)\s*ETH\b`, Currency: "ETH"},
		{Pattern: `(?i)(\d+(?:\.\d+)?)\s*BTC\b`, Currency: "BTC"},
		{Pattern: `(\d+(?:,\d{3})*)\s*USD\b`, Currency: "USD"},
		{Pattern: `(?i)(\d+(?:,\d{3})*)\s*dollars?\b`, Currency: "USD"},
	}
}

// DefaultDurationPatterns is the built-in duration rule list. First match
// wins; the later hackathon-specific rules are shadowed by the general ones
// on purpose, preserving the original list.
func DefaultDurationPatterns() []DurationPattern {
	return []DurationPattern{
		{Pattern: `(?i)(\d+)[\s-]*hour`, HoursMultiplier: 1},
		{Pattern: `(?i)(\d+)[\s-]*day`, HoursMultiplier: 24},
		{Pattern: `(?i)weekend\s*sprint`, FixedHours: 48},
		{Pattern: `(?i)weekend\s*hackathon`, FixedHours: 48},
		{Pattern: `(?i)(\d+)[\s-]*hour\s*hackathon`, HoursMultiplier: 1},
		{Pattern: `(?i)(\d+)[\s-]*day\s*hackathon`, HoursMultiplier: 24},
	}
}
