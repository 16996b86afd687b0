package enrichment

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Krumil/hacksignal/internal/catalog"
	"github.com/Krumil/hacksignal/internal/domain"
)

// DefaultDurationHours is assumed when no duration pattern matches
// (weekend-event assumption).
const DefaultDurationHours = 48

type prizeRule struct {
	re         *regexp.Regexp
	currency   string
	multiplier float64
}

type durationRule struct {
	re         *regexp.Regexp
	multiplier int
	fixed      int
}

// Deadline dates are textual: month name, day, optional ordinal suffix,
// 4-digit year.
var deadlineRe = regexp.MustCompile(
	`(?i)(january|february|march|april|may|june|july|august|september|october|november|december)` +
		`\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})`)

// Enricher extracts prize, duration and deadline from post text and computes
// the ROI score. Pure except for logging: two calls on the same post yield
// identical events.
type Enricher struct {
	prizeRules    []prizeRule
	durationRules []durationRule
	rates         RateProvider
	logger        *slog.Logger
}

// New compiles the catalog's pattern lists (or the built-in defaults when
// the catalog omits them) into an Enricher. A malformed pattern fails the
// construction rather than being skipped silently.
func New(cat *catalog.Catalog, rates RateProvider, logger *slog.Logger) (*Enricher, error) {
	prizePatterns := cat.PrizePatterns
	if len(prizePatterns) == 0 {
		prizePatterns = catalog.DefaultPrizePatterns()
	}
	durationPatterns := cat.DurationPatterns
	if len(durationPatterns) == 0 {
		durationPatterns = catalog.DefaultDurationPatterns()
	}

	e := &Enricher{
		rates:  rates,
		logger: logger.With("component", "enricher"),
	}

	for _, p := range prizePatterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile prize pattern %q: %w", p.Pattern, err)
		}
		mult := p.Multiplier
		if mult == 0 {
			mult = 1
		}
		e.prizeRules = append(e.prizeRules, prizeRule{re: re, currency: p.Currency, multiplier: mult})
	}

	for _, p := range durationPatterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile duration pattern %q: %w", p.Pattern, err)
		}
		e.durationRules = append(e.durationRules, durationRule{re: re, multiplier: p.HoursMultiplier, fixed: p.FixedHours})
	}

	return e, nil
}

// Enrich builds the EnrichedEvent for one post. A post with no prize or
// duration mention still enriches: prize defaults to 0 USD and duration to
// 48 hours.
func (e *Enricher) Enrich(post domain.RawPost) (domain.EnrichedEvent, error) {
	if post.ID == "" {
		return domain.EnrichedEvent{}, &domain.InvalidInputError{Field: "id", Reason: "is required"}
	}
	if post.Text == "" {
		return domain.EnrichedEvent{}, &domain.InvalidInputError{Field: "text", Reason: "is required"}
	}

	prize, currency := e.ExtractPrize(post.Text)
	duration := e.ParseDuration(post.Text)

	roi, err := ROI(prize, duration)
	if err != nil {
		return domain.EnrichedEvent{}, err
	}

	return domain.EnrichedEvent{
		PostID:               post.ID,
		PrizeValueUSD:        prize,
		CurrencyDetected:     currency,
		DurationHours:        duration,
		ROIScore:             roi,
		RegistrationDeadline: DetectDeadline(post.Text),
		SourceURL:            post.SourceURL,
	}, nil
}

// ExtractPrize tries the prize rules in declared order and returns the USD
// value and the currency the amount was quoted in. First matching rule wins
// regardless of match position or specificity. No match, an unparsable
// amount, or an unsupported currency all fall back to (0, "USD"): a missing
// prize never aborts enrichment.
func (e *Enricher) ExtractPrize(text string) (float64, string) {
	for _, rule := range e.prizeRules {
		m := rule.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		amount, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			e.logger.Warn("unparsable prize amount", "match", m[1])
			return 0, "USD"
		}
		amount *= rule.multiplier

		rate, err := e.rates.Rate(rule.currency, "USD")
		if err != nil {
			e.logger.Warn("prize currency not convertible, treating as unextracted",
				"currency", rule.currency, "error", err)
			return 0, "USD"
		}

		return amount * rate, rule.currency
	}

	return 0, "USD"
}

// ParseDuration tries the duration rules in declared order and returns the
// event duration in hours. No match defaults to 48.
func (e *Enricher) ParseDuration(text string) int {
	for _, rule := range e.durationRules {
		m := rule.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		if rule.fixed > 0 {
			return rule.fixed
		}
		if len(m) > 1 {
			n, err := strconv.Atoi(m[1])
			if err != nil || n <= 0 {
				continue
			}
			return n * rule.multiplier
		}
	}

	return DefaultDurationHours
}

// DetectDeadline finds a textual registration date and returns it as an
// end-of-day UTC timestamp. Returns nil when no date is present; a deadline
// is optional.
func DetectDeadline(text string) *time.Time {
	m := deadlineRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	month, ok := months[strings.ToLower(m[1])]
	if !ok {
		return nil
	}
	day, err := strconv.Atoi(m[2])
	if err != nil || day < 1 || day > 31 {
		return nil
	}
	year, err := strconv.Atoi(m[3])
	if err != nil {
		return nil
	}

	deadline := time.Date(year, month, day, 23, 59, 59, 0, time.UTC)
	return &deadline
}

// ROI computes the ranking metric: prize value in USD per event hour.
func ROI(prizeUSD float64, durationHours int) (float64, error) {
	if durationHours <= 0 {
		return 0, &domain.InvalidDurationError{Hours: durationHours}
	}
	return prizeUSD / float64(durationHours), nil
}

var months = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}
