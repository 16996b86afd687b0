package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/Krumil/hacksignal/internal/domain"
)

// FormatMessage renders the shared message template used by both immediate
// and digest deliveries. Prize value, duration and currency are mandatory;
// deadline and source link are included when present.
func FormatMessage(event domain.EnrichedEvent) (string, error) {
	var missing []string
	if event.PrizeValueUSD < 0 {
		missing = append(missing, "prize_value_usd")
	}
	if event.DurationHours <= 0 {
		missing = append(missing, "duration_hours")
	}
	if event.CurrencyDetected == "" {
		missing = append(missing, "currency_detected")
	}
	if len(missing) > 0 {
		return "", &domain.ValidationError{Missing: missing}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Prize: %.2f USD (%s)", event.PrizeValueUSD, event.CurrencyDetected)
	fmt.Fprintf(&sb, " | Duration: %dh", event.DurationHours)
	fmt.Fprintf(&sb, " | ROI: %.2f USD/h", event.ROIScore)
	if event.RegistrationDeadline != nil {
		fmt.Fprintf(&sb, " | Deadline: %s", event.RegistrationDeadline.UTC().Format(time.RFC3339))
	}
	if event.SourceURL != "" {
		fmt.Fprintf(&sb, " | %s", event.SourceURL)
	}

	return sb.String(), nil
}
