package enrichment

import "github.com/Krumil/hacksignal/internal/domain"

// RateProvider converts between currencies at extraction time. Injectable so
// a live-rate source can replace the fixed table without touching the
// extraction logic.
type RateProvider interface {
	Rate(from, to string) (float64, error)
}

// FixedRates is the baseline conversion table, quoted in USD per unit.
type FixedRates map[string]float64

// NewFixedRates returns the built-in table.
func NewFixedRates() FixedRates {
	return FixedRates{
		"USD": 1.0,
		"ETH": 2800.0,
		"BTC": 45000.0,
		"EUR": 0.92,
	}
}

// Rate returns the multiplier that converts an amount in `from` into `to`.
// Only USD targets are supported by the fixed table.
func (r FixedRates) Rate(from, to string) (float64, error) {
	fromRate, ok := r[from]
	if !ok {
		return 0, &domain.UnsupportedCurrencyError{Currency: from}
	}
	if to == from {
		return 1.0, nil
	}
	toRate, ok := r[to]
	if !ok {
		return 0, &domain.UnsupportedCurrencyError{Currency: to}
	}
	return fromRate / toRate, nil
}
