package domain

// Currency is a three-letter ISO currency code.
type Currency string

// MajorCurrencies is the default currency universe, eight majors.
// The slice order is the canonical tie-break order used when two
// currencies end a ranking cycle with equal scores.
var MajorCurrencies = []Currency{"USD", "EUR", "GBP", "JPY", "CHF", "CAD", "AUD", "NZD"}

// CurrencyRank is one row of a completed strength ranking.
type CurrencyRank struct {
	Currency Currency
	Score    int // Aggregate divergence score across all pairs
	Rank     int // 1 = strongest
}
