package instruments

import (
	"math"
	"strings"

	"fxHedgeBot/internal/domain"
)

// Instrument describes one tradable FX pair.
type Instrument struct {
	Name             string          // Broker naming, e.g. "EUR_USD"
	Base             domain.Currency // First currency of the pair
	Quote            domain.Currency // Second currency of the pair
	PipLocation      int             // Power of ten of one pip (-4, or -2 for JPY quotes)
	DisplayPrecision int             // Decimal places the broker accepts for prices
}

// PipSize returns the price-unit size of one pip.
func (i Instrument) PipSize() float64 {
	return math.Pow(10, float64(i.PipLocation))
}

// PipsToPrice converts a pip distance into price units.
func (i Instrument) PipsToPrice(pips float64) float64 {
	return pips * i.PipSize()
}

// PriceToPips converts a price distance into pips.
func (i Instrument) PriceToPips(price float64) float64 {
	return price / i.PipSize()
}

// supported is the tradable universe: every combination of the eight
// majors that the broker quotes, in the broker's canonical ordering.
// Combinations missing here (e.g. CHF_GBP) exist only inverted.
var supported = buildTable([]string{
	"EUR_USD", "GBP_USD", "AUD_USD", "NZD_USD",
	"USD_JPY", "USD_CHF", "USD_CAD",
	"EUR_GBP", "EUR_JPY", "EUR_CHF", "EUR_CAD", "EUR_AUD", "EUR_NZD",
	"GBP_JPY", "GBP_CHF", "GBP_CAD", "GBP_AUD", "GBP_NZD",
	"AUD_JPY", "AUD_CHF", "AUD_CAD", "AUD_NZD",
	"NZD_JPY", "NZD_CHF", "NZD_CAD",
	"CAD_JPY", "CAD_CHF",
	"CHF_JPY",
})

func buildTable(names []string) map[string]Instrument {
	table := make(map[string]Instrument, len(names))
	for _, name := range names {
		base, quote, ok := Split(name)
		if !ok {
			continue
		}
		pipLoc := -4
		precision := 5
		if quote == "JPY" {
			pipLoc = -2
			precision = 3
		}
		table[name] = Instrument{
			Name:             name,
			Base:             base,
			Quote:            quote,
			PipLocation:      pipLoc,
			DisplayPrecision: precision,
		}
	}
	return table
}

// Split parses an underscore-separated pair name into its currencies.
func Split(name string) (base, quote domain.Currency, ok bool) {
	parts := strings.SplitN(name, "_", 2)
	if len(parts) != 2 || len(parts[0]) != 3 || len(parts[1]) != 3 {
		return "", "", false
	}
	return domain.Currency(parts[0]), domain.Currency(parts[1]), true
}

// Lookup returns the metadata for a tradable instrument name.
func Lookup(name string) (Instrument, bool) {
	inst, ok := supported[name]
	return inst, ok
}

// Names returns every supported instrument name. The order is unspecified.
func Names() []string {
	names := make([]string, 0, len(supported))
	for name := range supported {
		names = append(names, name)
	}
	return names
}

// Pairs returns every supported instrument formed from the given currency
// set, in a deterministic order (base-major iteration over the set).
func Pairs(currencies []domain.Currency) []string {
	var names []string
	for _, a := range currencies {
		for _, b := range currencies {
			if a == b {
				continue
			}
			name := string(a) + "_" + string(b)
			if _, ok := supported[name]; ok {
				names = append(names, name)
			}
		}
	}
	return names
}
