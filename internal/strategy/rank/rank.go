// Package rank scores and ranks currencies by relative strength.
//
// The score counts structural breaks of high-volume-efficiency bars: for
// every pair, the bars of the lookback window whose volume efficiency
// (volume over bar range) sits more than 1.5 standard deviations above
// the window mean mark significant levels; a close beyond such a bar's
// high credits the pair's base currency and debits its quote, a close
// below its low does the mirror. Summing over all pairs containing a
// currency yields its aggregate score.
//
// Everything here is a pure function of (history, index, lookback) so
// that backtests replay deterministically.
package rank

import (
	"math"
	"sort"

	"fxHedgeBot/internal/domain"
	"fxHedgeBot/internal/instruments"
)

// DefaultLookback is the window length used when none is configured.
const DefaultLookback = 20

const breakoutStdevMultiple = 1.5

// PairContribution computes the score contribution of one pair at the
// evaluation index: +1 base / -1 quote per structural break up, the
// mirror per break down. Returns zero contributions when the pair has
// insufficient history at the index; that is never an error.
func PairContribution(bars []domain.Bar, index, lookback int) (base, quote int) {
	if lookback <= 0 || index < lookback || index >= len(bars) {
		return 0, 0
	}

	window := bars[index-lookback : index]
	evalClose := bars[index].Close

	// Volume efficiency per window bar; zero-range bars have no defined
	// efficiency and are skipped.
	efficiencies := make([]float64, len(window))
	valid := 0
	var sum float64
	for i, b := range window {
		r := b.Range()
		if r <= 0 {
			efficiencies[i] = -1
			continue
		}
		efficiencies[i] = b.Volume / r
		sum += efficiencies[i]
		valid++
	}
	if valid == 0 {
		return 0, 0
	}

	mean := sum / float64(valid)
	var variance float64
	for _, e := range efficiencies {
		if e < 0 {
			continue
		}
		variance += (e - mean) * (e - mean)
	}
	variance /= float64(valid)
	threshold := mean + breakoutStdevMultiple*math.Sqrt(variance)

	for i, b := range window {
		if efficiencies[i] < 0 || efficiencies[i] <= threshold {
			continue
		}
		switch {
		case evalClose > b.High:
			base++
			quote--
		case evalClose < b.Low:
			base--
			quote++
		}
	}
	return base, quote
}

// Scores aggregates per-pair contributions into per-currency scores.
// history maps instrument names to their bar series; pairs whose name
// does not parse or whose history is too short contribute nothing.
func Scores(history map[string][]domain.Bar, index, lookback int) map[domain.Currency]int {
	scores := make(map[domain.Currency]int)
	for name, bars := range history {
		baseCur, quoteCur, ok := instruments.Split(name)
		if !ok {
			continue
		}
		base, quote := PairContribution(bars, index, lookback)
		scores[baseCur] += base
		scores[quoteCur] += quote
	}
	return scores
}

// Rank produces the full strength ranking of the given currency set at
// the evaluation index. The result is always a permutation of exactly
// the currencies slice: score descending, ties resolved by the slice
// order (the fixed currency-name order of the deployment).
func Rank(history map[string][]domain.Bar, index, lookback int, currencies []domain.Currency) []domain.CurrencyRank {
	scores := Scores(history, index, lookback)

	ranks := make([]domain.CurrencyRank, len(currencies))
	for i, c := range currencies {
		ranks[i] = domain.CurrencyRank{Currency: c, Score: scores[c]}
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].Score > ranks[j].Score
	})
	for i := range ranks {
		ranks[i].Rank = i + 1
	}
	return ranks
}
