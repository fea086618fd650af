package instruments

import "fxHedgeBot/internal/domain"

// Resolution maps a currency pairing onto a tradable instrument.
// Inverted means the instrument quotes the pair the other way round, so
// the caller must flip long/short to express the same exposure.
type Resolution struct {
	Instrument Instrument
	Inverted   bool
}

// Resolve finds the tradable instrument for buying strong against weak.
// The direct pairing (strong as base) is preferred; if only the inverse
// exists it is returned with Inverted set. ok is false when neither
// ordering is tradable; the caller skips the candidate, this is not an
// error.
func Resolve(strong, weak domain.Currency) (Resolution, bool) {
	if inst, found := Lookup(string(strong) + "_" + string(weak)); found {
		return Resolution{Instrument: inst}, true
	}
	if inst, found := Lookup(string(weak) + "_" + string(strong)); found {
		return Resolution{Instrument: inst, Inverted: true}, true
	}
	return Resolution{}, false
}

// Direction returns the trade direction that buys strong and sells weak
// on the resolved instrument.
func (r Resolution) Direction() domain.Direction {
	if r.Inverted {
		return domain.Short
	}
	return domain.Long
}
