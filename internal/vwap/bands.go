package vwap

import "github.com/shopspring/decimal"

// BandMultipliers are the standard-deviation widths reported by Bands.
var BandMultipliers = []float64{1, 1.5, 2}

// Band is one symmetric envelope around the rounded VWAP.
type Band struct {
	Multiplier float64 `json:"multiplier"`
	Upper      float64 `json:"upper"`
	Lower      float64 `json:"lower"`
}

// BandSet holds the VWAP and its 1, 1.5 and 2 SD envelopes.
type BandSet struct {
	Symbol string  `json:"symbol"`
	VWAP   float64 `json:"vwap"`
	StdDev float64 `json:"stdDev"`
	Bands  []Band  `json:"bands"`
}

// ComputeBands builds the band set for s.
func ComputeBands(s State) BandSet {
	center := decimal.NewFromFloat(s.VWAP).Round(pricePlaces)
	sd := decimal.NewFromFloat(s.StdDev())
	set := BandSet{
		Symbol: s.Symbol,
		VWAP:   center.InexactFloat64(),
		StdDev: sd.Round(4).InexactFloat64(),
		Bands:  make([]Band, 0, len(BandMultipliers)),
	}
	for _, m := range BandMultipliers {
		width := sd.Mul(decimal.NewFromFloat(m))
		set.Bands = append(set.Bands, Band{
			Multiplier: m,
			Upper:      center.Add(width).Round(pricePlaces).InexactFloat64(),
			Lower:      center.Sub(width).Round(pricePlaces).InexactFloat64(),
		})
	}
	return set
}

// Bands returns the band set for symbol's current aggregate.
func (a *Aggregator) Bands(symbol string) (BandSet, bool) {
	s, ok := a.Snapshot(symbol)
	if !ok {
		return BandSet{}, false
	}
	return ComputeBands(s), true
}
