package decision

import (
	"fmt"
	"math"

	"coachdesk/internal/features"
)

const maxNarrative = 3

type bullets []string

func (b *bullets) add(ok bool, text string) {
	if ok && len(*b) < maxNarrative {
		*b = append(*b, text)
	}
}

// narrate picks at most three drivers and three risks, strongest signals first.
func narrate(c Components, a Alignment, v features.Vector, evR float64, rrOK bool) (drivers, risks []string) {
	var d, r bullets

	d.add(a.Overall >= 62, fmt.Sprintf("Timeframes aligned (%.0f%%)", a.Overall))
	d.add(c.FlowBias >= 0.35, "Order flow confirms direction")
	d.add(c.Regime >= 0.65, "Regime supports this setup")
	d.add(c.GEX == gexSupportMatch, "Dealer gamma leans with the move")
	d.add(c.Prediction >= 0.6, fmt.Sprintf("Predictor favors direction (%.0f%%)", c.Prediction*100))
	d.add(v.HistoricalTestCount >= 5 && v.HistoricalWinRate >= 0.6,
		fmt.Sprintf("Pattern held %.0f%% over %.0f tests", v.HistoricalWinRate*100, v.HistoricalTestCount))

	r.add(c.Regime < 0.45, "Regime mismatch for this setup")
	r.add(c.FlowBias <= -0.35, "Order flow is leaning against the trade")
	r.add(a.Overall < 45, fmt.Sprintf("Timeframes disagree (%.0f%%)", a.Overall))
	r.add(c.GEX == gexSupportMismatch, "Dealer gamma works against the move")
	r.add(!rrOK, "Stop/target geometry is invalid")
	r.add(rrOK && evR < 0, fmt.Sprintf("Negative expectancy (%.2fR)", evR))
	r.add(math.Abs(v.DistanceToVWAP) >= 5, "Price is extended from VWAP")

	return []string(d), []string(r)
}
