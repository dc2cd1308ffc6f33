package decision

import "coachdesk/internal/pkg/convert"

// Timeframe labels used in alignment breakdowns.
const (
	Timeframe1m  = "1m"
	Timeframe5m  = "5m"
	Timeframe15m = "15m"
	Timeframe1h  = "1h"
)

type blend struct {
	flow, prediction, gex, basis, regime float64
}

// 短周期偏重订单流，长周期偏重市场状态。
var timeframeBlends = []struct {
	name    string
	weights blend
	overall float64
}{
	{Timeframe1m, blend{0.40, 0.20, 0.15, 0.10, 0.15}, 0.20},
	{Timeframe5m, blend{0.30, 0.25, 0.15, 0.10, 0.20}, 0.35},
	{Timeframe15m, blend{0.20, 0.25, 0.15, 0.10, 0.30}, 0.25},
	{Timeframe1h, blend{0.10, 0.20, 0.15, 0.10, 0.45}, 0.20},
}

// Alignment holds the per-timeframe scores (0-100) and their weighted blend.
type Alignment struct {
	Overall    float64            `json:"overall"`
	Timeframes map[string]float64 `json:"timeframes"`
}

// ComputeAlignment blends components into four timeframe scores and the overall score.
func ComputeAlignment(c Components) Alignment {
	out := Alignment{Timeframes: make(map[string]float64, len(timeframeBlends))}
	var overall float64
	for _, tf := range timeframeBlends {
		w := tf.weights
		score := 100 * (w.flow*c.Flow + w.prediction*c.Prediction + w.gex*c.GEX + w.basis*c.Basis + w.regime*c.Regime)
		score = convert.Clamp(score, 0, 100)
		out.Timeframes[tf.name] = convert.Round(score, 2)
		overall += tf.overall * score
	}
	out.Overall = convert.Round(convert.Clamp(overall, 0, 100), 2)
	return out
}
