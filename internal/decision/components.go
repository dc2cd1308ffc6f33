package decision

import (
	"coachdesk/internal/pkg/convert"
	"coachdesk/internal/types"
)

const (
	gexSupportMatch    = 0.75
	gexSupportMismatch = 0.35
	gexSupportNeutral  = 0.5

	basisSupportSPX     = 0.72
	basisSupportSPY     = 0.38
	basisSupportNeutral = 0.52
)

// Components are the intermediate 0..1 support scores blended into alignment.
type Components struct {
	Regime     float64 `json:"regime"`
	Prediction float64 `json:"prediction"`
	Flow       float64 `json:"flow"`
	FlowBias   float64 `json:"flowBias"`
	GEX        float64 `json:"gex"`
	Basis      float64 `json:"basis"`
}

// PredictionScore is the share of the predictor's split that agrees with dir.
func PredictionScore(dir types.Direction, p *types.Prediction) float64 {
	if p == nil {
		return 0.5
	}
	bull := convert.Clamp(p.BullishPct, 0, 100)
	bear := convert.Clamp(p.BearishPct, 0, 100)
	total := bull + bear
	if total <= 0 {
		return 0.5
	}
	switch dir {
	case types.DirectionBullish:
		return bull / total
	case types.DirectionBearish:
		return bear / total
	default:
		return 0.5
	}
}

// GEXSupport scores whether net dealer gamma points the same way as dir.
func GEXSupport(dir types.Direction, g *types.GEXProfile) float64 {
	if g == nil || g.NetGex == 0 || dir.Sign() == 0 {
		return gexSupportNeutral
	}
	if (g.NetGex > 0) == (dir.Sign() > 0) {
		return gexSupportMatch
	}
	return gexSupportMismatch
}

// BasisSupport scores SPX/SPY leadership.
func BasisSupport(b *types.BasisState) float64 {
	if b == nil {
		return basisSupportNeutral
	}
	switch b.Leading {
	case types.BasisSPX:
		return basisSupportSPX
	case types.BasisSPY:
		return basisSupportSPY
	default:
		return basisSupportNeutral
	}
}
