// Package drill scores a learner's replay decision against the engine's read
// and the actual outcome.
package drill

import (
	"fmt"
	"math"
	"strings"

	"coachdesk/internal/pkg/convert"
)

type LearnerDirection string

const (
	LearnerLong  LearnerDirection = "long"
	LearnerShort LearnerDirection = "short"
	LearnerFlat  LearnerDirection = "flat"
)

type EngineDirection string

const (
	EngineBullish EngineDirection = "bullish"
	EngineBearish EngineDirection = "bearish"
	EngineNeutral EngineDirection = "neutral"
)

// Input is one drill attempt. Nil price or P&L pointers mean "not provided".
type Input struct {
	LearnerDirection LearnerDirection `json:"learnerDirection"`
	EngineDirection  EngineDirection  `json:"engineDirection"`
	Strike           *float64         `json:"strike,omitempty"`
	Stop             *float64         `json:"stop,omitempty"`
	Target           *float64         `json:"target,omitempty"`
	LearnerPnlPct    *float64         `json:"learnerPnlPct,omitempty"`
	ActualPnlPct     *float64         `json:"actualPnlPct,omitempty"`
}

// Components is the per-part breakdown of the score.
type Components struct {
	Direction      int `json:"direction"`
	RiskDiscipline int `json:"riskDiscipline"`
	PnlDelta       int `json:"pnlDelta"`
}

// Result 是单次复盘练习的评分结果。
type Result struct {
	Score          int        `json:"score"`
	DirectionMatch bool       `json:"directionMatch"`
	RewardRisk     *float64   `json:"rewardRisk"`
	Components     Components `json:"components"`
	Feedback       string     `json:"feedback"`
}

// DirectionMatches pairs flat/neutral, long/bullish and short/bearish.
func DirectionMatches(learner LearnerDirection, engine EngineDirection) bool {
	switch normalizeLearner(learner) {
	case LearnerFlat:
		return normalizeEngine(engine) == EngineNeutral
	case LearnerLong:
		return normalizeEngine(engine) == EngineBullish
	case LearnerShort:
		return normalizeEngine(engine) == EngineBearish
	default:
		return false
	}
}

func normalizeLearner(d LearnerDirection) LearnerDirection {
	return LearnerDirection(strings.ToLower(strings.TrimSpace(string(d))))
}

func normalizeEngine(d EngineDirection) EngineDirection {
	return EngineDirection(strings.ToLower(strings.TrimSpace(string(d))))
}

func finitePtr(p *float64) (float64, bool) {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0, false
	}
	return *p, true
}

// RewardRisk is defined only for long/short with strike, stop and target set
// and both legs positive in the trade's direction.
func RewardRisk(in Input) (float64, bool) {
	var sign float64
	switch normalizeLearner(in.LearnerDirection) {
	case LearnerLong:
		sign = 1
	case LearnerShort:
		sign = -1
	default:
		return 0, false
	}
	strike, ok1 := finitePtr(in.Strike)
	stop, ok2 := finitePtr(in.Stop)
	target, ok3 := finitePtr(in.Target)
	if !ok1 || !ok2 || !ok3 {
		return 0, false
	}
	risk := (strike - stop) * sign
	reward := (target - strike) * sign
	if risk <= 0 || reward <= 0 {
		return 0, false
	}
	return reward / risk, true
}

func directionPoints(match bool, learner LearnerDirection) int {
	switch {
	case match:
		return 50
	case normalizeLearner(learner) == LearnerFlat:
		return 10
	default:
		return 0
	}
}

func riskPoints(learner LearnerDirection, rr float64, ok bool) int {
	if normalizeLearner(learner) == LearnerFlat {
		return 30
	}
	if !ok {
		return 0
	}
	switch {
	case rr >= 1.2 && rr <= 3.5:
		return 30
	case (rr >= 0.9 && rr < 1.2) || (rr > 3.5 && rr <= 5):
		return 22
	case rr >= 0.5 && rr < 0.9:
		return 12
	default:
		return 6
	}
}

func pnlPoints(learner, actual *float64) int {
	l, ok1 := finitePtr(learner)
	a, ok2 := finitePtr(actual)
	if !ok1 || !ok2 {
		return 10
	}
	delta := math.Abs(l - a)
	switch {
	case delta <= 2:
		return 20
	case delta <= 5:
		return 16
	case delta <= 10:
		return 12
	case delta <= 20:
		return 8
	case delta <= 35:
		return 4
	default:
		return 0
	}
}

// Score evaluates one attempt. It never fails; missing inputs score neutrally.
func Score(in Input) Result {
	match := DirectionMatches(in.LearnerDirection, in.EngineDirection)
	rr, rrOK := RewardRisk(in)
	comp := Components{
		Direction:      directionPoints(match, in.LearnerDirection),
		RiskDiscipline: riskPoints(in.LearnerDirection, rr, rrOK),
		PnlDelta:       pnlPoints(in.LearnerPnlPct, in.ActualPnlPct),
	}
	total := convert.Clamp(float64(comp.Direction+comp.RiskDiscipline+comp.PnlDelta), 0, 100)
	res := Result{
		Score:          int(math.Round(total)),
		DirectionMatch: match,
		Components:     comp,
	}
	if rrOK {
		rounded := convert.Round(rr, 2)
		res.RewardRisk = &rounded
	}
	res.Feedback = feedback(res, in)
	return res
}

func feedback(res Result, in Input) string {
	rrText := "n/a"
	if res.RewardRisk != nil {
		rrText = fmt.Sprintf("%.2f", *res.RewardRisk)
	}
	pnlText := "n/a"
	if l, ok := finitePtr(in.LearnerPnlPct); ok {
		if a, ok := finitePtr(in.ActualPnlPct); ok {
			pnlText = fmt.Sprintf("%.1f%% vs actual %.1f%%", l, a)
		} else {
			pnlText = fmt.Sprintf("%.1f%%", l)
		}
	}
	switch {
	case res.Score >= 85:
		return fmt.Sprintf("Strong read. R:R %s, P&L %s. Keep executing this plan.", rrText, pnlText)
	case res.Score >= 65:
		return fmt.Sprintf("Mixed execution. R:R %s, P&L %s. Tighten the plan before sizing up.", rrText, pnlText)
	default:
		return fmt.Sprintf("Reset needed. R:R %s, P&L %s. Re-check direction and stop placement.", rrText, pnlText)
	}
}
