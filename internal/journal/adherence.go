package journal

import (
	"math"

	"coachdesk/internal/pkg/convert"
)

const adherenceBase = 55.0

// CoachingSeverity is the coach's stance at trade time.
type CoachingSeverity string

const (
	CoachingRoutine  CoachingSeverity = "routine"
	CoachingWarning  CoachingSeverity = "warning"
	CoachingCritical CoachingSeverity = "critical"
)

// AdherenceInput carries the trade-time quality signals.
type AdherenceInput struct {
	ConfluenceScore float64
	Probability     float64
	RewardRisk      float64
	RewardRiskOK    bool
	Severity        CoachingSeverity
	PnLPoints       float64
}

// AdherenceScore rates execution discipline on 0-100 from a base of 55.
func AdherenceScore(in AdherenceInput) float64 {
	score := adherenceBase
	score += 25 * convert.Clamp(in.ConfluenceScore, 0, 5) / 5
	score += convert.Clamp(0.24*(in.Probability-50), 0, 12)
	if in.RewardRiskOK && in.RewardRisk > 0 {
		score += 16 * math.Min(in.RewardRisk/3, 1)
	}
	switch in.Severity {
	case CoachingCritical:
		score -= 18
	case CoachingWarning:
		score -= 8
	}
	switch {
	case in.PnLPoints > 0:
		score += 6
	case in.PnLPoints < 0:
		score -= 6
	}
	return math.Round(convert.Clamp(score, 0, 100))
}
