package model

import "coachdesk/internal/pkg/convert"

const (
	MinConfidence = 5.0
	MaxConfidence = 95.0
)

// RegimePenalty subtracts confidence when the active regime disagrees with the setup.
func RegimePenalty(regimeScore float64) float64 {
	switch {
	case regimeScore < 0.3:
		return 18
	case regimeScore < 0.45:
		return 12
	default:
		return 0
	}
}

// RuleBasedConfidence is the deterministic fallback, always available.
// alignmentScore and probability are 0-100, confluence 0-5, flowBias -1..1.
func RuleBasedConfidence(alignmentScore, confluenceScore, probability, flowBias, regimeScore float64) float64 {
	raw := 20 +
		0.55*alignmentScore +
		22*(confluenceScore/5) +
		0.2*probability +
		8*flowBias -
		RegimePenalty(regimeScore)
	return ClampConfidence(raw)
}

// ClampConfidence bounds any confidence value to [5,95].
func ClampConfidence(v float64) float64 {
	return convert.Clamp(v, MinConfidence, MaxConfidence)
}
