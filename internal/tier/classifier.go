// Package tier assigns setups to quality tiers, either through a calibrated
// softmax classifier or through a plain rule ladder.
package tier

import (
	"fmt"
	"math"
	"sync"

	"coachdesk/internal/features"
	"coachdesk/internal/model"
	"coachdesk/internal/types"
)

// Prediction is the classifier output for one setup.
type Prediction struct {
	Class         Class             `json:"class"`
	Winner        Class             `json:"winner"`
	Probability   float64           `json:"probability"`
	Probabilities map[Class]float64 `json:"probabilities"`
	Demoted       bool              `json:"demoted"`
}

// Tier is the setup tier the prediction resolves to.
func (p Prediction) Tier() types.Tier { return p.Class.Tier() }

// Classifier is an immutable, validated tier model.
type Classifier struct {
	w Weights
}

// NewClassifier validates w once; classification never re-checks it.
func NewClassifier(w Weights) (*Classifier, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{w: w}, nil
}

// Version echoes the weight set version.
func (c *Classifier) Version() string { return c.w.Version }

// Weights returns the configuration behind c.
func (c *Classifier) Weights() Weights { return c.w }

// Softmax converts raw scores to probabilities, subtracting the max first.
func Softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Demote walks class down the ladder until p clears that rung's threshold.
func Demote(class Class, p float64, th Thresholds) Class {
	switch class {
	case ClassSniperPrimary:
		if p >= th.SniperPrimary {
			return ClassSniperPrimary
		}
		fallthrough
	case ClassSniperSecondary:
		if p >= th.SniperSecondary {
			return ClassSniperSecondary
		}
		fallthrough
	case ClassWatchlist:
		if p >= th.Watchlist {
			return ClassWatchlist
		}
	}
	return ClassSkip
}

// Classify scores normalized features (keyed by feature name) for a setup type.
func (c *Classifier) Classify(st types.SetupType, normalized map[string]float64) Prediction {
	scores := make([]float64, len(Classes))
	for i, cls := range Classes {
		cw := c.w.Classes[cls]
		s := cw.Intercept
		for name, weight := range cw.Weights {
			s += weight * normalized[name]
		}
		scores[i] = s
	}
	probs := Softmax(scores)
	best := 0
	for i := range probs {
		if probs[i] > probs[best] {
			best = i
		}
	}
	pred := Prediction{
		Winner:        Classes[best],
		Probability:   probs[best],
		Probabilities: make(map[Class]float64, len(Classes)),
	}
	for i, cls := range Classes {
		pred.Probabilities[cls] = probs[i]
	}
	pred.Class = Demote(pred.Winner, pred.Probability, c.w.ThresholdsFor(st))
	pred.Demoted = pred.Class != pred.Winner
	return pred
}

// RuleBasedTier is the deterministic ladder used when the classifier is off.
// An already-assigned non-hidden tier is returned unchanged.
func RuleBasedTier(existing types.Tier, confidence, confluence float64) types.Tier {
	if existing.Valid() && existing != types.TierHidden {
		return existing
	}
	switch {
	case confidence >= 75 && confluence >= 4:
		return types.TierSniperPrimary
	case confidence >= 62 && confluence >= 3:
		return types.TierSniperSecondary
	case confidence >= 45 && confluence >= 2:
		return types.TierWatchlist
	default:
		return types.TierHidden
	}
}

// Resolve picks the tier for one evaluation. The classifier applies when the
// flags admit userID and c is non-nil; otherwise the rule ladder runs.
func (c *Classifier) Resolve(setup types.Setup, vec features.Vector, userID string, flags model.Flags, confidence float64) (types.Tier, model.Source) {
	if c != nil && flags.TierLive(userID) {
		return c.Classify(setup.Type, vec.NormalizedMap()).Tier(), model.SourceModel
	}
	return RuleBasedTier(setup.Tier, confidence, setup.ConfluenceScore), model.SourceRules
}

var (
	defaultClassifierOnce sync.Once
	defaultClassifier     *Classifier
)

// Default returns the process-wide classifier built from DefaultWeights.
func Default() *Classifier {
	defaultClassifierOnce.Do(func() {
		c, err := NewClassifier(DefaultWeights())
		if err != nil {
			panic(fmt.Sprintf("built-in tier weights invalid: %v", err))
		}
		defaultClassifier = c
	})
	return defaultClassifier
}
