package tier

import (
	"errors"
	"fmt"
	"sync"

	"coachdesk/internal/features"
	"coachdesk/internal/types"
)

// ErrInvalidWeights marks a tier weight set that cannot build a classifier.
var ErrInvalidWeights = errors.New("invalid tier weights")

// Class is one of the four classifier outputs. Skip surfaces as types.TierHidden.
type Class string

const (
	ClassSniperPrimary   Class = "sniper_primary"
	ClassSniperSecondary Class = "sniper_secondary"
	ClassWatchlist       Class = "watchlist"
	ClassSkip            Class = "skip"
)

// Classes is the fixed softmax column order.
var Classes = []Class{ClassSniperPrimary, ClassSniperSecondary, ClassWatchlist, ClassSkip}

// Tier maps a class onto the setup tier it is reported as.
func (c Class) Tier() types.Tier {
	switch c {
	case ClassSniperPrimary:
		return types.TierSniperPrimary
	case ClassSniperSecondary:
		return types.TierSniperSecondary
	case ClassWatchlist:
		return types.TierWatchlist
	default:
		return types.TierHidden
	}
}

// ClassWeights is an intercept plus a sparse map over normalized feature names.
type ClassWeights struct {
	Intercept float64            `json:"intercept" yaml:"intercept"`
	Weights   map[string]float64 `json:"weights" yaml:"weights"`
}

// Thresholds are the calibrated probability cutoffs for one setup type.
type Thresholds struct {
	SniperPrimary   float64 `json:"sniperPrimary" yaml:"sniperPrimary"`
	SniperSecondary float64 `json:"sniperSecondary" yaml:"sniperSecondary"`
	Watchlist       float64 `json:"watchlist" yaml:"watchlist"`
}

func (t Thresholds) validate() error {
	for _, v := range []float64{t.SniperPrimary, t.SniperSecondary, t.Watchlist} {
		if v < 0 || v > 1 {
			return fmt.Errorf("threshold %.4f outside [0,1]", v)
		}
	}
	if t.SniperPrimary < t.SniperSecondary || t.SniperSecondary < t.Watchlist {
		return fmt.Errorf("thresholds must be non-increasing (primary=%.4f secondary=%.4f watchlist=%.4f)",
			t.SniperPrimary, t.SniperSecondary, t.Watchlist)
	}
	return nil
}

// Weights 是分层模型的静态配置：每个类别的截距与稀疏权重，以及按 setup 类型校准的阈值。
type Weights struct {
	Version           string                         `json:"version" yaml:"version"`
	Classes           map[Class]ClassWeights         `json:"classes" yaml:"classes"`
	DefaultThresholds Thresholds                     `json:"defaultThresholds" yaml:"defaultThresholds"`
	Thresholds        map[types.SetupType]Thresholds `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// Validate checks class coverage, feature names and threshold ordering.
func (w Weights) Validate() error {
	known := make(map[string]struct{}, len(features.Names))
	for _, n := range features.Names {
		known[n] = struct{}{}
	}
	for _, c := range Classes {
		cw, ok := w.Classes[c]
		if !ok {
			return fmt.Errorf("%w: missing class %s", ErrInvalidWeights, c)
		}
		for name := range cw.Weights {
			if _, ok := known[name]; !ok {
				return fmt.Errorf("%w: class %s references unknown feature %q", ErrInvalidWeights, c, name)
			}
		}
	}
	if len(w.Classes) != len(Classes) {
		return fmt.Errorf("%w: expected %d classes, got %d", ErrInvalidWeights, len(Classes), len(w.Classes))
	}
	if err := w.DefaultThresholds.validate(); err != nil {
		return fmt.Errorf("%w: default thresholds: %v", ErrInvalidWeights, err)
	}
	for st, th := range w.Thresholds {
		if err := th.validate(); err != nil {
			return fmt.Errorf("%w: thresholds for %s: %v", ErrInvalidWeights, st, err)
		}
	}
	return nil
}

// ThresholdsFor returns the per-type cutoffs, falling back to the defaults.
func (w Weights) ThresholdsFor(st types.SetupType) Thresholds {
	if th, ok := w.Thresholds[st]; ok {
		return th
	}
	return w.DefaultThresholds
}

var (
	defaultOnce    sync.Once
	defaultWeights Weights
)

// DefaultWeights returns the built-in tier model.
func DefaultWeights() Weights {
	defaultOnce.Do(func() {
		defaultWeights = builtinWeights()
	})
	return defaultWeights
}

func builtinWeights() Weights {
	return Weights{
		Version: "tier-softmax-v1",
		Classes: map[Class]ClassWeights{
			ClassSniperPrimary: {Intercept: -2.2, Weights: map[string]float64{
				features.Confluence:          2.4,
				features.RegimeCompatibility: 1.6,
				features.FlowBias:            1.2,
				features.HistoricalWinRate:   1.4,
				features.RiskReward:          0.8,
				features.ATRRatio:            -0.3,
			}},
			ClassSniperSecondary: {Intercept: -1.0, Weights: map[string]float64{
				features.Confluence:          1.5,
				features.RegimeCompatibility: 1.0,
				features.FlowBias:            0.6,
				features.HistoricalWinRate:   0.8,
				features.RiskReward:          0.4,
			}},
			ClassWatchlist: {Intercept: 0.2, Weights: map[string]float64{
				features.Confluence:          0.6,
				features.RegimeCompatibility: 0.4,
				features.FlowBias:            0.2,
			}},
			ClassSkip: {Intercept: 1.0, Weights: map[string]float64{
				features.Confluence:          -1.2,
				features.RegimeCompatibility: -1.0,
				features.FlowBias:            -0.6,
				features.DistanceToVWAP:      0.2,
			}},
		},
		DefaultThresholds: Thresholds{SniperPrimary: 0.5, SniperSecondary: 0.4, Watchlist: 0.3},
		Thresholds: map[types.SetupType]Thresholds{
			types.SetupFadeAtWall:        {SniperPrimary: 0.55, SniperSecondary: 0.42, Watchlist: 0.3},
			types.SetupBreakoutVacuum:    {SniperPrimary: 0.52, SniperSecondary: 0.4, Watchlist: 0.3},
			types.SetupMeanReversion:     {SniperPrimary: 0.56, SniperSecondary: 0.44, Watchlist: 0.32},
			types.SetupTrendContinuation: {SniperPrimary: 0.48, SniperSecondary: 0.38, Watchlist: 0.28},
			types.SetupORBBreakout:       {SniperPrimary: 0.5, SniperSecondary: 0.4, Watchlist: 0.3},
			types.SetupVWAPReclaim:       {SniperPrimary: 0.5, SniperSecondary: 0.4, Watchlist: 0.3},
			types.SetupGammaSqueeze:      {SniperPrimary: 0.58, SniperSecondary: 0.45, Watchlist: 0.33},
			types.SetupPivotRejection:    {SniperPrimary: 0.53, SniperSecondary: 0.41, Watchlist: 0.3},
			types.SetupFlipReclaim:       {SniperPrimary: 0.54, SniperSecondary: 0.42, Watchlist: 0.31},
		},
	}
}
