// Package decision runs the full per-setup evaluation: feature extraction,
// alignment, confidence, expected value, narrative and tier.
package decision

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"coachdesk/internal/features"
	"coachdesk/internal/model"
	"coachdesk/internal/pkg/convert"
	"coachdesk/internal/tier"
	"coachdesk/internal/types"

	"golang.org/x/sync/errgroup"
)

const trendBand = 5.0

// ClassifierSource yields the tier classifier in effect; *tier.Registry satisfies it.
type ClassifierSource interface {
	Classifier() *tier.Classifier
}

// Observer receives every finished evaluation (metrics, audit).
type Observer interface {
	ObserveEvaluation(Evaluation)
}

type staticClassifier struct{ c *tier.Classifier }

func (s staticClassifier) Classifier() *tier.Classifier { return s.c }

// Evaluation is the enriched setup plus the intermediates that produced it.
type Evaluation struct {
	Setup            types.Setup     `json:"setup"`
	Features         features.Vector `json:"features"`
	Components       Components      `json:"components"`
	Alignment        Alignment       `json:"alignment"`
	RuleConfidence   float64         `json:"ruleConfidence"`
	Confidence       float64         `json:"confidence"`
	ConfidenceSource model.Source    `json:"confidenceSource"`
	TierSource       model.Source    `json:"tierSource"`
	RewardRisk       float64         `json:"rewardRisk"`
}

// Engine 编排单个 setup 的完整评估；无共享可变状态，可并发调用。
type Engine struct {
	extractor  *features.Extractor
	confidence *model.ConfidenceModel
	tiers      ClassifierSource
	flags      model.Flags
	observer   Observer
	parallel   int
}

// Option configures an Engine.
type Option func(*Engine)

func WithExtractor(x *features.Extractor) Option {
	return func(e *Engine) { e.extractor = x }
}

func WithConfidenceModel(m *model.ConfidenceModel) Option {
	return func(e *Engine) { e.confidence = m }
}

func WithClassifierSource(src ClassifierSource) Option {
	return func(e *Engine) { e.tiers = src }
}

func WithFlags(f model.Flags) Option {
	return func(e *Engine) { e.flags = f }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithParallelism bounds EvaluateAll; n <= 0 means GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(e *Engine) { e.parallel = n }
}

// NewEngine builds an engine with default weights and flags off unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.extractor == nil {
		e.extractor = features.NewExtractor(nil)
	}
	if e.confidence == nil {
		e.confidence = model.NewConfidenceModel(model.DefaultWeights())
	}
	if e.tiers == nil {
		e.tiers = staticClassifier{c: tier.Default()}
	}
	if e.parallel <= 0 {
		e.parallel = runtime.GOMAXPROCS(0)
	}
	return e
}

// Flags reports the engine-level ML flags before per-call overrides.
func (e *Engine) Flags() model.Flags { return e.flags }

// Evaluate enriches a copy of setup. The input setup is never modified.
func (e *Engine) Evaluate(setup types.Setup, fctx types.FeatureExtractionContext) Evaluation {
	out := setup.Clone()
	vec := e.extractor.Extract(out, fctx)
	flags := e.flags.WithOverrides(fctx.MLOverrides)

	comp := Components{
		Regime:     vec.RegimeCompatibility,
		Prediction: PredictionScore(out.Direction, fctx.Prediction),
		FlowBias:   vec.FlowBias,
		Flow:       (vec.FlowBias + 1) / 2,
		GEX:        GEXSupport(out.Direction, fctx.GEX),
		Basis:      BasisSupport(fctx.Basis),
	}
	align := ComputeAlignment(comp)

	ruleConf := model.RuleBasedConfidence(align.Overall, vec.Confluence, convert.Clamp(out.Probability, 0, 100), vec.FlowBias, vec.RegimeCompatibility)
	conf, confSrc := e.confidence.Resolve(vec.Normalized(), fctx.UserID, flags, ruleConf)
	conf = convert.Round(conf, 2)

	pWin := conf / 100
	rr, rrOK := out.RewardRisk()
	evR := 0.0
	if rrOK {
		evR = convert.Round(pWin*rr-(1-pWin), 2)
	}

	tierVal, tierSrc := e.tiers.Classifier().Resolve(out, vec, fctx.UserID, flags, conf)

	out.AlignmentScore = align.Overall
	out.Score = math.Round(0.45*align.Overall + 0.55*conf)
	out.PWinCalibrated = convert.Round(pWin, 4)
	out.EVR = evR
	out.ConfidenceTrend = confidenceTrend(conf, out.Probability)
	out.Tier = tierVal
	out.Drivers, out.Risks = narrate(comp, align, vec, evR, rrOK)

	ev := Evaluation{
		Setup:            out,
		Features:         vec,
		Components:       comp,
		Alignment:        align,
		RuleConfidence:   ruleConf,
		Confidence:       conf,
		ConfidenceSource: confSrc,
		TierSource:       tierSrc,
		RewardRisk:       convert.Round(rr, 4),
	}
	if e.observer != nil {
		e.observer.ObserveEvaluation(ev)
	}
	return ev
}

// EvaluateAll evaluates setups concurrently against one shared context and
// returns results in input order. It stops early only if ctx is cancelled.
func (e *Engine) EvaluateAll(ctx context.Context, setups []types.Setup, fctx types.FeatureExtractionContext) ([]Evaluation, error) {
	out := make([]Evaluation, len(setups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallel)
	for i := range setups {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = e.Evaluate(setups[i], fctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluate setups: %w", err)
	}
	return out, nil
}

func confidenceTrend(confidence, probability float64) types.ConfidenceTrend {
	switch delta := confidence - probability; {
	case delta > trendBand:
		return types.TrendUp
	case delta < -trendBand:
		return types.TrendDown
	default:
		return types.TrendFlat
	}
}
