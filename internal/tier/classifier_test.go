package tier

import (
	"testing"

	"coachdesk/internal/features"
	"coachdesk/internal/model"
	"coachdesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeightsValid(t *testing.T) {
	require.NoError(t, DefaultWeights().Validate())
	require.NotNil(t, Default())
}

func TestSoftmaxStable(t *testing.T) {
	p := Softmax([]float64{1000, 1000, 999, -1000})
	var sum float64
	for _, v := range p {
		assert.False(t, v != v, "NaN")
		sum += v
	}
	assert.InDelta(t, 1, sum, 1e-12)
	assert.InDelta(t, p[0], p[1], 1e-12)
	assert.Greater(t, p[1], p[2])
	assert.Nil(t, Softmax(nil))
}

func TestDemoteLadder(t *testing.T) {
	th := Thresholds{SniperPrimary: 0.5, SniperSecondary: 0.4, Watchlist: 0.3}
	cases := []struct {
		class Class
		p     float64
		want  Class
	}{
		{ClassSniperPrimary, 0.6, ClassSniperPrimary},
		{ClassSniperPrimary, 0.45, ClassSniperSecondary},
		{ClassSniperPrimary, 0.35, ClassWatchlist},
		{ClassSniperPrimary, 0.29, ClassSkip},
		{ClassSniperSecondary, 0.39, ClassWatchlist},
		{ClassWatchlist, 0.31, ClassWatchlist},
		{ClassWatchlist, 0.2, ClassSkip},
		{ClassSkip, 0.9, ClassSkip},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Demote(tc.class, tc.p, th), "%s@%.2f", tc.class, tc.p)
	}
}

func TestClassifyStrongAndWeakSetups(t *testing.T) {
	c := Default()
	strong := map[string]float64{
		features.Confluence:          1,
		features.RegimeCompatibility: 1,
		features.FlowBias:            1,
		features.HistoricalWinRate:   1,
		features.RiskReward:          1,
	}
	pred := c.Classify(types.SetupORBBreakout, strong)
	assert.Equal(t, ClassSniperPrimary, pred.Winner)
	assert.Equal(t, types.TierSniperPrimary, pred.Tier())
	assert.False(t, pred.Demoted)

	weak := map[string]float64{features.FlowBias: 0.5}
	pred = c.Classify(types.SetupORBBreakout, weak)
	assert.Equal(t, ClassSkip, pred.Class)
	assert.Equal(t, types.TierHidden, pred.Tier())
}

func TestClassifyNeverOverstatesPrimary(t *testing.T) {
	c := Default()
	steps := []float64{0, 0.25, 0.5, 0.75, 1}
	for _, st := range types.SetupTypes {
		th := c.Weights().ThresholdsFor(st)
		for _, conf := range steps {
			for _, reg := range steps {
				for _, flow := range steps {
					for _, win := range steps {
						pred := c.Classify(st, map[string]float64{
							features.Confluence:          conf,
							features.RegimeCompatibility: reg,
							features.FlowBias:            flow,
							features.HistoricalWinRate:   win,
						})
						if pred.Class == ClassSniperPrimary {
							assert.GreaterOrEqual(t, pred.Probability, th.SniperPrimary)
						}
					}
				}
			}
		}
	}
}

func TestClassifyDemotesBelowTypeThreshold(t *testing.T) {
	w := DefaultWeights()
	w.Classes = map[Class]ClassWeights{
		ClassSniperPrimary:   {Intercept: 0.2},
		ClassSniperSecondary: {Intercept: 0},
		ClassWatchlist:       {Intercept: -0.2},
		ClassSkip:            {Intercept: -0.4},
	}
	w.Thresholds = map[types.SetupType]Thresholds{
		types.SetupGammaSqueeze: {SniperPrimary: 0.9, SniperSecondary: 0.3, Watchlist: 0.1},
	}
	c, err := NewClassifier(w)
	require.NoError(t, err)

	pred := c.Classify(types.SetupGammaSqueeze, nil)
	assert.Equal(t, ClassSniperPrimary, pred.Winner)
	assert.Less(t, pred.Probability, 0.9)
	assert.Equal(t, ClassSniperSecondary, pred.Class)
	assert.True(t, pred.Demoted)
}

func TestRuleBasedTier(t *testing.T) {
	assert.Equal(t, types.TierSniperPrimary, RuleBasedTier("", 80, 4))
	assert.Equal(t, types.TierSniperSecondary, RuleBasedTier("", 80, 3))
	assert.Equal(t, types.TierWatchlist, RuleBasedTier("", 50, 2))
	assert.Equal(t, types.TierHidden, RuleBasedTier("", 44, 5))
	assert.Equal(t, types.TierHidden, RuleBasedTier(types.TierHidden, 30, 1))
	assert.Equal(t, types.TierWatchlist, RuleBasedTier(types.TierWatchlist, 90, 5), "curated tier passes through")
}

func TestResolveSelectsSource(t *testing.T) {
	setup := types.Setup{Type: types.SetupVWAPReclaim, ConfluenceScore: 4}
	vec := features.Vector{Confluence: 4}

	tierVal, src := Default().Resolve(setup, vec, "u", model.Flags{TierEnabled: true, RolloutPct: 100}, 80)
	assert.Equal(t, model.SourceModel, src)
	assert.True(t, tierVal.Valid())

	tierVal, src = Default().Resolve(setup, vec, "u", model.Flags{}, 80)
	assert.Equal(t, model.SourceRules, src)
	assert.Equal(t, types.TierSniperPrimary, tierVal)

	var nilClassifier *Classifier
	_, src = nilClassifier.Resolve(setup, vec, "u", model.Flags{TierEnabled: true, RolloutPct: 100}, 80)
	assert.Equal(t, model.SourceRules, src)
}

func TestWeightsValidate(t *testing.T) {
	w := DefaultWeights()
	w.Classes = map[Class]ClassWeights{ClassSkip: {}}
	assert.ErrorIs(t, w.Validate(), ErrInvalidWeights)

	w = builtinWeights()
	w.Classes[ClassWatchlist] = ClassWeights{Weights: map[string]float64{"nope": 1}}
	assert.ErrorIs(t, w.Validate(), ErrInvalidWeights)

	w = builtinWeights()
	w.DefaultThresholds = Thresholds{SniperPrimary: 0.2, SniperSecondary: 0.4, Watchlist: 0.1}
	assert.ErrorIs(t, w.Validate(), ErrInvalidWeights)
}
