package model

import (
	"errors"
	"testing"

	"coachdesk/internal/features"
	"coachdesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFNV1a32KnownValues(t *testing.T) {
	assert.Equal(t, uint32(2166136261), FNV1a32(""))
	assert.Equal(t, uint32(0xe40c292c), FNV1a32("a"))
	assert.Equal(t, uint32(0xbf9cf968), FNV1a32("foobar"))
}

func TestInRollout(t *testing.T) {
	assert.False(t, InRollout(false, 100, "u1"))
	assert.False(t, InRollout(true, 0, "u1"))
	assert.True(t, InRollout(true, 100, "u1"))

	user := "trader-42"
	b := Bucket(user)
	assert.True(t, InRollout(true, b+1, user))
	assert.False(t, InRollout(true, b, user))
	assert.Equal(t, b, Bucket(user), "bucket must be stable")
}

func TestFlagsWithOverrides(t *testing.T) {
	on := true
	pct := 100
	f := Flags{ConfidenceEnabled: false, TierEnabled: true, RolloutPct: 10}
	got := f.WithOverrides(&types.MLOverrides{ConfidenceEnabled: &on, RolloutPct: &pct})
	assert.True(t, got.ConfidenceEnabled)
	assert.True(t, got.TierEnabled)
	assert.Equal(t, 100, got.RolloutPct)
	assert.Equal(t, f, f.WithOverrides(nil))
}

func TestRuleBasedConfidenceBounds(t *testing.T) {
	assert.Equal(t, MaxConfidence, RuleBasedConfidence(100, 5, 100, 1, 1))
	assert.Equal(t, MinConfidence, RuleBasedConfidence(0, 0, 0, -1, 0))

	// 20 + 0.55*60 + 22*0.6 + 0.2*60 + 8*0.5 - 12
	assert.InDelta(t, 70.2, RuleBasedConfidence(60, 3, 60, 0.5, 0.4), 1e-9)
}

func TestRegimePenalty(t *testing.T) {
	assert.Equal(t, 18.0, RegimePenalty(0.15))
	assert.Equal(t, 12.0, RegimePenalty(0.3))
	assert.Equal(t, 0.0, RegimePenalty(0.45))
}

func TestDefaultWeightsValidAndStable(t *testing.T) {
	w := DefaultWeights()
	require.NoError(t, w.Validate())
	assert.Equal(t, features.Count, w.InputSize)
	assert.Equal(t, w, generateWeights(features.Count, defaultHiddenSize, defaultSeed))
}

func TestGenerateWeightsSmallInput(t *testing.T) {
	w := generateWeights(3, 2, 7)
	require.NoError(t, w.Validate())
	for _, row := range w.Gates.Candidate.W {
		assert.Len(t, row, 5)
		assert.Equal(t, 0.9, row[0])
		assert.Equal(t, 0.8, row[1])
		assert.Equal(t, 0.6, row[2])
	}
}

func TestWeightsValidateRejectsShapes(t *testing.T) {
	w := generateWeights(3, 2, 7)
	require.NoError(t, w.Validate())

	bad := generateWeights(3, 2, 7)
	bad.Gates.Forget.W[1] = bad.Gates.Forget.W[1][:4]
	assert.True(t, errors.Is(bad.Validate(), ErrInvalidWeights))

	bad = generateWeights(3, 2, 7)
	bad.Head.W = []float64{1}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidWeights)

	bad = generateWeights(3, 2, 7)
	bad.HiddenSize = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidWeights)
}

func TestModelConfidenceBounded(t *testing.T) {
	m := NewConfidenceModel(DefaultWeights())
	require.True(t, m.Usable())

	inputs := [][]float64{
		make([]float64, features.Count),
		filled(features.Count, 1),
		filled(features.Count, -1),
		filled(features.Count, 0.5),
	}
	for _, x := range inputs {
		v, ok := m.Confidence(x)
		require.True(t, ok)
		assert.GreaterOrEqual(t, v, MinConfidence)
		assert.LessOrEqual(t, v, MaxConfidence)
	}

	_, ok := m.Confidence([]float64{1, 2})
	assert.False(t, ok, "wrong width is unavailable")
}

func TestModelIsStatelessAcrossCalls(t *testing.T) {
	m := NewConfidenceModel(DefaultWeights())
	x := filled(features.Count, 0.3)
	a, _ := m.Confidence(x)
	_, _ = m.Confidence(filled(features.Count, -0.8))
	b, _ := m.Confidence(x)
	assert.Equal(t, a, b)
}

func TestResolveFallsBackOnInvalidWeights(t *testing.T) {
	bad := DefaultWeights()
	bad.InputSize = 99
	m := NewConfidenceModel(bad)
	assert.False(t, m.Usable())

	flags := Flags{ConfidenceEnabled: true, RolloutPct: 100}
	v, src := m.Resolve(make([]float64, features.Count), "u", flags, 140)
	assert.Equal(t, SourceRules, src)
	assert.Equal(t, MaxConfidence, v)

	var nilModel *ConfidenceModel
	v, src = nilModel.Resolve(nil, "u", flags, 50)
	assert.Equal(t, SourceRules, src)
	assert.Equal(t, 50.0, v)
}

func TestResolveHonoursRollout(t *testing.T) {
	m := NewConfidenceModel(DefaultWeights())
	x := make([]float64, features.Count)

	_, src := m.Resolve(x, "u", Flags{ConfidenceEnabled: true, RolloutPct: 100}, 50)
	assert.Equal(t, SourceModel, src)

	_, src = m.Resolve(x, "u", Flags{ConfidenceEnabled: false, RolloutPct: 100}, 50)
	assert.Equal(t, SourceRules, src)
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
