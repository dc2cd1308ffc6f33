package tier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const overrideYAML = `version: tier-test-2
classes:
  sniper_primary:
    intercept: 3
    weights:
      confluence: 1
  sniper_secondary:
    intercept: 0
  watchlist:
    intercept: 0
  skip:
    intercept: 0
defaultThresholds:
  sniperPrimary: 0.5
  sniperSecondary: 0.4
  watchlist: 0.3
thresholds:
  gamma_squeeze:
    sniperPrimary: 0.99
    sniperSecondary: 0.5
    watchlist: 0.2
`

func TestRegistryBuiltinWithoutPath(t *testing.T) {
	r, err := NewRegistry("", false)
	require.NoError(t, err)
	assert.Equal(t, Default(), r.Classifier())
	assert.Equal(t, "builtin", r.Snapshot().Source)
	assert.NoError(t, r.Reload())
}

func TestRegistryLoadsYAMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tier.yaml")
	require.NoError(t, os.WriteFile(path, []byte(overrideYAML), 0o644))

	r, err := NewRegistry(path, false)
	require.NoError(t, err)
	assert.Equal(t, "tier-test-2", r.Classifier().Version())
	assert.Equal(t, int64(1), r.Snapshot().Generation)

	pred := r.Classifier().Classify("orb_breakout", nil)
	assert.Equal(t, ClassSniperPrimary, pred.Class)
	pred = r.Classifier().Classify("gamma_squeeze", nil)
	assert.Equal(t, ClassSniperSecondary, pred.Class)
}

func TestRegistryReloadKeepsPreviousOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tier.yaml")
	require.NoError(t, os.WriteFile(path, []byte(overrideYAML), 0o644))
	r, err := NewRegistry(path, false)
	require.NoError(t, err)

	var seen []Snapshot
	r.OnChange(func(s Snapshot) { seen = append(seen, s) })

	require.NoError(t, os.WriteFile(path, []byte("version: broken\nclasses: {}\n"), 0o644))
	assert.Error(t, r.Reload())
	assert.Equal(t, "tier-test-2", r.Classifier().Version())
	assert.Empty(t, seen)

	require.NoError(t, os.WriteFile(path, []byte(overrideYAML), 0o644))
	require.NoError(t, r.Reload())
	assert.Equal(t, int64(2), r.Snapshot().Generation)
	require.Len(t, seen, 1)
}

func TestParseWeightsJSON(t *testing.T) {
	raw := []byte(`{"version":"j1","classes":{"sniper_primary":{"intercept":0},"sniper_secondary":{"intercept":0},"watchlist":{"intercept":1},"skip":{"intercept":0}},"defaultThresholds":{"sniperPrimary":0.5,"sniperSecondary":0.4,"watchlist":0.3}}`)
	w, err := ParseWeights(raw, ".json")
	require.NoError(t, err)
	assert.Equal(t, "j1", w.Version)

	_, err = ParseWeights([]byte(`{"classes":{}}`), ".json")
	assert.ErrorIs(t, err, ErrInvalidWeights)

	_, err = ParseWeights([]byte(`{"version":"x","classes":{},"defaultThresholds":{"sniperPrimary":2,"sniperSecondary":0.4,"watchlist":0.3}}`), ".json")
	assert.ErrorIs(t, err, ErrInvalidWeights)

	_, err = ParseWeights(raw, ".toml")
	assert.Error(t, err)
}
