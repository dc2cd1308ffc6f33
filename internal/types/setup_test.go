package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupRewardRisk(t *testing.T) {
	bull := Setup{
		Direction: DirectionBullish,
		EntryZone: PriceZone{Low: 99, High: 101},
		Stop:      98,
		Target1:   PriceTarget{Price: 104},
	}
	rr, ok := bull.RewardRisk()
	assert.True(t, ok)
	assert.InDelta(t, 2.0, rr, 1e-9)

	bear := Setup{
		Direction: DirectionBearish,
		EntryZone: PriceZone{Low: 99, High: 101},
		Stop:      102,
		Target1:   PriceTarget{Price: 96},
	}
	rr, ok = bear.RewardRisk()
	assert.True(t, ok)
	assert.InDelta(t, 2.0, rr, 1e-9)

	inverted := bull
	inverted.Stop = 103
	_, ok = inverted.RewardRisk()
	assert.False(t, ok)
}

func TestSetupCloneDoesNotAlias(t *testing.T) {
	orig := Setup{
		ID:                  "s1",
		ConfluenceBreakdown: map[string]float64{"flow": 1},
		MemoryContext:       &MemoryContext{Tests: 3},
		Drivers:             []string{"a"},
	}
	cp := orig.Clone()
	cp.ConfluenceBreakdown["flow"] = 2
	cp.MemoryContext.Tests = 9
	cp.Drivers[0] = "b"

	assert.Equal(t, 1.0, orig.ConfluenceBreakdown["flow"])
	assert.Equal(t, 3, orig.MemoryContext.Tests)
	assert.Equal(t, "a", orig.Drivers[0])
}

func TestTierValid(t *testing.T) {
	assert.True(t, TierWatchlist.Valid())
	assert.False(t, Tier("skip").Valid())
	assert.True(t, RegimeBreakout.Known())
	assert.False(t, NormalizeRegime(" Unknown ").Known())
	assert.Equal(t, RegimeRanging, NormalizeRegime(" Ranging "))
}
