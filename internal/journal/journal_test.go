package journal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"coachdesk/internal/store/kv"
	"coachdesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minute = int64(60_000)

func sampleTrade() ClosedTrade {
	return ClosedTrade{
		ID:              "t-1",
		UserID:          "u1",
		SetupID:         "s-1",
		SetupType:       types.SetupVWAPReclaim,
		Symbol:          "spx",
		Direction:       types.DirectionBullish,
		EntryPrice:      100,
		ExitPrice:       104,
		Stop:            98,
		Target:          106,
		Quantity:        2,
		EntryAtMs:       1_770_000_000_000,
		ExitAtMs:        1_770_000_000_000 + 45*minute,
		ConfluenceScore: 4,
		Probability:     65,
		AlignmentScore:  72,
		EVR:             1.2,
		StopUsed:        true,
		Contract:        &types.ContractRef{Strike: 6030, Type: "call"},
	}
}

func TestAdherenceScore(t *testing.T) {
	// 55 + 20 + 3.6 + 16 + 6 = 100.6 -> 100
	assert.Equal(t, 100.0, AdherenceScore(AdherenceInput{ConfluenceScore: 4, Probability: 65, RewardRisk: 3, RewardRiskOK: true, PnLPoints: 1}))
	// 55 + 10 + 0 + 8 - 18 - 6 = 49
	assert.Equal(t, 49.0, AdherenceScore(AdherenceInput{ConfluenceScore: 2, Probability: 40, RewardRisk: 1.5, RewardRiskOK: true, Severity: CoachingCritical, PnLPoints: -2}))
	// warning, no geometry, flat outcome: 55 + 0 + 12 - 8 = 59
	assert.Equal(t, 59.0, AdherenceScore(AdherenceInput{Probability: 100, Severity: CoachingWarning}))
	// out-of-range inputs are clamped: 55 + 0 + 0 - 18 - 6 = 31
	assert.Equal(t, 31.0, AdherenceScore(AdherenceInput{ConfluenceScore: -10, Probability: -500, Severity: CoachingCritical, PnLPoints: -1}))
}

func TestNewArtifact(t *testing.T) {
	a := NewArtifact(sampleTrade(), &CoachingDecision{Severity: CoachingWarning, Message: "size down"})

	assert.Equal(t, "t-1", a.ID)
	assert.Equal(t, "SPX", a.Symbol)
	assert.Equal(t, 45.0, a.HoldMinutes)
	assert.Equal(t, 4.0, a.PnLPoints)
	assert.Equal(t, 800.0, a.PnL)
	assert.Equal(t, 2.0, a.ExpectancyR)
	assert.Equal(t, "6030C", a.Contract)
	assert.Equal(t, CoachingWarning, a.CoachingSeverity)
	// 55 + 20 + 3.6 + 16*(3/3) - 8 + 6 = 92.6
	assert.Equal(t, 93.0, a.AdherenceScore)
	assert.Equal(t, 3.0, a.RiskContext["rewardRisk"])
	assert.True(t, strings.HasPrefix(a.SnapshotTag, "snap-"))
	assert.Equal(t, a.SnapshotTag, NewArtifact(sampleTrade(), nil).SnapshotTag, "tag is content-derived")
}

func TestNewArtifactBearishAndExplicitPnL(t *testing.T) {
	tr := sampleTrade()
	tr.ID = ""
	tr.Direction = types.DirectionBearish
	tr.EntryPrice, tr.ExitPrice, tr.Stop, tr.Target = 100, 103, 102, 96
	pnl := -310.5
	tr.PnL = &pnl

	a := NewArtifact(tr, nil)
	assert.Empty(t, a.ID)
	assert.Equal(t, a, NewArtifact(tr, nil))
	assert.Equal(t, -3.0, a.PnLPoints)
	assert.Equal(t, -310.5, a.PnL)
	assert.Equal(t, -1.5, a.ExpectancyR)
	assert.False(t, a.Won())
}

func TestNewArtifactMissingStop(t *testing.T) {
	tr := sampleTrade()
	tr.Stop = 0
	a := NewArtifact(tr, nil)
	assert.Zero(t, a.ExpectancyR)
	assert.NotContains(t, a.RiskContext, "rewardRisk")
}

func TestAppendCapped(t *testing.T) {
	var list []Artifact
	for i := 0; i < 10; i++ {
		list = AppendCapped(list, Artifact{ID: fmt.Sprintf("a%d", i), ExitAtMs: int64(i)}, 5)
	}
	require.Len(t, list, 5)
	assert.Equal(t, "a9", list[0].ID)
	assert.Equal(t, "a5", list[4].ID)

	replaced := AppendCapped(list, Artifact{ID: "a7", ExitAtMs: 100, PnL: 1}, 5)
	require.Len(t, replaced, 5)
	assert.Equal(t, "a7", replaced[0].ID)
	assert.Equal(t, 1.0, replaced[0].PnL)
	assert.Equal(t, "a7", list[2].ID, "input untouched")
	assert.Zero(t, list[2].PnL)
}

func TestJournalWithKVRepository(t *testing.T) {
	ctx := context.Background()
	j := New(NewKVRepository(kv.NewMemory()), 3)

	for i := 0; i < 4; i++ {
		tr := sampleTrade()
		tr.ID = fmt.Sprintf("t-%d", i)
		tr.ExitAtMs += int64(i) * minute
		_, err := j.Record(ctx, tr, nil)
		require.NoError(t, err)
	}
	list, err := j.List(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "t-3", list[0].ID)

	list, err = j.List(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	a, err := j.Get(ctx, "u1", "t-2")
	require.NoError(t, err)
	assert.Equal(t, "t-2", a.ID)
	_, err = j.Get(ctx, "u1", "t-0")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = j.Record(ctx, ClosedTrade{}, nil)
	assert.Error(t, err)

	res, err := j.GradeRecent(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stats.Trades)
}

func TestGradeSessionA(t *testing.T) {
	trades := []SessionTrade{
		{PnL: 300, EVR: 2.1, AlignmentScore: 85, StopUsed: true, Trimmed: true, Quantity: 1},
		{PnL: 150, EVR: 2.4, AlignmentScore: 82, StopUsed: true, Trimmed: true, Quantity: 1},
		{PnL: 90, EVR: 2.0, AlignmentScore: 90, StopUsed: true, Trimmed: true, Quantity: 1},
	}
	res := GradeSession(trades)
	assert.Equal(t, "A", res.Grade)
	assert.GreaterOrEqual(t, res.Score, 85.0)
	assert.Equal(t, GradeComponents{WinRate: 30, Expectancy: 25, Discipline: 25, Risk: 15}, res.Components)
	assert.Len(t, res.Factors, 4)
}

func TestGradeSessionBands(t *testing.T) {
	trades := []SessionTrade{
		{PnL: 100, EVR: 0.6, AlignmentScore: 60, StopUsed: true, Quantity: 1},
		{PnL: -50, EVR: 0.4, AlignmentScore: 50, StopUsed: false, Trimmed: true, Quantity: 2},
	}
	res := GradeSession(trades)
	// win 50% -> 15, EV 0.5 -> 14, alignment 55 -> 12, stops 50% +5, trims 50% +5, varied +5
	assert.Equal(t, GradeComponents{WinRate: 15, Expectancy: 14, Discipline: 12, Risk: 15}, res.Components)
	assert.Equal(t, 56.0, res.Score)
	assert.Equal(t, "C", res.Grade)
	assert.True(t, res.Stats.VariedSize)

	empty := GradeSession(nil)
	assert.Equal(t, "F", empty.Grade)
	assert.NotEmpty(t, empty.Factors)
}

func TestLetterGrade(t *testing.T) {
	assert.Equal(t, "A", LetterGrade(85))
	assert.Equal(t, "B", LetterGrade(70))
	assert.Equal(t, "C", LetterGrade(55))
	assert.Equal(t, "D", LetterGrade(40))
	assert.Equal(t, "F", LetterGrade(39.9))
}

func TestRecordAssignsIDWhenMissing(t *testing.T) {
	ctx := context.Background()
	j := New(NewKVRepository(kv.NewMemory()), 0)
	tr := sampleTrade()
	tr.ID = ""

	a, err := j.Record(ctx, tr, nil)
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)
	got, err := j.Get(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.SnapshotTag, got.SnapshotTag)
}

func TestKVRepositoryTrimsUserIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewKVRepository(kv.NewMemory())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		user := "u1"
		if i%2 == 0 {
			user = " u1 "
		}
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			assert.NoError(t, repo.Append(ctx, user, Artifact{ID: fmt.Sprintf("a%d", i), ExitAtMs: int64(i)}, 0))
		}(i, user)
	}
	wg.Wait()

	list, err := repo.List(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, list, 20)
}
