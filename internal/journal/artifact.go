package journal

import (
	"fmt"
	"strings"

	"coachdesk/internal/marketclock"
	"coachdesk/internal/model"
	"coachdesk/internal/types"

	"github.com/shopspring/decimal"
)

// ContractMultiplier converts option premium points into dollars per contract.
const ContractMultiplier = 100

// CoachingDecision is the coach's guidance captured when the trade was taken.
type CoachingDecision struct {
	Severity CoachingSeverity `json:"severity"`
	Action   string           `json:"action,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// ClosedTrade 是平仓后的原始成交记录。
type ClosedTrade struct {
	ID              string             `json:"id,omitempty"`
	UserID          string             `json:"userId,omitempty"`
	SetupID         string             `json:"setupId,omitempty"`
	SetupType       types.SetupType    `json:"setupType,omitempty"`
	Symbol          string             `json:"symbol"`
	Direction       types.Direction    `json:"direction"`
	EntryPrice      float64            `json:"entryPrice"`
	ExitPrice       float64            `json:"exitPrice"`
	Stop            float64            `json:"stop"`
	Target          float64            `json:"target,omitempty"`
	Quantity        float64            `json:"quantity"`
	EntryAtMs       int64              `json:"entryAtMs"`
	ExitAtMs        int64              `json:"exitAtMs"`
	PnL             *float64           `json:"pnl,omitempty"`
	ConfluenceScore float64            `json:"confluenceScore"`
	Probability     float64            `json:"probability"`
	AlignmentScore  float64            `json:"alignmentScore"`
	EVR             float64            `json:"evR"`
	StopUsed        bool               `json:"stopUsed"`
	Trimmed         bool               `json:"trimmed"`
	Contract        *types.ContractRef `json:"contract,omitempty"`
	ChartContext    map[string]any     `json:"chartContext,omitempty"`
}

// Artifact is the immutable journal row built at trade close.
type Artifact struct {
	ID               string           `json:"id"`
	UserID           string           `json:"userId,omitempty"`
	SetupID          string           `json:"setupId,omitempty"`
	SetupType        types.SetupType  `json:"setupType,omitempty"`
	Symbol           string           `json:"symbol"`
	Direction        types.Direction  `json:"direction"`
	EntryPrice       float64          `json:"entryPrice"`
	ExitPrice        float64          `json:"exitPrice"`
	Stop             float64          `json:"stop"`
	Target           float64          `json:"target,omitempty"`
	Quantity         float64          `json:"quantity"`
	EntryAtMs        int64            `json:"entryAtMs"`
	ExitAtMs         int64            `json:"exitAtMs"`
	HoldMinutes      float64          `json:"holdMinutes"`
	PnLPoints        float64          `json:"pnlPoints"`
	PnL              float64          `json:"pnl"`
	ExpectancyR      float64          `json:"expectancyR"`
	AdherenceScore   float64          `json:"adherenceScore"`
	AlignmentScore   float64          `json:"alignmentScore"`
	EVR              float64          `json:"evR"`
	StopUsed         bool             `json:"stopUsed"`
	Trimmed          bool             `json:"trimmed"`
	Contract         string           `json:"contract,omitempty"`
	CoachingSeverity CoachingSeverity `json:"coachingSeverity,omitempty"`
	CoachingMessage  string           `json:"coachingMessage,omitempty"`
	SnapshotTag      string           `json:"snapshotTag"`
	RiskContext      map[string]any   `json:"riskContext,omitempty"`
}

// Won reports a strictly positive P&L.
func (a Artifact) Won() bool { return a.PnL > 0 }

// DescribeContract renders "6030C 2026-03-10" style labels.
func DescribeContract(c *types.ContractRef) string {
	if c == nil {
		return ""
	}
	kind := strings.ToUpper(strings.TrimSpace(c.Type))
	if len(kind) > 0 {
		kind = kind[:1]
	}
	label := decimal.NewFromFloat(c.Strike).String() + kind
	if c.ExpiryMs > 0 {
		label += " " + marketclock.Default().SessionDate(c.ExpiryMs)
	}
	return label
}

// SnapshotTag is a stable content hash of the trade's identifying fields.
func SnapshotTag(t ClosedTrade) string {
	key := fmt.Sprintf("%s|%s|%s|%s|%s|%d|%d",
		t.SetupID,
		strings.ToUpper(strings.TrimSpace(t.Symbol)),
		t.Direction,
		decimal.NewFromFloat(t.EntryPrice).String(),
		decimal.NewFromFloat(t.ExitPrice).String(),
		t.EntryAtMs,
		t.ExitAtMs,
	)
	return fmt.Sprintf("snap-%08x", model.FNV1a32(key))
}

// NewArtifact builds the journal row for a closed trade. coaching may be nil.
// The id is left empty when the trade carries none.
func NewArtifact(t ClosedTrade, coaching *CoachingDecision) Artifact {
	sign := decimal.NewFromFloat(t.Direction.Sign())
	if t.Direction.Sign() == 0 {
		sign = decimal.NewFromInt(1)
	}
	entry := decimal.NewFromFloat(t.EntryPrice)
	exit := decimal.NewFromFloat(t.ExitPrice)
	stop := decimal.NewFromFloat(t.Stop)
	points := exit.Sub(entry).Mul(sign)

	pnl := points.Mul(decimal.NewFromFloat(t.Quantity)).Mul(decimal.NewFromInt(ContractMultiplier))
	if t.PnL != nil {
		pnl = decimal.NewFromFloat(*t.PnL)
	}

	expectancy := decimal.Zero
	if riskDist := entry.Sub(stop).Abs(); t.Stop > 0 && riskDist.IsPositive() {
		expectancy = points.Div(riskDist)
	}

	hold := 0.0
	if t.ExitAtMs > t.EntryAtMs && t.EntryAtMs > 0 {
		hold = decimal.NewFromInt(t.ExitAtMs - t.EntryAtMs).Div(decimal.NewFromInt(60_000)).Round(2).InexactFloat64()
	}

	rr, rrOK := rewardRisk(t)
	a := Artifact{
		ID:             strings.TrimSpace(t.ID),
		UserID:         t.UserID,
		SetupID:        t.SetupID,
		SetupType:      t.SetupType,
		Symbol:         strings.ToUpper(strings.TrimSpace(t.Symbol)),
		Direction:      t.Direction,
		EntryPrice:     t.EntryPrice,
		ExitPrice:      t.ExitPrice,
		Stop:           t.Stop,
		Target:         t.Target,
		Quantity:       t.Quantity,
		EntryAtMs:      t.EntryAtMs,
		ExitAtMs:       t.ExitAtMs,
		HoldMinutes:    hold,
		PnLPoints:      points.Round(4).InexactFloat64(),
		PnL:            pnl.Round(2).InexactFloat64(),
		ExpectancyR:    expectancy.Round(2).InexactFloat64(),
		AlignmentScore: t.AlignmentScore,
		EVR:            t.EVR,
		StopUsed:       t.StopUsed,
		Trimmed:        t.Trimmed,
		Contract:       DescribeContract(t.Contract),
		SnapshotTag:    SnapshotTag(t),
		RiskContext:    riskContext(t, rr, rrOK),
	}
	in := AdherenceInput{
		ConfluenceScore: t.ConfluenceScore,
		Probability:     t.Probability,
		RewardRisk:      rr,
		RewardRiskOK:    rrOK,
		PnLPoints:       a.PnLPoints,
	}
	if coaching != nil {
		in.Severity = coaching.Severity
		a.CoachingSeverity = coaching.Severity
		a.CoachingMessage = coaching.Message
	}
	a.AdherenceScore = AdherenceScore(in)
	return a
}

func rewardRisk(t ClosedTrade) (float64, bool) {
	if t.Target <= 0 || t.Stop <= 0 {
		return 0, false
	}
	setup := types.Setup{
		Direction: t.Direction,
		EntryZone: types.PriceZone{Low: t.EntryPrice, High: t.EntryPrice},
		Stop:      t.Stop,
		Target1:   types.PriceTarget{Price: t.Target},
	}
	return setup.RewardRisk()
}

func riskContext(t ClosedTrade, rr float64, rrOK bool) map[string]any {
	out := make(map[string]any, len(t.ChartContext)+3)
	for k, v := range t.ChartContext {
		out[k] = v
	}
	out["stop"] = t.Stop
	if rrOK {
		out["rewardRisk"] = decimal.NewFromFloat(rr).Round(2).InexactFloat64()
	}
	if t.Contract != nil {
		out["strike"] = t.Contract.Strike
	}
	return out
}
