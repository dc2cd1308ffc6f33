package types

import "strings"

// SetupType 枚举上游形态识别产出的 9 种 setup。
type SetupType string

const (
	SetupFadeAtWall        SetupType = "fade_at_wall"
	SetupBreakoutVacuum    SetupType = "breakout_vacuum"
	SetupMeanReversion     SetupType = "mean_reversion"
	SetupTrendContinuation SetupType = "trend_continuation"
	SetupORBBreakout       SetupType = "orb_breakout"
	SetupVWAPReclaim       SetupType = "vwap_reclaim"
	SetupGammaSqueeze      SetupType = "gamma_squeeze"
	SetupPivotRejection    SetupType = "pivot_rejection"
	SetupFlipReclaim       SetupType = "flip_reclaim"
)

// SetupTypes lists every known kind in a stable order.
var SetupTypes = []SetupType{
	SetupFadeAtWall,
	SetupBreakoutVacuum,
	SetupMeanReversion,
	SetupTrendContinuation,
	SetupORBBreakout,
	SetupVWAPReclaim,
	SetupGammaSqueeze,
	SetupPivotRejection,
	SetupFlipReclaim,
}

type Direction string

const (
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
)

// Sign returns +1 for bullish, -1 for bearish and 0 otherwise.
func (d Direction) Sign() float64 {
	switch d {
	case DirectionBullish:
		return 1
	case DirectionBearish:
		return -1
	default:
		return 0
	}
}

type Regime string

const (
	RegimeTrending    Regime = "trending"
	RegimeRanging     Regime = "ranging"
	RegimeCompression Regime = "compression"
	RegimeBreakout    Regime = "breakout"
)

// Known reports whether r is one of the four classified regimes.
func (r Regime) Known() bool {
	switch r {
	case RegimeTrending, RegimeRanging, RegimeCompression, RegimeBreakout:
		return true
	default:
		return false
	}
}

// NormalizeRegime lower-cases and trims a free-form regime label.
func NormalizeRegime(raw string) Regime {
	return Regime(strings.ToLower(strings.TrimSpace(raw)))
}

type Tier string

const (
	TierSniperPrimary   Tier = "sniper_primary"
	TierSniperSecondary Tier = "sniper_secondary"
	TierWatchlist       Tier = "watchlist"
	TierHidden          Tier = "hidden"
)

// Valid reports whether t is one of the four setup tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierSniperPrimary, TierSniperSecondary, TierWatchlist, TierHidden:
		return true
	default:
		return false
	}
}

type ConfidenceTrend string

const (
	TrendUp   ConfidenceTrend = "up"
	TrendDown ConfidenceTrend = "down"
	TrendFlat ConfidenceTrend = "flat"
)

type PriceZone struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Mid returns the midpoint of the zone.
func (z PriceZone) Mid() float64 {
	return (z.Low + z.High) / 2
}

type PriceTarget struct {
	Price float64 `json:"price"`
}

// MemoryContext 记录该形态在历史上的测试结果。
type MemoryContext struct {
	Tests          int     `json:"tests"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	WinRatePct     float64 `json:"winRatePct"`
	LastTestResult string  `json:"lastTestResult,omitempty"`
}

// ContractRef describes the option contract suggested for a setup.
type ContractRef struct {
	Strike   float64 `json:"strike"`
	Type     string  `json:"type"`
	ExpiryMs int64   `json:"expiryMs"`
}

// Setup 是一个候选交易想法，决策引擎每个评估周期会在副本上写入富化字段。
type Setup struct {
	ID                  string             `json:"id"`
	Symbol              string             `json:"symbol,omitempty"`
	Type                SetupType          `json:"type"`
	Direction           Direction          `json:"direction"`
	Regime              Regime             `json:"regime"`
	EntryZone           PriceZone          `json:"entryZone"`
	Stop                float64            `json:"stop"`
	Target1             PriceTarget        `json:"target1"`
	Target2             PriceTarget        `json:"target2"`
	ConfluenceScore     float64            `json:"confluenceScore"`
	ConfluenceBreakdown map[string]float64 `json:"confluenceBreakdown,omitempty"`
	Probability         float64            `json:"probability"`
	CreatedAt           int64              `json:"createdAt"`
	TriggeredAt         int64              `json:"triggeredAt,omitempty"`
	StatusUpdatedAt     int64              `json:"statusUpdatedAt,omitempty"`
	MemoryContext       *MemoryContext     `json:"memoryContext,omitempty"`
	Contract            *ContractRef       `json:"contract,omitempty"`

	Score           float64         `json:"score"`
	Tier            Tier            `json:"tier,omitempty"`
	PWinCalibrated  float64         `json:"pWinCalibrated"`
	EVR             float64         `json:"evR"`
	AlignmentScore  float64         `json:"alignmentScore"`
	ConfidenceTrend ConfidenceTrend `json:"confidenceTrend,omitempty"`
	Drivers         []string        `json:"drivers,omitempty"`
	Risks           []string        `json:"risks,omitempty"`
}

// Clone returns a deep copy so enrichment never aliases the caller's setup.
func (s Setup) Clone() Setup {
	out := s
	if s.ConfluenceBreakdown != nil {
		out.ConfluenceBreakdown = make(map[string]float64, len(s.ConfluenceBreakdown))
		for k, v := range s.ConfluenceBreakdown {
			out.ConfluenceBreakdown[k] = v
		}
	}
	if s.MemoryContext != nil {
		mc := *s.MemoryContext
		out.MemoryContext = &mc
	}
	if s.Contract != nil {
		c := *s.Contract
		out.Contract = &c
	}
	out.Drivers = append([]string(nil), s.Drivers...)
	out.Risks = append([]string(nil), s.Risks...)
	return out
}

// RewardRisk returns reward/risk measured from the entry-zone midpoint to
// target1 and stop. ok is false when either leg is non-positive.
func (s Setup) RewardRisk() (ratio float64, ok bool) {
	entry := s.EntryZone.Mid()
	sign := s.Direction.Sign()
	if sign == 0 {
		sign = 1
	}
	risk := (entry - s.Stop) * sign
	reward := (s.Target1.Price - entry) * sign
	if risk <= 0 || reward <= 0 {
		return 0, false
	}
	return reward / risk, true
}
