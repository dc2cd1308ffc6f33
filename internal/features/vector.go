package features

import "coachdesk/internal/pkg/convert"

// Feature names, also used as keys in tier-model weight maps.
const (
	Confluence          = "confluence"
	RegimeCompatibility = "regimeCompatibility"
	FlowBias            = "flowBias"
	FlowRecency         = "flowRecency"
	FlowVolume          = "flowVolume"
	DistanceToVWAP      = "distanceToVWAP"
	ATRRatio            = "atrRatio"
	IVRank              = "ivRank"
	IVSkew              = "ivSkew"
	PutCallRatio        = "putCallRatio"
	NetGex              = "netGex"
	MinutesIntoSession  = "minutesIntoSession"
	DayOfWeek           = "dayOfWeek"
	DTE                 = "dte"
	HistoricalWinRate   = "historicalWinRate"
	HistoricalTestCount = "historicalTestCount"
	LastTestResult      = "lastTestResult"
	RiskReward          = "riskReward"
)

// Names is the canonical vector order; model input columns follow it.
var Names = []string{
	Confluence,
	RegimeCompatibility,
	FlowBias,
	FlowRecency,
	FlowVolume,
	DistanceToVWAP,
	ATRRatio,
	IVRank,
	IVSkew,
	PutCallRatio,
	NetGex,
	MinutesIntoSession,
	DayOfWeek,
	DTE,
	HistoricalWinRate,
	HistoricalTestCount,
	LastTestResult,
	RiskReward,
}

// Count is the length of a feature vector.
var Count = len(Names)

// Vector is the per-evaluation feature output. Values are rounded to 4
// places and already clamped to the documented ranges.
type Vector struct {
	Confluence          float64 `json:"confluence"`          // [0,5]
	RegimeCompatibility float64 `json:"regimeCompatibility"` // [0,1]
	FlowBias            float64 `json:"flowBias"`            // [-1,1]
	FlowRecency         float64 `json:"flowRecency"`         // [0,1]
	FlowVolume          float64 `json:"flowVolume"`          // [0,10]
	DistanceToVWAP      float64 `json:"distanceToVWAP"`      // [-10,10]
	ATRRatio            float64 `json:"atrRatio"`            // [0,3]
	IVRank              float64 `json:"ivRank"`              // [0,100]
	IVSkew              float64 `json:"ivSkew"`              // [-1,1]
	PutCallRatio        float64 `json:"putCallRatio"`        // [0,3]
	NetGex              float64 `json:"netGex"`              // [-10,10] billions
	MinutesIntoSession  float64 `json:"minutesIntoSession"`  // [0,390]
	DayOfWeek           float64 `json:"dayOfWeek"`           // 0=Mon .. 6=Sun
	DTE                 float64 `json:"dte"`                 // [0,60]
	HistoricalWinRate   float64 `json:"historicalWinRate"`   // [0,1]
	HistoricalTestCount float64 `json:"historicalTestCount"` // [0,500]
	LastTestResult      float64 `json:"lastTestResult"`      // -1,0,1
	RiskReward          float64 `json:"riskReward"`          // [0,10]
}

// Values returns the raw vector in Names order.
func (v Vector) Values() []float64 {
	return []float64{
		v.Confluence,
		v.RegimeCompatibility,
		v.FlowBias,
		v.FlowRecency,
		v.FlowVolume,
		v.DistanceToVWAP,
		v.ATRRatio,
		v.IVRank,
		v.IVSkew,
		v.PutCallRatio,
		v.NetGex,
		v.MinutesIntoSession,
		v.DayOfWeek,
		v.DTE,
		v.HistoricalWinRate,
		v.HistoricalTestCount,
		v.LastTestResult,
		v.RiskReward,
	}
}

type normalizer func(float64) float64

func scaled(scale float64) normalizer {
	return func(x float64) float64 { return convert.Clamp(x/scale, -1, 1) }
}

func identity(x float64) float64 { return x }

var normalizers = map[string]normalizer{
	Confluence:          func(x float64) float64 { return x / 5 },
	RegimeCompatibility: identity,
	FlowBias:            func(x float64) float64 { return (x + 1) / 2 },
	FlowRecency:         identity,
	FlowVolume:          scaled(10),
	DistanceToVWAP:      func(x float64) float64 { return x / 10 },
	ATRRatio:            scaled(3),
	IVRank:              scaled(100),
	IVSkew:              scaled(1),
	PutCallRatio:        scaled(3),
	NetGex:              scaled(10),
	MinutesIntoSession:  scaled(390),
	DayOfWeek:           scaled(6),
	DTE:                 scaled(60),
	HistoricalWinRate:   identity,
	HistoricalTestCount: scaled(500),
	LastTestResult:      scaled(1),
	RiskReward:          scaled(5),
}

// Normalized maps every feature into a model-friendly range, in Names order.
func (v Vector) Normalized() []float64 {
	raw := v.Values()
	out := make([]float64, len(raw))
	for i, name := range Names {
		out[i] = normalizers[name](raw[i])
	}
	return out
}

// NormalizedMap is Normalized keyed by feature name.
func (v Vector) NormalizedMap() map[string]float64 {
	norm := v.Normalized()
	out := make(map[string]float64, len(norm))
	for i, name := range Names {
		out[name] = norm[i]
	}
	return out
}
