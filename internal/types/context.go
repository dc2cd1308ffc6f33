package types

// Prediction is the directional split from the multi-timeframe predictor.
type Prediction struct {
	BullishPct float64 `json:"bullishPct"`
	BearishPct float64 `json:"bearishPct"`
}

// FlowEvent 是一笔经过上游归一化的期权订单流。
type FlowEvent struct {
	Direction   Direction `json:"direction"`
	Size        float64   `json:"size"`
	Type        string    `json:"type,omitempty"`
	TimestampMs int64     `json:"timestampMs"`
}

type GEXProfile struct {
	NetGex float64 `json:"netGex"`
}

type BasisLeader string

const (
	BasisSPX     BasisLeader = "SPX"
	BasisSPY     BasisLeader = "SPY"
	BasisNeutral BasisLeader = "neutral"
)

type BasisState struct {
	Leading BasisLeader `json:"leading"`
}

// Bar is an OHLC bar; only used to derive ATR when metrics omit it.
type Bar struct {
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// MLOverrides lets a caller force the ML flags for one evaluation.
type MLOverrides struct {
	ConfidenceEnabled *bool `json:"confidenceEnabled,omitempty"`
	TierEnabled       *bool `json:"tierEnabled,omitempty"`
	RolloutPct        *int  `json:"rolloutPct,omitempty"`
}

// Metric keys understood by the feature extractor.
const (
	MetricATR7           = "atr7"
	MetricATR14          = "atr14"
	MetricDistanceToVWAP = "distanceToVWAP"
	MetricIVRank         = "ivRank"
	MetricIVSkew         = "ivSkew"
	MetricPutCallRatio   = "putCallRatio"
	MetricDTE            = "dte"
	MetricIV             = "iv"
	MetricRealizedVol    = "realizedVol"
)

// FeatureExtractionContext 是单次评估的只读快照。
type FeatureExtractionContext struct {
	Regime      Regime         `json:"regime"`
	Prediction  *Prediction    `json:"prediction,omitempty"`
	FlowEvents  []FlowEvent    `json:"flowEvents,omitempty"`
	GEX         *GEXProfile    `json:"gex,omitempty"`
	Basis       *BasisState    `json:"basis,omitempty"`
	Metrics     map[string]any `json:"metrics,omitempty"`
	Bars        []Bar          `json:"bars,omitempty"`
	UserID      string         `json:"userId,omitempty"`
	MLOverrides *MLOverrides   `json:"mlOverrides,omitempty"`
	NowMs       int64          `json:"nowMs"`
}
