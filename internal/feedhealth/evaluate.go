// Package feedhealth classifies whether the live market-data feed can be
// trusted for trade entry. Evaluate is stateless and must be re-run on
// every tick or snapshot.
package feedhealth

import "strings"

type Health string

const (
	HealthHealthy  Health = "healthy"
	HealthDegraded Health = "degraded"
	HealthStale    Health = "stale"
)

type Stage string

const (
	StageLiveStream       Stage = "live_stream"
	StagePollFallback     Stage = "poll_fallback"
	StageSnapshotFallback Stage = "snapshot_fallback"
	StageLastKnownGood    Stage = "last_known_good"
)

type PriceSource string

const (
	SourceTick     PriceSource = "tick"
	SourcePoll     PriceSource = "poll"
	SourceSnapshot PriceSource = "snapshot"
	SourceNone     PriceSource = "none"
)

// Default staleness thresholds per price source.
const (
	DefaultTickStaleMs     int64 = 7_500
	DefaultPollStaleMs     int64 = 90_000
	DefaultSnapshotStaleMs int64 = 300_000
)

// Thresholds are per-source staleness limits in milliseconds; zero values use the defaults.
type Thresholds struct {
	TickStaleMs     int64 `json:"tickStaleMs,omitempty"`
	PollStaleMs     int64 `json:"pollStaleMs,omitempty"`
	SnapshotStaleMs int64 `json:"snapshotStaleMs,omitempty"`
}

func (t Thresholds) withDefaults() Thresholds {
	if t.TickStaleMs <= 0 {
		t.TickStaleMs = DefaultTickStaleMs
	}
	if t.PollStaleMs <= 0 {
		t.PollStaleMs = DefaultPollStaleMs
	}
	if t.SnapshotStaleMs <= 0 {
		t.SnapshotStaleMs = DefaultSnapshotStaleMs
	}
	return t
}

// Input 是单次评估的全部信号。
type Input struct {
	SnapshotDegraded    bool        `json:"snapshotDegraded"`
	SnapshotDegradedMsg string      `json:"snapshotDegradedMessage,omitempty"`
	Error               string      `json:"error,omitempty"`
	SnapshotRequestLate bool        `json:"snapshotRequestLate"`
	SnapshotAvailable   bool        `json:"snapshotAvailable"`
	StreamConnected     bool        `json:"streamConnected"`
	PriceSource         PriceSource `json:"spxPriceSource"`
	PriceAgeMs          *int64      `json:"spxPriceAgeMs,omitempty"`
	SequenceGapDetected bool        `json:"sequenceGapDetected"`
	HeartbeatStale      bool        `json:"heartbeatStale"`
	Thresholds          Thresholds  `json:"thresholds,omitempty"`
}

// Result is the full classification bundle.
type Result struct {
	DataHealth          Health     `json:"dataHealth"`
	FallbackStage       Stage      `json:"fallbackStage"`
	ReasonCode          ReasonCode `json:"fallbackReasonCode"`
	Message             string     `json:"fallbackReasonMessage"`
	BlockTradeEntry     bool       `json:"blockTradeEntry"`
	TickSourceStale     bool       `json:"tickSourceStale"`
	PollSourceStale     bool       `json:"pollSourceStale"`
	SnapshotSourceStale bool       `json:"snapshotSourceStale"`
}

// Stage picks which data tier is backing the displayed price.
func stageFor(in Input) Stage {
	switch {
	case in.StreamConnected && in.PriceSource == SourceTick:
		return StageLiveStream
	case in.PriceSource == SourcePoll:
		return StagePollFallback
	case in.PriceSource == SourceSnapshot:
		return StageSnapshotFallback
	case in.StreamConnected && in.PriceSource != SourceNone && in.PriceSource != "":
		return StageLiveStream
	default:
		return StageLastKnownGood
	}
}

func sourceStale(in Input, src PriceSource, limit int64) bool {
	if in.PriceSource != src {
		return false
	}
	if in.PriceAgeMs == nil {
		return true
	}
	return *in.PriceAgeMs > limit
}

// Evaluate runs the fixed-priority classification.
func Evaluate(in Input) Result {
	th := in.Thresholds.withDefaults()
	res := Result{
		FallbackStage:       stageFor(in),
		TickSourceStale:     sourceStale(in, SourceTick, th.TickStaleMs),
		PollSourceStale:     sourceStale(in, SourcePoll, th.PollStaleMs),
		SnapshotSourceStale: sourceStale(in, SourceSnapshot, th.SnapshotStaleMs),
	}

	var code ReasonCode
	switch {
	case in.SnapshotDegraded:
		code = ReasonSnapshotDegraded
	case strings.TrimSpace(in.Error) != "":
		code = ReasonUpstreamError
	case in.SnapshotRequestLate:
		code = ReasonSnapshotLate
	case in.SequenceGapDetected:
		code = ReasonSequenceGap
	case in.HeartbeatStale:
		code = ReasonHeartbeatStale
	case res.TickSourceStale:
		code = ReasonTickStale
	case res.PollSourceStale:
		code = ReasonPollStale
	case res.SnapshotSourceStale:
		code = ReasonSnapshotStale
	case res.FallbackStage == StagePollFallback:
		code = ReasonPollFallbackActive
	case res.FallbackStage == StageSnapshotFallback:
		code = ReasonSnapshotFallbackActive
	case !in.StreamConnected && in.SnapshotAvailable:
		code = ReasonLastKnownGood
	case res.FallbackStage == StageLastKnownGood:
		code = ReasonNoLiveData
	default:
		code = ReasonNone
	}

	res.ReasonCode = code
	res.DataHealth = HealthFor(code)
	res.BlockTradeEntry = BlocksEntry(code)
	res.Message = Message(code)
	switch code {
	case ReasonSnapshotDegraded:
		if msg := strings.TrimSpace(in.SnapshotDegradedMsg); msg != "" {
			res.Message = msg
		}
	case ReasonUpstreamError:
		res.Message = Message(code) + " " + strings.TrimSpace(in.Error)
	}
	return res
}
