package feedhealth

// ReasonCode identifies the single highest-priority condition behind a result.
type ReasonCode string

const (
	ReasonNone                   ReasonCode = "none"
	ReasonSnapshotDegraded       ReasonCode = "snapshot_degraded"
	ReasonUpstreamError          ReasonCode = "upstream_error"
	ReasonSnapshotLate           ReasonCode = "snapshot_late"
	ReasonSequenceGap            ReasonCode = "sequence_gap"
	ReasonHeartbeatStale         ReasonCode = "heartbeat_stale"
	ReasonTickStale              ReasonCode = "tick_stale"
	ReasonPollStale              ReasonCode = "poll_stale"
	ReasonSnapshotStale          ReasonCode = "snapshot_stale"
	ReasonPollFallbackActive     ReasonCode = "poll_fallback_active"
	ReasonSnapshotFallbackActive ReasonCode = "snapshot_fallback_active"
	ReasonLastKnownGood          ReasonCode = "last_known_good"
	ReasonNoLiveData             ReasonCode = "no_live_data"
)

type reasonInfo struct {
	health  Health
	blocks  bool
	message string
}

var catalogue = map[ReasonCode]reasonInfo{
	ReasonNone:                   {HealthHealthy, false, "Live data is flowing normally."},
	ReasonSnapshotDegraded:       {HealthDegraded, true, "Market snapshot is degraded upstream."},
	ReasonUpstreamError:          {HealthDegraded, true, "Market data service reported an error."},
	ReasonSnapshotLate:           {HealthStale, true, "Market snapshot is late."},
	ReasonSequenceGap:            {HealthDegraded, true, "Missed stream messages; waiting for resync."},
	ReasonHeartbeatStale:         {HealthStale, true, "Stream heartbeat stopped."},
	ReasonTickStale:              {HealthStale, true, "Live ticks have gone stale."},
	ReasonPollStale:              {HealthStale, true, "Polled prices have gone stale."},
	ReasonSnapshotStale:          {HealthStale, true, "Snapshot prices have gone stale."},
	ReasonPollFallbackActive:     {HealthDegraded, false, "Stream offline; using polled prices."},
	ReasonSnapshotFallbackActive: {HealthDegraded, false, "Stream offline; using snapshot prices."},
	ReasonLastKnownGood:          {HealthStale, true, "Disconnected; showing last known prices."},
	ReasonNoLiveData:             {HealthStale, true, "No live price data available."},
}

// Message is the user-facing text for code.
func Message(code ReasonCode) string {
	if info, ok := catalogue[code]; ok {
		return info.message
	}
	return "Unknown feed state."
}

// BlocksEntry reports whether code must block new trade entries. Unknown
// codes block.
func BlocksEntry(code ReasonCode) bool {
	info, ok := catalogue[code]
	return !ok || info.blocks
}

// HealthFor maps a reason code onto its health level.
func HealthFor(code ReasonCode) Health {
	if info, ok := catalogue[code]; ok {
		return info.health
	}
	return HealthStale
}
