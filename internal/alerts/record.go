package alerts

import (
	"sort"
	"time"
)

type Severity string

const (
	SeverityRoutine  Severity = "routine"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s == SeverityRoutine || s == SeverityWarning || s == SeverityCritical
}

type Status string

const (
	StatusNew     Status = "new"
	StatusSeen    Status = "seen"
	StatusSnoozed Status = "snoozed"
	StatusMuted   Status = "muted"
	StatusExpired Status = "expired"
)

// DefaultTTL is how long an untouched record survives.
const DefaultTTL = 72 * time.Hour

// Record 是单条教练提醒的生命周期状态。
type Record struct {
	ID           string   `json:"id"`
	SetupID      string   `json:"setupId,omitempty"`
	Severity     Severity `json:"severity"`
	Status       Status   `json:"status"`
	SeenAt       *int64   `json:"seenAt,omitempty"`
	SnoozedUntil *int64   `json:"snoozedUntil,omitempty"`
	MutedUntil   *int64   `json:"mutedUntil,omitempty"`
	UpdatedAt    int64    `json:"updatedAt"`
}

// Surfaced reports whether the record should be shown to the trader.
func (r Record) Surfaced() bool {
	return r.Status == StatusNew || r.Status == StatusExpired
}

func ptr(v int64) *int64 { return &v }

// Prune drops records untouched for longer than ttl and turns lapsed
// snooze/mute windows into expired. It reports whether anything changed.
func Prune(records map[string]Record, nowMs int64, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cutoff := nowMs - ttl.Milliseconds()
	changed := false
	for id, r := range records {
		if r.UpdatedAt < cutoff {
			delete(records, id)
			changed = true
			continue
		}
		switch {
		case r.Status == StatusSnoozed && (r.SnoozedUntil == nil || *r.SnoozedUntil <= nowMs):
			r.Status = StatusExpired
			r.UpdatedAt = nowMs
			records[id] = r
			changed = true
		case r.Status == StatusMuted && (r.MutedUntil == nil || *r.MutedUntil <= nowMs):
			r.Status = StatusExpired
			r.UpdatedAt = nowMs
			records[id] = r
			changed = true
		}
	}
	return changed
}

// sortForDisplay orders by severity, then most recently updated.
func sortForDisplay(list []Record) {
	sort.SliceStable(list, func(i, j int) bool {
		if a, b := list[i].Severity.rank(), list[j].Severity.rank(); a != b {
			return a > b
		}
		if list[i].UpdatedAt != list[j].UpdatedAt {
			return list[i].UpdatedAt > list[j].UpdatedAt
		}
		return list[i].ID < list[j].ID
	})
}
