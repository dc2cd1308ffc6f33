// Package alerts keeps the per-user coaching alert lifecycle
// (new, seen, snoozed, muted, expired) in an injectable KV store.
package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"coachdesk/internal/store/kv"
)

var (
	ErrUnknownAlert  = errors.New("unknown alert")
	ErrInvalidWindow = errors.New("window must end in the future")
	ErrInvalidInput  = errors.New("invalid alert")
)

const keyPrefix = "alerts:"

// Alert is the payload for Upsert.
type Alert struct {
	ID       string   `json:"id"`
	SetupID  string   `json:"setupId,omitempty"`
	Severity Severity `json:"severity"`
}

// Manager serializes read-modify-write cycles per user.
type Manager struct {
	store kv.Store
	ttl   time.Duration
	locks sync.Map
}

func NewManager(store kv.Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: store, ttl: ttl}
}

func (m *Manager) lock(userID string) func() {
	v, _ := m.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func storageKey(userID string) string {
	return keyPrefix + strings.TrimSpace(userID)
}

// load reads, upgrades and prunes. dirty is true when the stored form must be rewritten.
func (m *Manager) load(ctx context.Context, userID string, nowMs int64) (Document, bool, error) {
	raw, err := m.store.Get(ctx, storageKey(userID))
	if errors.Is(err, kv.ErrNotFound) {
		return Document{Version: SchemaVersion, Records: map[string]Record{}}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("load alerts for %s: %w", userID, err)
	}
	doc, upgraded, err := Upgrade(raw, nowMs, m.ttl)
	if err != nil {
		return Document{}, false, err
	}
	pruned := Prune(doc.Records, nowMs, m.ttl)
	return doc, upgraded || pruned, nil
}

func (m *Manager) save(ctx context.Context, userID string, doc Document) error {
	doc.Version = SchemaVersion
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode alerts: %w", err)
	}
	if err := m.store.Set(ctx, storageKey(userID), raw); err != nil {
		return fmt.Errorf("save alerts for %s: %w", userID, err)
	}
	return nil
}

func (m *Manager) mutate(ctx context.Context, userID string, nowMs int64, fn func(records map[string]Record) error) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	unlock := m.lock(userID)
	defer unlock()
	doc, _, err := m.load(ctx, userID, nowMs)
	if err != nil {
		return err
	}
	if err := fn(doc.Records); err != nil {
		return err
	}
	return m.save(ctx, userID, doc)
}

// Load returns all live records, persisting any migration or pruning.
func (m *Manager) Load(ctx context.Context, userID string, nowMs int64) (map[string]Record, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	unlock := m.lock(userID)
	defer unlock()
	doc, dirty, err := m.load(ctx, userID, nowMs)
	if err != nil {
		return nil, err
	}
	if dirty {
		if err := m.save(ctx, userID, doc); err != nil {
			return nil, err
		}
	}
	return doc.Records, nil
}

// Upsert registers an alert. Unknown or expired ids start as new; a known
// record keeps its status unless the severity escalates, which resurfaces it.
func (m *Manager) Upsert(ctx context.Context, userID string, a Alert, nowMs int64) (Record, error) {
	a.ID = strings.TrimSpace(a.ID)
	if a.ID == "" {
		return Record{}, fmt.Errorf("%w: id required", ErrInvalidInput)
	}
	if a.Severity == "" {
		a.Severity = SeverityRoutine
	}
	if !a.Severity.Valid() {
		return Record{}, fmt.Errorf("%w: severity %q", ErrInvalidInput, a.Severity)
	}
	var out Record
	err := m.mutate(ctx, userID, nowMs, func(records map[string]Record) error {
		r, ok := records[a.ID]
		if !ok || r.Status == StatusExpired || a.Severity.rank() > r.Severity.rank() {
			r = Record{ID: a.ID, Status: StatusNew}
		}
		r.SetupID = a.SetupID
		r.Severity = a.Severity
		r.UpdatedAt = nowMs
		records[a.ID] = r
		out = r
		return nil
	})
	return out, err
}

func (m *Manager) transition(ctx context.Context, userID, id string, nowMs int64, apply func(*Record)) (Record, error) {
	var out Record
	err := m.mutate(ctx, userID, nowMs, func(records map[string]Record) error {
		r, ok := records[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownAlert, id)
		}
		apply(&r)
		r.UpdatedAt = nowMs
		records[id] = r
		out = r
		return nil
	})
	return out, err
}

// MarkSeen acknowledges an alert.
func (m *Manager) MarkSeen(ctx context.Context, userID, id string, nowMs int64) (Record, error) {
	return m.transition(ctx, userID, id, nowMs, func(r *Record) {
		r.Status = StatusSeen
		r.SeenAt = ptr(nowMs)
		r.SnoozedUntil = nil
		r.MutedUntil = nil
	})
}

// Snooze hides an alert until untilMs, after which it becomes expired.
func (m *Manager) Snooze(ctx context.Context, userID, id string, untilMs, nowMs int64) (Record, error) {
	if untilMs <= nowMs {
		return Record{}, ErrInvalidWindow
	}
	return m.transition(ctx, userID, id, nowMs, func(r *Record) {
		r.Status = StatusSnoozed
		r.SnoozedUntil = ptr(untilMs)
		r.MutedUntil = nil
	})
}

// Mute silences an alert until untilMs.
func (m *Manager) Mute(ctx context.Context, userID, id string, untilMs, nowMs int64) (Record, error) {
	if untilMs <= nowMs {
		return Record{}, ErrInvalidWindow
	}
	return m.transition(ctx, userID, id, nowMs, func(r *Record) {
		r.Status = StatusMuted
		r.MutedUntil = ptr(untilMs)
		r.SnoozedUntil = nil
	})
}

// Visible lists surfaced alerts, most severe first.
func (m *Manager) Visible(ctx context.Context, userID string, nowMs int64) ([]Record, error) {
	records, err := m.Load(ctx, userID, nowMs)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Surfaced() {
			out = append(out, r)
		}
	}
	sortForDisplay(out)
	return out, nil
}

// All lists every live record in display order.
func (m *Manager) All(ctx context.Context, userID string, nowMs int64) ([]Record, error) {
	records, err := m.Load(ctx, userID, nowMs)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		out = append(out, r)
	}
	sortForDisplay(out)
	return out, nil
}
