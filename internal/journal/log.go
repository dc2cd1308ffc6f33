// Package journal builds trade journal artifacts, keeps the capped per-user
// journal log and grades sessions for coaching feedback.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"coachdesk/internal/store/kv"

	"github.com/google/uuid"
)

// DefaultMaxItems caps each user's journal.
const DefaultMaxItems = 240

var (
	ErrNotFound    = errors.New("journal artifact not found")
	ErrMissingUser = errors.New("journal: user id required")
)

// AppendCapped replaces any artifact with the same id, orders by close time
// descending and keeps at most max items. The input slice is not modified.
func AppendCapped(list []Artifact, a Artifact, max int) []Artifact {
	if max <= 0 {
		max = DefaultMaxItems
	}
	out := make([]Artifact, 0, len(list)+1)
	for _, existing := range list {
		if existing.ID != a.ID {
			out = append(out, existing)
		}
	}
	out = append(out, a)
	sortByExitDesc(out)
	if len(out) > max {
		out = out[:max]
	}
	return out
}

func sortByExitDesc(list []Artifact) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].ExitAtMs != list[j].ExitAtMs {
			return list[i].ExitAtMs > list[j].ExitAtMs
		}
		return list[i].ID < list[j].ID
	})
}

// Repository persists journal artifacts per user.
type Repository interface {
	Append(ctx context.Context, userID string, a Artifact, max int) error
	List(ctx context.Context, userID string, limit int) ([]Artifact, error)
	Get(ctx context.Context, userID, id string) (Artifact, error)
}

// Journal wraps a repository with the artifact constructor and the cap.
type Journal struct {
	repo Repository
	max  int
}

func New(repo Repository, max int) *Journal {
	if max <= 0 {
		max = DefaultMaxItems
	}
	return &Journal{repo: repo, max: max}
}

// Record builds the artifact for t and appends it. A trade without an id
// gets a random one.
func (j *Journal) Record(ctx context.Context, t ClosedTrade, coaching *CoachingDecision) (Artifact, error) {
	t.UserID = strings.TrimSpace(t.UserID)
	if t.UserID == "" {
		return Artifact{}, ErrMissingUser
	}
	a := NewArtifact(t, coaching)
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := j.repo.Append(ctx, t.UserID, a, j.max); err != nil {
		return Artifact{}, fmt.Errorf("append journal artifact: %w", err)
	}
	return a, nil
}

// List returns up to limit artifacts, newest close first. limit <= 0 means all.
func (j *Journal) List(ctx context.Context, userID string, limit int) ([]Artifact, error) {
	return j.repo.List(ctx, strings.TrimSpace(userID), limit)
}

func (j *Journal) Get(ctx context.Context, userID, id string) (Artifact, error) {
	return j.repo.Get(ctx, strings.TrimSpace(userID), id)
}

// GradeRecent grades the newest limit artifacts of userID.
func (j *Journal) GradeRecent(ctx context.Context, userID string, limit int) (SessionGradeResult, error) {
	list, err := j.repo.List(ctx, strings.TrimSpace(userID), limit)
	if err != nil {
		return SessionGradeResult{}, err
	}
	return GradeSession(TradesFromArtifacts(list)), nil
}

// KVRepository keeps each user's journal as one serialized list.
type KVRepository struct {
	store kv.Store
	locks sync.Map
}

func NewKVRepository(store kv.Store) *KVRepository {
	return &KVRepository{store: store}
}

func journalKey(userID string) string { return "journal:" + strings.TrimSpace(userID) }

func (r *KVRepository) load(ctx context.Context, userID string) ([]Artifact, error) {
	raw, err := r.store.Get(ctx, journalKey(userID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list []Artifact
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode journal: %w", err)
	}
	return list, nil
}

func (r *KVRepository) Append(ctx context.Context, userID string, a Artifact, max int) error {
	userID = strings.TrimSpace(userID)
	v, _ := r.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	list, err := r.load(ctx, userID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(AppendCapped(list, a, max))
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}
	return r.store.Set(ctx, journalKey(userID), raw)
}

func (r *KVRepository) List(ctx context.Context, userID string, limit int) ([]Artifact, error) {
	list, err := r.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (r *KVRepository) Get(ctx context.Context, userID, id string) (Artifact, error) {
	list, err := r.load(ctx, userID)
	if err != nil {
		return Artifact{}, err
	}
	for _, a := range list {
		if a.ID == id {
			return a, nil
		}
	}
	return Artifact{}, ErrNotFound
}
