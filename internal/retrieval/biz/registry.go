package biz

import (
	"context"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/provenance/internal/model"
	"github.com/kart-io/provenance/internal/retrieval/store"
	apperrors "github.com/kart-io/provenance/pkg/errors"
)

// toggleRetryBackoff is how long a losing toggle waits before its single retry.
const toggleRetryBackoff = 50 * time.Millisecond

// SourceRegistry owns the runtime state of every knowledge source. A toggle
// is a single metadata write guarded per source; the vector index is never
// touched. Queries take an immutable snapshot of the enabled set.
type SourceRegistry struct {
	raw store.RawStore

	mu      sync.RWMutex
	sources map[string]*model.Source
	version uint64

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex

	subMu sync.RWMutex
	subs  []chan model.ToggleEvent
}

// NewSourceRegistry creates a registry and loads all known sources.
func NewSourceRegistry(ctx context.Context, raw store.RawStore) (*SourceRegistry, error) {
	r := &SourceRegistry{
		raw:     raw,
		sources: make(map[string]*model.Source),
		locks:   make(map[string]*sync.Mutex),
	}
	list, err := raw.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	for _, src := range list {
		r.sources[src.ID] = src
	}
	return r, nil
}

// Register adds a new source. Status defaults to enabled when unset.
// Reliability is taken as given and must lie in [0, 1]; zero is a valid
// floor, defaulting for absent values belongs to the API edge.
func (r *SourceRegistry) Register(ctx context.Context, src *model.Source) (*model.Source, error) {
	if src.ID == "" || src.Name == "" {
		return nil, apperrors.ErrRetrievalInvalidRequest.WithMessage("source id and name are required")
	}
	if src.Status == "" {
		src.Status = model.SourceEnabled
	}
	if !src.Status.Valid() {
		return nil, apperrors.ErrInvalidSourceStatus
	}
	if src.Reliability < 0 || src.Reliability > 1 {
		return nil, apperrors.ErrRetrievalInvalidRequest.WithMessage("reliability must be within [0, 1]")
	}

	if err := r.raw.CreateSource(ctx, src); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sources[src.ID] = src
	r.version++
	r.mu.Unlock()

	logger.Infow("source registered", "source_id", src.ID, "status", src.Status, "reliability", src.Reliability)
	return src, nil
}

// Get returns the current state of one source.
func (r *SourceRegistry) Get(_ context.Context, id string) (*model.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[id]
	if !ok {
		return nil, apperrors.ErrSourceNotFound
	}
	cp := *src
	return &cp, nil
}

// List returns all sources from one consistent view.
func (r *SourceRegistry) List(_ context.Context) []*model.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Source, 0, len(r.sources))
	for _, src := range r.sources {
		cp := *src
		out = append(out, &cp)
	}
	return out
}

// SetStatus toggles one source with linearizable per-source semantics.
// Conflicting concurrent toggles serialize on a per-source lock; the loser
// retries once after a short backoff and then surfaces ErrConflictingToggle.
// Returns the status the source had before the call.
func (r *SourceRegistry) SetStatus(ctx context.Context, id string, to model.SourceStatus) (model.SourceStatus, error) {
	if !to.Valid() {
		return "", apperrors.ErrInvalidSourceStatus
	}

	lock := r.sourceLock(id)
	if !lock.TryLock() {
		select {
		case <-ctx.Done():
			return "", apperrors.ErrRetrievalTimeout.WithCause(ctx.Err())
		case <-time.After(toggleRetryBackoff):
		}
		if !lock.TryLock() {
			logger.Warnw("conflicting toggle lost after retry", "source_id", id, "target", to)
			return "", apperrors.ErrConflictingToggle
		}
	}
	defer lock.Unlock()

	r.mu.RLock()
	src, ok := r.sources[id]
	r.mu.RUnlock()
	if !ok {
		return "", apperrors.ErrSourceNotFound
	}

	prev := src.Status
	if prev == to {
		// Idempotent no-op, no version bump and no event.
		return prev, nil
	}
	if prev == model.SourceQuarantined {
		return prev, apperrors.ErrSourceQuarantined
	}

	if err := r.raw.UpdateSourceStatusCAS(ctx, id, prev, to); err != nil {
		return prev, err
	}

	r.mu.Lock()
	src.Status = to
	src.UpdatedAt = time.Now()
	r.version++
	r.mu.Unlock()

	event := model.ToggleEvent{SourceID: id, From: prev, To: to, OccurredAt: time.Now()}
	r.publish(event)

	logger.Infow("source toggled", "source_id", id, "from", prev, "to", to)
	return prev, nil
}

// Snapshot returns an immutable copy of the enabled set. The copy is taken
// under one read lock so the set, version and time are mutually consistent.
func (r *SourceRegistry) Snapshot(_ context.Context) model.EnabledSet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make(map[string]struct{})
	for id, src := range r.sources {
		if src.Status.Active() {
			ids[id] = struct{}{}
		}
	}
	return model.EnabledSet{
		IDs:     ids,
		Version: r.version,
		TakenAt: time.Now(),
	}
}

// Reliability returns the reliability scores for all sources in the snapshot.
func (r *SourceRegistry) Reliability(_ context.Context, set model.EnabledSet) map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]float64, len(set.IDs))
	for id := range set.IDs {
		if src, ok := r.sources[id]; ok {
			out[id] = src.Reliability
		}
	}
	return out
}

// Subscribe returns a channel that receives every committed toggle event.
// Slow subscribers drop events rather than block the toggle path.
func (r *SourceRegistry) Subscribe() <-chan model.ToggleEvent {
	ch := make(chan model.ToggleEvent, 16)
	r.subMu.Lock()
	r.subs = append(r.subs, ch)
	r.subMu.Unlock()
	return ch
}

func (r *SourceRegistry) publish(event model.ToggleEvent) {
	r.subMu.RLock()
	defer r.subMu.RUnlock()
	for _, ch := range r.subs {
		select {
		case ch <- event:
		default:
			logger.Warnw("toggle event dropped, subscriber too slow", "source_id", event.SourceID)
		}
	}
}

func (r *SourceRegistry) sourceLock(id string) *sync.Mutex {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()
	lock, ok := r.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[id] = lock
	}
	return lock
}
