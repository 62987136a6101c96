package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/provenance/internal/model"
	"github.com/kart-io/provenance/internal/retrieval/store"
	"github.com/kart-io/provenance/pkg/infra/pool"
)

// defaultOverFetchFactor is the multiplier applied to top_k when the index
// cannot push the source filter down and results are filtered after the fact.
const defaultOverFetchFactor = 3

// FilterPlan tells the engine how to honor the enabled-set snapshot for one
// query. Either the filter is pushed into the index, or the engine
// over-fetches and filters candidates itself.
type FilterPlan struct {
	// Pushdown 为 true 时 AllowedSources 下推到索引。
	Pushdown bool
	// AllowedSources 是快照内启用源的有序列表。
	AllowedSources []string
	// FetchK 是实际向索引请求的候选数。
	FetchK int
}

// Invalidator removes cached query results. Implemented by QueryCache.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Coordinator owns the consistency contract of the read path: queries see an
// immutable snapshot, toggles propagate to caches within the configured
// deadline, and the vector index is never mutated on the toggle path.
type Coordinator struct {
	registry    *SourceRegistry
	index       store.ChunkIndex
	invalidator Invalidator
	workers     *pool.Pool

	overFetch   int
	propagation time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// CoordinatorOption configures the Coordinator.
type CoordinatorOption func(*Coordinator)

// WithOverFetchFactor overrides the post-filter over-fetch multiplier.
func WithOverFetchFactor(factor int) CoordinatorOption {
	return func(c *Coordinator) {
		if factor > 0 {
			c.overFetch = factor
		}
	}
}

// WithPropagationDeadline bounds how long a toggle may take to reach caches.
func WithPropagationDeadline(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.propagation = d
		}
	}
}

// WithInvalidator wires the query cache invalidation target.
func WithInvalidator(inv Invalidator) CoordinatorOption {
	return func(c *Coordinator) {
		c.invalidator = inv
	}
}

// NewCoordinator creates a coordinator. Call Start to begin consuming toggle
// events and Stop on shutdown.
func NewCoordinator(registry *SourceRegistry, index store.ChunkIndex, workers *pool.Pool, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		registry:    registry,
		index:       index,
		workers:     workers,
		overFetch:   defaultOverFetchFactor,
		propagation: 2 * time.Second,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins consuming toggle events in the background.
func (c *Coordinator) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	events := c.registry.Subscribe()

	go func() {
		defer close(c.done)
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-events:
				c.propagate(event)
			}
		}
	}()
}

// Stop stops event consumption and waits for the worker to exit.
func (c *Coordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
}

// Snapshot takes the enabled-set snapshot that pins one query. Exposed here
// so the engine has a single place to get its consistency guarantees from.
func (c *Coordinator) Snapshot(ctx context.Context) model.EnabledSet {
	return c.registry.Snapshot(ctx)
}

// PlanQuery builds the filter plan for one query against a fixed snapshot.
// sourceFilter, when non-empty, narrows the query to a subset of the
// snapshot; sources outside the snapshot are silently dropped.
func (c *Coordinator) PlanQuery(set model.EnabledSet, sourceFilter []string, topK int) FilterPlan {
	allowed := set.SortedIDs()
	if len(sourceFilter) > 0 {
		narrowed := make([]string, 0, len(sourceFilter))
		for _, id := range sourceFilter {
			if set.Contains(id) {
				narrowed = append(narrowed, id)
			}
		}
		allowed = narrowed
	}

	plan := FilterPlan{
		AllowedSources: allowed,
		Pushdown:       c.index.Capabilities().FilterPushdown,
		FetchK:         topK,
	}
	if !plan.Pushdown {
		plan.FetchK = topK * c.overFetch
	}
	return plan
}

// propagate pushes one committed toggle out to the caches. The toggle itself
// committed already; propagation only shortens how long stale cached results
// can be served. Runs on the worker pool so the toggle path never blocks.
func (c *Coordinator) propagate(event model.ToggleEvent) {
	if c.invalidator == nil {
		return
	}

	task := func() {
		tctx, cancel := context.WithTimeout(context.Background(), c.propagation)
		defer cancel()
		if err := c.invalidator.Invalidate(tctx); err != nil {
			logger.Warnw("toggle propagation failed, cache entries expire by TTL",
				"source_id", event.SourceID, "error", err)
			return
		}
		logger.Debugw("toggle propagated", "source_id", event.SourceID, "from", event.From, "to", event.To)
	}

	if c.workers != nil {
		if err := c.workers.Submit(task); err == nil {
			return
		}
	}
	task()
}
