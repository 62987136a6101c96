package biz

import (
	"context"
	"sync"
	"time"

	"github.com/kart-io/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/provenance/internal/model"
	"github.com/kart-io/provenance/internal/retrieval/metrics"
	"github.com/kart-io/provenance/internal/retrieval/store"
	apperrors "github.com/kart-io/provenance/pkg/errors"
	"github.com/kart-io/provenance/pkg/id"
	"github.com/kart-io/provenance/pkg/llm"
)

// queryState tracks the lifecycle of one query through the engine.
type queryState string

const (
	stateReceived          queryState = "received"
	stateSourcesResolved   queryState = "sources_resolved"
	stateCandidatesFetched queryState = "candidates_fetched"
	stateFused             queryState = "fused"
	stateRanked            queryState = "ranked"
	stateAuditWritten      queryState = "audit_written"
	stateReturned          queryState = "returned"
	stateFailed            queryState = "failed"
)

// tracer emits one span per query; a noop provider makes this free when
// tracing is disabled.
var tracer = otel.Tracer("retrieval/engine")

const (
	defaultTopK = 5
	maxTopK     = 100

	// adapterRetryBackoff is the pause before the single adapter retry.
	adapterRetryBackoff = 100 * time.Millisecond

	// neutralScore substitutes reliability/confidence when the relational
	// store cannot be consulted.
	neutralScore = 0.5
)

// RetrieveRequest is one retrieval query.
type RetrieveRequest struct {
	QueryText    string
	QueryVector  []float32
	TopK         int
	Weights      *model.FusionWeights
	SourceFilter []string
}

// RetrieveResponse carries the ranked results plus provenance handles.
type RetrieveResponse struct {
	QueryID   string               `json:"query_id"`
	Results   []model.RankedResult `json:"results"`
	Degraded  bool                 `json:"degraded"`
	FromCache bool                 `json:"from_cache"`
}

// Engine is the hybrid retrieval engine: filtered vector search fused with
// relational metadata under one enabled-set snapshot per query.
type Engine struct {
	coordinator *Coordinator
	registry    *SourceRegistry
	index       store.ChunkIndex
	raw         store.RawStore
	audit       *AuditTrail
	cache       *QueryCache
	embedder    llm.EmbeddingProvider
	idgen       *id.ULIDGenerator
	metric      SimilarityMetric
	weights     model.FusionWeights
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithQueryCache wires the Redis query cache.
func WithQueryCache(cache *QueryCache) EngineOption {
	return func(e *Engine) { e.cache = cache }
}

// WithEmbedder wires the embedding provider for query_text requests.
func WithEmbedder(p llm.EmbeddingProvider) EngineOption {
	return func(e *Engine) { e.embedder = p }
}

// WithSimilarityMetric overrides the raw score interpretation.
func WithSimilarityMetric(metric SimilarityMetric) EngineOption {
	return func(e *Engine) { e.metric = metric }
}

// WithDefaultWeights overrides the fusion weights used when a request does
// not carry its own.
func WithDefaultWeights(w model.FusionWeights) EngineOption {
	return func(e *Engine) {
		if w.Valid() {
			e.weights = w.Normalize()
		}
	}
}

// NewEngine creates the retrieval engine.
func NewEngine(coordinator *Coordinator, registry *SourceRegistry, index store.ChunkIndex, raw store.RawStore, audit *AuditTrail, opts ...EngineOption) *Engine {
	e := &Engine{
		coordinator: coordinator,
		registry:    registry,
		index:       index,
		raw:         raw,
		audit:       audit,
		idgen:       id.NewULIDGenerator(),
		metric:      MetricCosine,
		weights:     model.DefaultFusionWeights(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve runs one query end to end: snapshot, filtered candidate fetch,
// fusion, ranking, audit. The enabled-set snapshot is taken once and pins
// the whole query; toggles committed afterwards do not affect it.
func (e *Engine) Retrieve(ctx context.Context, req *RetrieveRequest) (*RetrieveResponse, error) {
	start := time.Now()
	queryID := e.idgen.Generate()
	state := stateReceived

	ctx, span := tracer.Start(ctx, "engine.retrieve",
		trace.WithAttributes(attribute.String("query.id", queryID)))
	defer span.End()

	resp, err := e.retrieve(ctx, queryID, req, start, &state)
	metrics.Get().RecordQuery(time.Since(start), resp != nil && resp.FromCache, resp != nil && resp.Degraded, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(state))
		logger.Warnw("query failed", "query_id", queryID, "state", stateFailed, "last_state", state, "error", err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("query.results", len(resp.Results)),
		attribute.Bool("query.degraded", resp.Degraded),
		attribute.Bool("query.from_cache", resp.FromCache),
	)
	logger.Debugw("query returned", "query_id", queryID, "state", stateReturned,
		"results", len(resp.Results), "degraded", resp.Degraded, "elapsed", time.Since(start))
	return resp, nil
}

func (e *Engine) retrieve(ctx context.Context, queryID string, req *RetrieveRequest, start time.Time, state *queryState) (*RetrieveResponse, error) {
	topK, weights, err := e.normalizeRequest(req)
	if err != nil {
		return nil, err
	}

	vector, err := e.queryVector(ctx, req)
	if err != nil {
		return nil, err
	}

	// The snapshot fixes the enabled set for the whole query.
	snapshot := e.coordinator.Snapshot(ctx)
	plan := e.coordinator.PlanQuery(snapshot, req.SourceFilter, topK)
	*state = stateSourcesResolved

	if cached, _ := e.cache.Get(ctx, vector, topK, weights, snapshot); cached != nil {
		record := e.buildRecord(queryID, snapshot, weights, cached.Consulted, cached.Results, cached.Degraded, start)
		if err := e.audit.Record(ctx, record); err != nil {
			return nil, err
		}
		return &RetrieveResponse{
			QueryID:   queryID,
			Results:   cached.Results,
			Degraded:  cached.Degraded,
			FromCache: true,
		}, nil
	}

	// Empty enabled set: nothing to consult, but the query is still audited.
	if len(plan.AllowedSources) == 0 {
		record := e.buildRecord(queryID, snapshot, weights, nil, nil, false, start)
		if err := e.audit.Record(ctx, record); err != nil {
			return nil, err
		}
		return &RetrieveResponse{QueryID: queryID, Results: []model.RankedResult{}}, nil
	}

	candidates, err := e.fetchCandidates(ctx, vector, plan, snapshot)
	if err != nil {
		return nil, err
	}
	*state = stateCandidatesFetched

	scored, degraded := e.enrich(ctx, candidates, snapshot)
	fuse(scored, weights)
	*state = stateFused

	results, consulted := buildRanking(scored, topK)
	*state = stateRanked

	record := e.buildRecord(queryID, snapshot, weights, consulted, results, degraded, start)
	if err := e.audit.Record(ctx, record); err != nil {
		return nil, err
	}
	*state = stateAuditWritten

	e.cache.Set(ctx, vector, topK, weights, snapshot, &cachedResult{
		Results:   results,
		Consulted: consulted,
		Degraded:  degraded,
	})

	return &RetrieveResponse{QueryID: queryID, Results: results, Degraded: degraded}, nil
}

func (e *Engine) normalizeRequest(req *RetrieveRequest) (int, model.FusionWeights, error) {
	if req.QueryText == "" && len(req.QueryVector) == 0 {
		return 0, model.FusionWeights{}, apperrors.ErrEmptyQuery
	}

	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	weights := e.weights
	if req.Weights != nil {
		if !req.Weights.Valid() {
			return 0, model.FusionWeights{}, apperrors.ErrInvalidWeights
		}
		weights = req.Weights.Normalize()
	}
	return topK, weights, nil
}

func (e *Engine) queryVector(ctx context.Context, req *RetrieveRequest) ([]float32, error) {
	if len(req.QueryVector) > 0 {
		return req.QueryVector, nil
	}
	if e.embedder == nil {
		return nil, apperrors.ErrEmbedding.WithMessage("no embedding provider configured, pass query_vector")
	}
	vector, err := e.embedder.EmbedSingle(ctx, req.QueryText)
	if err != nil {
		return nil, apperrors.ErrEmbedding.WithCause(err)
	}
	return vector, nil
}

// fetchCandidates queries the index with one bounded retry. With pushdown
// the filter travels with the query; otherwise candidates are over-fetched
// and filtered here against the snapshot.
func (e *Engine) fetchCandidates(ctx context.Context, vector []float32, plan FilterPlan, snapshot model.EnabledSet) ([]*store.Candidate, error) {
	var filter []string
	if plan.Pushdown {
		filter = plan.AllowedSources
	}

	candidates, err := e.index.Search(ctx, vector, plan.FetchK, filter)
	if err != nil {
		logger.Warnw("index search failed, retrying once", "error", err)
		select {
		case <-ctx.Done():
			return nil, apperrors.ErrRetrievalTimeout.WithCause(ctx.Err())
		case <-time.After(adapterRetryBackoff):
		}
		candidates, err = e.index.Search(ctx, vector, plan.FetchK, filter)
		if err != nil {
			return nil, apperrors.ErrRetrievalUnavailable.WithCause(err)
		}
	}

	if plan.Pushdown {
		return candidates, nil
	}

	filtered := make([]*store.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if snapshot.Contains(c.SourceID) {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// enrich joins candidates with relational metadata and reliability. Chunk
// metadata and confidence scores are fetched concurrently. A relational
// outage does not fail the query: neutral scores substitute and the result
// is flagged degraded.
func (e *Engine) enrich(ctx context.Context, candidates []*store.Candidate, snapshot model.EnabledSet) ([]*scoredCandidate, bool) {
	chunkIDs := make([]string, len(candidates))
	for i, c := range candidates {
		chunkIDs[i] = c.ChunkID
	}

	var (
		chunks     map[string]*model.Chunk
		confidence map[string]float64
		chunksErr  error
		confErr    error
		wg         sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		chunks, chunksErr = e.raw.GetChunks(ctx, chunkIDs)
	}()
	go func() {
		defer wg.Done()
		confidence, confErr = e.raw.GetConfidence(ctx, chunkIDs)
	}()
	wg.Wait()

	degraded := false
	if chunksErr != nil {
		logger.Warnw("relational store unavailable, serving degraded results", "error", chunksErr)
		degraded = true
	}
	if confErr != nil {
		logger.Warnw("confidence fetch failed, using neutral scores", "error", confErr)
		degraded = true
	}

	reliability := e.registry.Reliability(ctx, snapshot)

	scored := make([]*scoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		sc := &scoredCandidate{
			ChunkID:     c.ChunkID,
			SourceID:    c.SourceID,
			Similarity:  normalizeSimilarity(e.metric, float64(c.Similarity)),
			Reliability: neutralScore,
			Confidence:  neutralScore,
		}
		if r, ok := reliability[c.SourceID]; ok {
			sc.Reliability = r
		}
		if v, ok := confidence[c.ChunkID]; ok {
			sc.Confidence = v
		}
		if chunk, ok := chunks[c.ChunkID]; ok {
			sc.DocumentID = chunk.DocumentID
			sc.Content = chunk.Content
			sc.IngestedAt = chunk.IngestedAt
		}
		scored = append(scored, sc)
	}
	return scored, degraded
}

// buildRanking turns the fused candidates into the final top-k ranking and
// the consulted superset for the audit record.
func buildRanking(scored []*scoredCandidate, topK int) ([]model.RankedResult, []model.ConsultedChunk) {
	consulted := make([]model.ConsultedChunk, len(scored))
	for i, c := range scored {
		consulted[i] = model.ConsultedChunk{
			ChunkID:     c.ChunkID,
			SourceID:    c.SourceID,
			Similarity:  c.Similarity,
			Reliability: c.Reliability,
			Confidence:  c.Confidence,
			Score:       c.Score,
		}
	}

	n := topK
	if n > len(scored) {
		n = len(scored)
	}
	results := make([]model.RankedResult, n)
	for i := 0; i < n; i++ {
		c := scored[i]
		results[i] = model.RankedResult{
			ChunkID:     c.ChunkID,
			DocumentID:  c.DocumentID,
			SourceID:    c.SourceID,
			Content:     c.Content,
			Score:       c.Score,
			Similarity:  c.Similarity,
			Reliability: c.Reliability,
			Confidence:  c.Confidence,
		}
	}
	return results, consulted
}

func (e *Engine) buildRecord(queryID string, snapshot model.EnabledSet, weights model.FusionWeights, consulted []model.ConsultedChunk, results []model.RankedResult, degraded bool, start time.Time) *model.RetrievalRecord {
	ranking := make([]string, len(results))
	for i, r := range results {
		ranking[i] = r.ChunkID
	}
	if consulted == nil {
		consulted = []model.ConsultedChunk{}
	}
	return &model.RetrievalRecord{
		QueryID:        queryID,
		Timestamp:      start.UTC(),
		EnabledSources: snapshot.SortedIDs(),
		SnapshotVer:    snapshot.Version,
		Weights:        weights,
		Consulted:      consulted,
		FinalRanking:   ranking,
		Degraded:       degraded,
		ElapsedMs:      time.Since(start).Milliseconds(),
	}
}
