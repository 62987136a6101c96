package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/provenance/internal/model"
	"github.com/kart-io/provenance/internal/retrieval/metrics"
	"github.com/kart-io/provenance/internal/retrieval/store"
	apperrors "github.com/kart-io/provenance/pkg/errors"
	"github.com/kart-io/provenance/pkg/infra/pool"
)

// AuditMode controls the durability of audit writes relative to responses.
type AuditMode string

const (
	// AuditBlock 响应返回前必须完成审计写入。
	AuditBlock AuditMode = "block"
	// AuditAsync 审计写入交给工作池，响应先返回。
	AuditAsync AuditMode = "async"
)

// Valid reports whether m is a known audit mode.
func (m AuditMode) Valid() bool {
	return m == AuditBlock || m == AuditAsync
}

// asyncAuditTimeout bounds one background audit write.
const asyncAuditTimeout = 10 * time.Second

// AuditTrail generates the append-only retrieval records. Every query gets
// exactly one record; in block mode the write completes before the response
// is returned.
type AuditTrail struct {
	store   store.AuditStore
	mode    AuditMode
	workers *pool.Pool
}

// NewAuditTrail creates the audit trail generator.
func NewAuditTrail(auditStore store.AuditStore, mode AuditMode, workers *pool.Pool) *AuditTrail {
	if !mode.Valid() {
		mode = AuditBlock
	}
	return &AuditTrail{store: auditStore, mode: mode, workers: workers}
}

// Record persists one retrieval record according to the configured mode.
// In async mode a pool-submit failure falls back to a synchronous write so
// no query ever goes unrecorded.
func (a *AuditTrail) Record(ctx context.Context, record *model.RetrievalRecord) error {
	if a.mode == AuditBlock || a.workers == nil {
		return a.write(ctx, record)
	}

	err := a.workers.Submit(func() {
		wctx, cancel := context.WithTimeout(context.Background(), asyncAuditTimeout)
		defer cancel()
		if werr := a.write(wctx, record); werr != nil {
			logger.Errorw("async audit write failed", "query_id", record.QueryID, "error", werr)
		}
	})
	if err != nil {
		logger.Warnw("audit pool saturated, writing synchronously", "query_id", record.QueryID)
		return a.write(ctx, record)
	}
	return nil
}

// Fetch returns the record for one query ID.
func (a *AuditTrail) Fetch(ctx context.Context, queryID string) (*model.RetrievalRecord, error) {
	if queryID == "" {
		return nil, apperrors.ErrRecordNotFound
	}
	return a.store.Get(ctx, queryID)
}

func (a *AuditTrail) write(ctx context.Context, record *model.RetrievalRecord) error {
	err := a.store.Append(ctx, record)
	metrics.Get().RecordAuditWrite(err)
	if err != nil {
		return apperrors.ErrAuditWrite.WithCause(err)
	}
	return nil
}
