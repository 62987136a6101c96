package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrievalCodesBelongToRetrievalService(t *testing.T) {
	errnos := []*Errno{
		ErrRetrievalInvalidRequest,
		ErrInvalidWeights,
		ErrInvalidSourceStatus,
		ErrEmptyQuery,
		ErrSourceNotFound,
		ErrRecordNotFound,
		ErrChunkNotFound,
		ErrConflictingToggle,
		ErrSourceExists,
		ErrSourceQuarantined,
		ErrToggleCASMismatch,
		ErrFusionFailed,
		ErrAuditWrite,
		ErrEmbedding,
		ErrIngestFailed,
		ErrRetrievalUnavailable,
		ErrRetrievalTimeout,
	}

	seen := make(map[int]bool, len(errnos))
	for _, e := range errnos {
		assert.Equal(t, ServiceRetrieval, GetService(e.Code), "code %d", e.Code)
		assert.False(t, seen[e.Code], "code %d declared twice", e.Code)
		seen[e.Code] = true
	}
}

// 检索专属的记录未找到错误是包里唯一的 ErrRecordNotFound 声明，
// 挂在检索服务号段而非公共号段。
func TestRecordNotFoundIsRetrievalScoped(t *testing.T) {
	assert.Equal(t, MakeCode(ServiceRetrieval, CategoryResource, 2), ErrRecordNotFound.Code)
	assert.Equal(t, http.StatusNotFound, ErrRecordNotFound.HTTPStatus())

	registered, ok := Lookup(ErrRecordNotFound.Code)
	require.True(t, ok)
	assert.Same(t, ErrRecordNotFound, registered)
}
