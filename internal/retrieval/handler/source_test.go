package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/provenance/internal/model"
	"github.com/kart-io/provenance/internal/retrieval/biz"
	"github.com/kart-io/provenance/internal/retrieval/handler"
)

// fakeService records the source passed through the handler layer.
type fakeService struct {
	biz.Service
	registered *model.Source
}

func (f *fakeService) RegisterSource(_ context.Context, src *model.Source) (*model.Source, error) {
	f.registered = src
	return src, nil
}

func TestRegisterSourceReliabilityDefaulting(t *testing.T) {
	// 缺省可靠度补 0.5，显式 0 原样透传：0 是合法下限
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		body string
		want float64
	}{
		{"缺省补默认值", `{"id":"wiki","name":"Wiki"}`, 0.5},
		{"显式零保留", `{"id":"raw","name":"Raw","reliability":0}`, 0},
		{"显式值透传", `{"id":"kb","name":"KB","reliability":0.9}`, 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			h := handler.NewHandler(svc)

			engine := gin.New()
			engine.POST("/v1/sources", h.RegisterSource)

			req := httptest.NewRequest(http.MethodPost, "/v1/sources", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			require.NotNil(t, svc.registered)
			assert.Equal(t, tt.want, svc.registered.Reliability)
		})
	}
}
