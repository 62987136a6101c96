package resilience

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mwopts "github.com/kart-io/provenance/pkg/options/middleware"
)

// serveWith mounts middleware plus handler on /test and runs one request.
func serveWith(middleware gin.HandlerFunc, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(middleware)
	r.GET("/test", handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRecoveryPassesThroughWithoutPanic(t *testing.T) {
	handlerCalled := false

	w := serveWith(Recovery(), func(_ *gin.Context) {
		handlerCalled = true
	})

	assert.True(t, handlerCalled)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecoveryCatchesPanic(t *testing.T) {
	w := serveWith(Recovery(), func(_ *gin.Context) {
		panic("test panic")
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRecoveryStackTraceSetting(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		opts := mwopts.RecoveryOptions{EnableStackTrace: enabled}

		w := serveWith(RecoveryWithOptions(opts, nil), func(_ *gin.Context) {
			panic("test panic with stack")
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code, "EnableStackTrace=%v", enabled)
	}
}

func TestRecoveryOnPanicCallback(t *testing.T) {
	var gotErr interface{}
	var gotStack []byte
	called := false

	onPanic := func(_ *gin.Context, err interface{}, stack []byte) {
		called = true
		gotErr = err
		gotStack = stack
	}

	serveWith(RecoveryWithOptions(mwopts.RecoveryOptions{}, onPanic), func(_ *gin.Context) {
		panic("callback test panic")
	})

	require.True(t, called, "OnPanic callback must run")
	assert.Equal(t, "callback test panic", gotErr)
	assert.NotEmpty(t, gotStack, "stack trace must be captured")
}

type mockError struct {
	msg string
}

func (e *mockError) Error() string {
	return e.msg
}

func TestRecoveryHandlesAnyPanicValue(t *testing.T) {
	tests := []struct {
		name     string
		panicVal interface{}
	}{
		{name: "string", panicVal: "string panic"},
		{name: "error", panicVal: &mockError{msg: "error panic"}},
		{name: "integer", panicVal: 42},
		{name: "nil", panicVal: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveWith(Recovery(), func(_ *gin.Context) {
				panic(tt.panicVal)
			})

			assert.Equal(t, http.StatusInternalServerError, w.Code)
		})
	}
}
