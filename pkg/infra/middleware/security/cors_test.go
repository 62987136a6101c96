package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	mwopts "github.com/kart-io/provenance/pkg/options/middleware"
)

func performRequest(middleware gin.HandlerFunc, method, origin string, handlerCalled *bool) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	r.Use(middleware)
	r.Handle(method, "/test", func(_ *gin.Context) {
		if handlerCalled != nil {
			*handlerCalled = true
		}
	})

	req := httptest.NewRequest(method, "/test", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestCORSWithOptions_PreflightRequest(t *testing.T) {
	opts := mwopts.CORSOptions{
		AllowOrigins:     []string{"https://example.com"},
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           3600,
	}

	middleware := CORSWithOptions(opts)
	handlerCalled := false
	w := performRequest(middleware, http.MethodOptions, "https://example.com", &handlerCalled)

	// Preflight should not call the next handler
	if handlerCalled {
		t.Error("Expected handler not to be called for preflight request")
	}

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status %d for preflight, got %d", http.StatusNoContent, w.Code)
	}

	header := w.Header()
	if got := header.Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("Access-Control-Allow-Origin = %v, want %v", got, "https://example.com")
	}
	if got := header.Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials = %v, want %v", got, "true")
	}
	if got := header.Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("Access-Control-Allow-Methods header not set")
	}
	if got := header.Get("Access-Control-Allow-Headers"); got == "" {
		t.Error("Access-Control-Allow-Headers header not set")
	}
	if got := header.Get("Access-Control-Max-Age"); got != "3600" {
		t.Errorf("Access-Control-Max-Age = %v, want %v", got, "3600")
	}
}

func TestCORSWithOptions_NormalRequest(t *testing.T) {
	opts := mwopts.CORSOptions{
		AllowOrigins:  []string{"https://example.com"},
		ExposeHeaders: []string{"X-Custom-Header"},
	}

	middleware := CORSWithOptions(opts)
	handlerCalled := false
	w := performRequest(middleware, http.MethodGet, "https://example.com", &handlerCalled)

	// Normal request should call the next handler
	if !handlerCalled {
		t.Error("Expected handler to be called for normal request")
	}

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("Access-Control-Allow-Origin = %v, want %v", got, "https://example.com")
	}
	if got := w.Header().Get("Access-Control-Expose-Headers"); got != "X-Custom-Header" {
		t.Errorf("Access-Control-Expose-Headers = %v, want %v", got, "X-Custom-Header")
	}
}

func TestCORSWithOptions_DisallowedOrigin(t *testing.T) {
	opts := mwopts.CORSOptions{
		AllowOrigins: []string{"https://example.com"},
	}

	middleware := CORSWithOptions(opts)
	handlerCalled := false
	w := performRequest(middleware, http.MethodGet, "https://evil.com", &handlerCalled)

	// Handler should still be called but no CORS headers
	if !handlerCalled {
		t.Error("Expected handler to be called even for disallowed origin")
	}

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin should not be set, got %v", got)
	}
}

func TestCORSWithOptions_WildcardOrigin(t *testing.T) {
	opts := mwopts.CORSOptions{
		AllowOrigins: []string{"*"},
	}

	middleware := CORSWithOptions(opts)
	w := performRequest(middleware, http.MethodGet, "https://any-domain.com", nil)

	// Wildcard should allow any origin
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %v, want %v", got, "*")
	}
}

func TestCORSWithOptions_NoOriginHeader(t *testing.T) {
	opts := mwopts.CORSOptions{
		AllowOrigins: []string{"https://example.com"},
	}

	middleware := CORSWithOptions(opts)
	handlerCalled := false
	w := performRequest(middleware, http.MethodGet, "", &handlerCalled)

	if !handlerCalled {
		t.Error("Expected handler to be called")
	}

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin should not be set, got %v", got)
	}
}

func TestCORS_DefaultConfig(t *testing.T) {
	middleware := CORS()
	if middleware == nil {
		t.Fatal("Expected CORS() to return a valid middleware")
	}

	handlerCalled := false
	w := performRequest(middleware, http.MethodGet, "http://localhost:3000", &handlerCalled)

	if !handlerCalled {
		t.Error("Expected handler to be called")
	}

	// Default config uses "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %v, want %v", got, "*")
	}
}

func TestCORSWithOptions_Panic(t *testing.T) {
	// Invalid config should panic
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected CORSWithOptions to panic with invalid config")
		}
	}()

	_ = CORSWithOptions(mwopts.CORSOptions{
		AllowOrigins:     []string{"*"},
		AllowCredentials: true,
	})
}
