package middleware

import (
	"strings"
	"testing"
	"time"

	mwopts "github.com/kart-io/provenance/pkg/options/middleware"
)

func TestNewOptions_Defaults(t *testing.T) {
	opts := NewOptions()

	enabled := []string{
		MiddlewareRecovery,
		MiddlewareRequestID,
		MiddlewareLogger,
		MiddlewareHealth,
		MiddlewareMetrics,
		MiddlewareVersion,
	}
	for _, name := range enabled {
		if !opts.IsEnabled(name) {
			t.Errorf("expected %q to be enabled by default", name)
		}
	}

	disabled := []string{
		MiddlewareCORS,
		MiddlewareTimeout,
		MiddlewarePprof,
	}
	for _, name := range disabled {
		if opts.IsEnabled(name) {
			t.Errorf("expected %q to be disabled by default", name)
		}
	}
}

func TestOptionsValidate_Defaults(t *testing.T) {
	opts := NewOptions()
	if errs := opts.Validate(); len(errs) > 0 {
		t.Errorf("NewOptions() should create valid options, got errors: %v", errs)
	}
}

func TestOptionsValidate_NegativeTimeout(t *testing.T) {
	opts := NewOptions()
	opts.SetConfig(MiddlewareTimeout, &TimeoutOptions{Timeout: -1 * time.Second})

	errs := opts.Validate()
	if len(errs) == 0 {
		t.Fatal("expected validation error for negative timeout")
	}
	if !strings.Contains(errs[0].Error(), "timeout") {
		t.Errorf("expected error to mention 'timeout', got: %v", errs[0])
	}
}

func TestOptionsValidate_EmptyCORSOrigins(t *testing.T) {
	opts := NewOptions()
	opts.SetConfig(MiddlewareCORS, &CORSOptions{
		AllowOrigins: []string{},
		AllowMethods: []string{"GET"},
	})

	errs := opts.Validate()
	if len(errs) == 0 {
		t.Fatal("expected validation error for empty CORS origins")
	}

	found := false
	for _, err := range errs {
		if strings.Contains(err.Error(), "AllowOrigins") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an error mentioning AllowOrigins, got: %v", errs)
	}
}

func TestOptionsValidate_MiddlewareOrder(t *testing.T) {
	tests := []struct {
		name    string
		order   []string
		wantErr string
	}{
		{
			name:  "valid order",
			order: []string{MiddlewareRecovery, MiddlewareLogger},
		},
		{
			name:    "unknown middleware",
			order:   []string{"no-such-middleware"},
			wantErr: "unknown middleware",
		},
		{
			name:    "duplicate middleware",
			order:   []string{MiddlewareRecovery, MiddlewareRecovery},
			wantErr: "duplicate middleware",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOptions()
			opts.Middleware = tt.order

			errs := opts.ValidateMiddleware()
			if tt.wantErr == "" {
				if len(errs) > 0 {
					t.Errorf("expected no errors, got: %v", errs)
				}
				return
			}
			if len(errs) == 0 {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(errs[0].Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, errs[0])
			}
		})
	}
}

func TestOptionsComplete_FillsTimeoutDefault(t *testing.T) {
	opts := NewOptions()
	opts.SetConfig(MiddlewareTimeout, &TimeoutOptions{})

	if err := opts.Complete(); err != nil {
		t.Fatalf("Complete() returned error: %v", err)
	}

	cfg, ok := mwopts.GetConfigTyped[*TimeoutOptions](opts, MiddlewareTimeout)
	if !ok {
		t.Fatal("expected timeout config to be present")
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", cfg.Timeout)
	}
}

func TestOptions_EnableDisable(t *testing.T) {
	opts := NewOptions()

	mwopts.WithTimeout(5*time.Second, "/health")(opts)
	if !opts.IsEnabled(MiddlewareTimeout) {
		t.Error("WithTimeout should enable the timeout middleware")
	}

	cfg, ok := mwopts.GetConfigTyped[*TimeoutOptions](opts, MiddlewareTimeout)
	if !ok {
		t.Fatal("expected timeout config after WithTimeout")
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Timeout)
	}
	if len(cfg.SkipPaths) != 1 || cfg.SkipPaths[0] != "/health" {
		t.Errorf("unexpected skip paths: %v", cfg.SkipPaths)
	}

	mwopts.WithoutTimeout()(opts)
	if opts.IsEnabled(MiddlewareTimeout) {
		t.Error("WithoutTimeout should disable the timeout middleware")
	}
}

func TestOptions_GetMiddlewareOrder(t *testing.T) {
	opts := NewOptions()

	order := opts.GetMiddlewareOrder()
	if len(order) == 0 {
		t.Fatal("expected a default middleware order")
	}
	if order[0] != MiddlewareRecovery {
		t.Errorf("expected recovery first in default order, got %q", order[0])
	}

	opts.Middleware = []string{MiddlewareLogger, MiddlewareRecovery}
	order = opts.GetMiddlewareOrder()
	if order[0] != MiddlewareLogger {
		t.Errorf("expected explicit order to win, got %q", order[0])
	}
}

func TestOptions_FactoriesRegistered(t *testing.T) {
	// init() in this package registers gin factories for these names.
	for _, name := range []string{
		MiddlewareRecovery,
		MiddlewareRequestID,
		MiddlewareLogger,
		MiddlewareCORS,
		MiddlewareTimeout,
		MiddlewareMetrics,
	} {
		if _, ok := mwopts.GetFactory(name); !ok {
			t.Errorf("expected factory registered for %q", name)
		}
	}

	for _, name := range []string{
		MiddlewareHealth,
		MiddlewareMetrics,
		MiddlewarePprof,
		MiddlewareVersion,
	} {
		if _, ok := mwopts.GetRouteRegistrar(name); !ok {
			t.Errorf("expected route registrar for %q", name)
		}
	}
}

func BenchmarkOptionsValidate(b *testing.B) {
	opts := NewOptions()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = opts.Validate()
	}
}
