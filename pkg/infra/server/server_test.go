package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	grpcopts "github.com/kart-io/provenance/pkg/infra/server/grpc"
	httpopts "github.com/kart-io/provenance/pkg/infra/server/http"
	"github.com/kart-io/provenance/pkg/infra/server/service"
	"github.com/kart-io/provenance/pkg/infra/server/transport"
)

// mockService implements service.Service plus the optional Init/Close
// hooks, recording whether they ran.
type mockService struct {
	name        string
	initCalled  bool
	closeCalled bool
	initErr     error
	closeErr    error
	mu          sync.Mutex
}

func (s *mockService) ServiceName() string { return s.name }

func (s *mockService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initCalled = true
	return s.initErr
}

func (s *mockService) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalled = true
	return s.closeErr
}

func (s *mockService) WasInitCalled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initCalled
}

func (s *mockService) WasCloseCalled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalled
}

type mockHTTPHandler struct{}

func (h *mockHTTPHandler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/test", func(c *gin.Context) {
		c.String(200, "test")
	})
}

// mockRunnable implements Runnable, recording start/stop calls. Also used
// by the lifecycle tests.
type mockRunnable struct {
	name        string
	startCalled bool
	stopCalled  bool
	startErr    error
	stopErr     error
	mu          sync.Mutex
}

func (r *mockRunnable) Name() string { return r.name }

func (r *mockRunnable) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startCalled = true
	return r.startErr
}

func (r *mockRunnable) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopCalled = true
	return r.stopErr
}

func (r *mockRunnable) WasStartCalled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startCalled
}

func (r *mockRunnable) WasStopCalled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopCalled
}

func testHTTPOptions() *httpopts.Options {
	return &httpopts.Options{
		Addr:         ":0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  10 * time.Second,
	}
}

func testGRPCOptions() *grpcopts.Options {
	return &grpcopts.Options{
		Addr:             ":0",
		Timeout:          10 * time.Second,
		MaxRecvMsgSize:   16 * 1024 * 1024,
		MaxSendMsgSize:   16 * 1024 * 1024,
		EnableReflection: true,
	}
}

func TestNewManagerTransportsFollowMode(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		wantHTTP bool
		wantGRPC bool
	}{
		{name: "http only", opts: []Option{WithMode(ModeHTTPOnly)}, wantHTTP: true},
		{name: "grpc only", opts: []Option{WithMode(ModeGRPCOnly)}, wantGRPC: true},
		{name: "both", opts: []Option{WithMode(ModeBoth)}, wantHTTP: true, wantGRPC: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := NewManager(tt.opts...)
			require.NotNil(t, mgr)
			require.NotNil(t, mgr.registry)

			assert.Equal(t, tt.wantHTTP, mgr.HTTPServer() != nil, "HTTP server presence")
			assert.Equal(t, tt.wantGRPC, mgr.GRPCServer() != nil, "gRPC server presence")
		})
	}
}

func TestNewManagerAppliesOptions(t *testing.T) {
	mgr := NewManager(WithShutdownTimeout(60 * time.Second))
	assert.Equal(t, 60*time.Second, mgr.opts.ShutdownTimeout)
}

func TestManagerRegistry(t *testing.T) {
	mgr := NewManager()

	require.NotNil(t, mgr.Registry())
	assert.Same(t, mgr.registry, mgr.Registry())
}

func TestManagerRegisterService(t *testing.T) {
	mgr := NewManager()
	svc := &mockService{name: "test-service"}

	require.NoError(t, mgr.RegisterService(svc, &mockHTTPHandler{}, nil))

	got, ok := mgr.registry.GetService("test-service")
	require.True(t, ok, "service must be registered")
	assert.Same(t, svc, got)
}

func TestManagerRegisterHTTP(t *testing.T) {
	mgr := NewManager()
	svc := &mockService{name: "http-service"}

	require.NoError(t, mgr.RegisterHTTP(svc, &mockHTTPHandler{}))

	got, ok := mgr.registry.GetService("http-service")
	require.True(t, ok)
	assert.Same(t, svc, got)
}

func TestManagerRegisterGRPC(t *testing.T) {
	mgr := NewManager()
	svc := &mockService{name: "grpc-service"}
	desc := &transport.GRPCServiceDesc{
		ServiceDesc: "test-desc",
		ServiceImpl: "test-impl",
	}

	require.NoError(t, mgr.RegisterGRPC(svc, desc))

	got, ok := mgr.registry.GetService("grpc-service")
	require.True(t, ok)
	assert.Same(t, svc, got)
}

func TestManagerAddServer(t *testing.T) {
	mgr := NewManager()
	runnable := &mockRunnable{name: "custom-server"}

	mgr.AddServer(runnable)

	require.Len(t, mgr.servers, 1)
	assert.Same(t, runnable, mgr.servers[0])
}

func TestManagerAddServerConcurrent(t *testing.T) {
	mgr := NewManager()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mgr.AddServer(&mockRunnable{name: "server"})
		}()
	}
	wg.Wait()

	assert.Len(t, mgr.servers, 100)
}

func TestManagerDoubleStartAndIdleStop(t *testing.T) {
	mgr := NewManager(WithMode(ModeHTTPOnly), WithHTTPOptions(testHTTPOptions()))
	require.NoError(t, mgr.RegisterHTTP(&mockService{name: "test-service"}, &mockHTTPHandler{}))

	mgr.started = true
	assert.Error(t, mgr.Start(context.Background()), "second Start must fail")
	mgr.started = false

	assert.NoError(t, mgr.Stop(context.Background()), "Stop before Start is a no-op")
}

func TestManagerServiceLifecycle(t *testing.T) {
	mgr := NewManager(WithMode(ModeHTTPOnly))
	svc := &mockService{name: "lifecycle-service"}
	require.NoError(t, mgr.RegisterHTTP(svc, &mockHTTPHandler{}))

	ctx := context.Background()
	for _, s := range mgr.registry.GetAllServices() {
		if init, ok := s.(service.Initializable); ok {
			require.NoError(t, init.Init(ctx))
		}
	}
	assert.True(t, svc.WasInitCalled())

	for _, s := range mgr.registry.GetAllServices() {
		if closer, ok := s.(service.Closeable); ok {
			require.NoError(t, closer.Close(ctx))
		}
	}
	assert.True(t, svc.WasCloseCalled())
}

func TestManagerServiceInitError(t *testing.T) {
	mgr := NewManager(WithMode(ModeHTTPOnly))
	svc := &mockService{name: "error-service", initErr: errors.New("init failed")}
	require.NoError(t, mgr.RegisterHTTP(svc, &mockHTTPHandler{}))

	for _, s := range mgr.registry.GetAllServices() {
		init, ok := s.(service.Initializable)
		require.True(t, ok)
		assert.EqualError(t, init.Init(context.Background()), "init failed")
	}
}

func TestManagerCustomServerLifecycle(t *testing.T) {
	mgr := NewManager()
	runnable := &mockRunnable{name: "custom-server"}
	mgr.AddServer(runnable)

	ctx := context.Background()
	for _, server := range mgr.servers {
		require.NoError(t, server.Start(ctx))
	}
	assert.True(t, runnable.WasStartCalled())

	for _, server := range mgr.servers {
		require.NoError(t, server.Stop(ctx))
	}
	assert.True(t, runnable.WasStopCalled())
}

func TestManagerCustomServerErrors(t *testing.T) {
	mgr := NewManager()
	mgr.AddServer(&mockRunnable{
		name:     "error-server",
		startErr: errors.New("start failed"),
		stopErr:  errors.New("stop failed"),
	})

	ctx := context.Background()
	for _, server := range mgr.servers {
		assert.EqualError(t, server.Start(ctx), "start failed")
		assert.EqualError(t, server.Stop(ctx), "stop failed")
	}
}

func TestManagerWaitNotStarted(t *testing.T) {
	mgr := NewManager()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.EqualError(t, mgr.Wait(ctx), "server manager not started")
}

func TestManagerWaitNoServers(t *testing.T) {
	mgr := NewManager(WithMode(ModeHTTPOnly))

	mgr.mu.Lock()
	mgr.started = true
	mgr.httpServer = nil
	mgr.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.EqualError(t, mgr.Wait(ctx), "no servers configured")
}

// startManager starts mgr and registers cleanup-time shutdown.
func startManager(t *testing.T, mgr *Manager) {
	t.Helper()

	require.NoError(t, mgr.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Stop(ctx)
	})
}

func TestManagerWaitAfterStart(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{name: "http", opts: []Option{WithMode(ModeHTTPOnly), WithHTTPOptions(testHTTPOptions())}},
		{name: "grpc", opts: []Option{WithMode(ModeGRPCOnly), WithGRPCOptions(testGRPCOptions())}},
		{name: "both", opts: []Option{
			WithMode(ModeBoth),
			WithHTTPOptions(testHTTPOptions()),
			WithGRPCOptions(testGRPCOptions()),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := NewManager(tt.opts...)
			startManager(t, mgr)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			assert.NoError(t, mgr.Wait(ctx))
		})
	}
}

func TestManagerWaitIsRepeatable(t *testing.T) {
	mgr := NewManager(WithMode(ModeHTTPOnly), WithHTTPOptions(testHTTPOptions()))
	startManager(t, mgr)

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := mgr.Wait(ctx)
		cancel()
		assert.NoError(t, err, "Wait call %d", i+1)
	}
}

func BenchmarkManagerWait(b *testing.B) {
	mgr := NewManager(WithMode(ModeHTTPOnly), WithHTTPOptions(testHTTPOptions()))
	if err := mgr.Start(context.Background()); err != nil {
		b.Fatalf("failed to start server: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Stop(ctx)
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = mgr.Wait(ctx)
		cancel()
	}
}
