package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

// Service codes 80/81 and sequences >= 100 are reserved for these tests so
// package-level registrations never collide with them.

func TestRegisterService(t *testing.T) {
	RegisterService(99, "test-service")

	name, ok := GetServiceName(99)
	require.True(t, ok)
	assert.Equal(t, "test-service", name)

	// Same code, same name is idempotent.
	assert.NotPanics(t, func() { RegisterService(99, "test-service") })

	// Same code, different name is a wiring bug.
	assert.Panics(t, func() { RegisterService(99, "different-service") })
}

func TestGetAllServicesReturnsCopy(t *testing.T) {
	RegisterService(98, "another-test-service")

	all := GetAllServices()
	assert.Contains(t, all, 98)

	all[97] = "modified"
	_, ok := GetServiceName(97)
	assert.False(t, ok, "mutating the returned map must not touch the registry")
}

func TestNewBuilderDefaults(t *testing.T) {
	b := NewBuilder(80, CategoryRequest, 100)
	assert.Equal(t, 80, b.service)
	assert.Equal(t, CategoryRequest, b.category)
	assert.Equal(t, 100, b.sequence)
	assert.Equal(t, http.StatusInternalServerError, b.http)
	assert.Equal(t, codes.Internal, b.grpc)
}

func TestBuilderSetters(t *testing.T) {
	b := NewBuilder(80, CategoryRequest, 101).
		HTTP(http.StatusTeapot).
		GRPC(codes.Aborted).
		Message("English", "中文")

	assert.Equal(t, http.StatusTeapot, b.http)
	assert.Equal(t, codes.Aborted, b.grpc)
	assert.Equal(t, "English", b.messageEN)
	assert.Equal(t, "中文", b.messageZH)

	b.MessageEN("Only English").MessageZH("只有中文")
	assert.Equal(t, "Only English", b.messageEN)
	assert.Equal(t, "只有中文", b.messageZH)
}

func TestBuilderBuildRegisters(t *testing.T) {
	errno, err := NewBuilder(80, CategoryRequest, 106).
		HTTP(http.StatusBadRequest).
		GRPC(codes.InvalidArgument).
		Message("Test error", "测试错误").
		Build()
	require.NoError(t, err)

	assert.Equal(t, MakeCode(80, CategoryRequest, 106), errno.Code)
	assert.Equal(t, http.StatusBadRequest, errno.HTTP)
	assert.Equal(t, codes.InvalidArgument, errno.GRPCCode)
	assert.Equal(t, "Test error", errno.MessageEN)
	assert.Equal(t, "测试错误", errno.MessageZH)

	registered, ok := Lookup(errno.Code)
	require.True(t, ok)
	assert.Same(t, errno, registered)
}

func TestBuilderBuildRequiresEnglishMessage(t *testing.T) {
	_, err := NewBuilder(80, CategoryRequest, 107).Build()
	assert.Error(t, err)
}

func TestBuilderBuildRejectsDuplicateCode(t *testing.T) {
	_, err := NewBuilder(80, CategoryRequest, 108).Message("First", "第一").Build()
	require.NoError(t, err)

	_, err = NewBuilder(80, CategoryRequest, 108).Message("Second", "第二").Build()
	assert.Error(t, err)
}

func TestBuilderMustBuild(t *testing.T) {
	errno := NewBuilder(80, CategoryRequest, 109).
		Message("Must build test", "必须构建测试").
		MustBuild()
	require.NotNil(t, errno)

	assert.Panics(t, func() {
		NewBuilder(80, CategoryRequest, 109).
			Message("Duplicate", "重复").
			MustBuild()
	})
}

func TestPresetBuilders(t *testing.T) {
	tests := []struct {
		name     string
		build    func() *Errno
		wantHTTP int
		wantGRPC codes.Code
	}{
		{
			name:     "request",
			build:    func() *Errno { return NewRequestError(80, 111).Message("Request error", "请求错误").MustBuild() },
			wantHTTP: http.StatusBadRequest,
			wantGRPC: codes.InvalidArgument,
		},
		{
			name:     "not_found",
			build:    func() *Errno { return NewNotFoundError(80, 114).Message("Not found error", "未找到错误").MustBuild() },
			wantHTTP: http.StatusNotFound,
			wantGRPC: codes.NotFound,
		},
		{
			name:     "conflict",
			build:    func() *Errno { return NewConflictError(80, 115).Message("Conflict error", "冲突错误").MustBuild() },
			wantHTTP: http.StatusConflict,
			wantGRPC: codes.AlreadyExists,
		},
		{
			name:     "rate_limit",
			build:    func() *Errno { return NewRateLimitError(80, 116).Message("Rate limit error", "限流错误").MustBuild() },
			wantHTTP: http.StatusTooManyRequests,
			wantGRPC: codes.ResourceExhausted,
		},
		{
			name:     "internal",
			build:    func() *Errno { return NewInternalError(80, 117).Message("Internal error", "内部错误").MustBuild() },
			wantHTTP: http.StatusInternalServerError,
			wantGRPC: codes.Internal,
		},
		{
			name:     "timeout",
			build:    func() *Errno { return NewTimeoutError(80, 118).Message("Timeout error", "超时错误").MustBuild() },
			wantHTTP: http.StatusGatewayTimeout,
			wantGRPC: codes.DeadlineExceeded,
		},
		{
			name:     "database",
			build:    func() *Errno { return NewDatabaseError(80, 119).Message("Database error", "数据库错误").MustBuild() },
			wantHTTP: http.StatusInternalServerError,
			wantGRPC: codes.Internal,
		},
		{
			name:     "cache",
			build:    func() *Errno { return NewCacheError(80, 120).Message("Cache error", "缓存错误").MustBuild() },
			wantHTTP: http.StatusInternalServerError,
			wantGRPC: codes.Internal,
		},
		{
			name:     "network",
			build:    func() *Errno { return NewNetworkError(80, 121).Message("Network error", "网络错误").MustBuild() },
			wantHTTP: http.StatusServiceUnavailable,
			wantGRPC: codes.Unavailable,
		},
		{
			name:     "config",
			build:    func() *Errno { return NewConfigError(80, 122).Message("Config error", "配置错误").MustBuild() },
			wantHTTP: http.StatusInternalServerError,
			wantGRPC: codes.Internal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errno := tt.build()
			assert.Equal(t, tt.wantHTTP, errno.HTTP)
			assert.Equal(t, tt.wantGRPC, errno.GRPCCode)
		})
	}
}

func TestQuickCreationFunctions(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, NewRequestErr(81, 1, "Request", "请求").HTTP)
	assert.Equal(t, http.StatusNotFound, NewNotFoundErr(81, 2, "Not found", "未找到").HTTP)
	assert.Equal(t, http.StatusConflict, NewConflictErr(81, 3, "Conflict", "冲突").HTTP)
	assert.Equal(t, http.StatusInternalServerError, NewInternalErr(81, 4, "Internal", "内部").HTTP)
}

func TestNewBuilderBoundaryValidation(t *testing.T) {
	tests := []struct {
		name                        string
		service, category, sequence int
		panicMsg                    string
	}{
		{name: "valid_min_values", service: 0, category: 0, sequence: 0},
		{name: "valid_max_values", service: 99, category: 99, sequence: 999},
		{name: "service_too_small", service: -1, panicMsg: "service code must be 0-99"},
		{name: "service_too_large", service: 100, panicMsg: "service code must be 0-99"},
		{name: "category_too_small", category: -1, panicMsg: "category code must be 0-99"},
		{name: "category_too_large", category: 100, panicMsg: "category code must be 0-99"},
		{name: "sequence_too_small", sequence: -1, panicMsg: "sequence must be 0-999"},
		{name: "sequence_too_large", sequence: 1000, panicMsg: "sequence must be 0-999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.panicMsg == "" {
				assert.NotPanics(t, func() { NewBuilder(tt.service, tt.category, tt.sequence) })
				return
			}

			defer func() {
				r := recover()
				require.NotNil(t, r, "NewBuilder must panic on out-of-range parts")
				msg, ok := r.(string)
				require.True(t, ok)
				assert.Contains(t, msg, tt.panicMsg)
			}()
			NewBuilder(tt.service, tt.category, tt.sequence)
		})
	}
}
