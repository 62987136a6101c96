package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hookRecorder records lifecycle invocations and returns configured errors.
type hookRecorder struct {
	startCalled bool
	stopCalled  bool
	startErr    error
	stopErr     error
}

var _ Lifecycle = (*hookRecorder)(nil)

func (h *hookRecorder) Start(_ context.Context) error {
	h.startCalled = true
	return h.startErr
}

func (h *hookRecorder) Stop(_ context.Context) error {
	h.stopCalled = true
	return h.stopErr
}

func TestLifecycleStart(t *testing.T) {
	tests := []struct {
		name     string
		startErr error
	}{
		{name: "successful start"},
		{name: "start with error", startErr: errors.New("start failed")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := &hookRecorder{startErr: tt.startErr}

			err := lc.Start(context.Background())
			assert.True(t, lc.startCalled)
			if tt.startErr != nil {
				assert.ErrorIs(t, err, tt.startErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLifecycleStop(t *testing.T) {
	tests := []struct {
		name    string
		stopErr error
	}{
		{name: "successful stop"},
		{name: "stop with error", stopErr: errors.New("stop failed")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := &hookRecorder{stopErr: tt.stopErr}

			err := lc.Stop(context.Background())
			assert.True(t, lc.stopCalled)
			if tt.stopErr != nil {
				assert.ErrorIs(t, err, tt.stopErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLifecycleStartThenStop(t *testing.T) {
	lc := &hookRecorder{}
	ctx := context.Background()

	require.NoError(t, lc.Start(ctx))
	require.NoError(t, lc.Stop(ctx))
	assert.True(t, lc.startCalled)
	assert.True(t, lc.stopCalled)
}

func TestLifecycleWithCanceledContext(t *testing.T) {
	// Hooks receive the context as-is; honoring cancellation is up to the
	// implementation.
	lc := &hookRecorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, lc.Start(ctx))
	assert.True(t, lc.startCalled)
}

func TestRunnableInterface(t *testing.T) {
	runnable := &mockRunnable{name: "test-runnable"}

	var _ Runnable = runnable
	assert.Equal(t, "test-runnable", runnable.Name())
}

func TestRunnableLifecycle(t *testing.T) {
	runnable := &mockRunnable{name: "lifecycle-test"}
	ctx := context.Background()

	require.NoError(t, runnable.Start(ctx))
	assert.True(t, runnable.WasStartCalled())

	require.NoError(t, runnable.Stop(ctx))
	assert.True(t, runnable.WasStopCalled())
}

func TestRunnableErrorPropagation(t *testing.T) {
	tests := []struct {
		name     string
		startErr error
		stopErr  error
	}{
		{name: "start error", startErr: errors.New("start failed")},
		{name: "stop error", stopErr: errors.New("stop failed")},
		{name: "both errors", startErr: errors.New("start failed"), stopErr: errors.New("stop failed")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runnable := &mockRunnable{
				name:     "error-test",
				startErr: tt.startErr,
				stopErr:  tt.stopErr,
			}
			ctx := context.Background()

			assert.Equal(t, tt.startErr, runnable.Start(ctx))
			assert.Equal(t, tt.stopErr, runnable.Stop(ctx))
		})
	}
}
