package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, config *Config) *Pool {
	t.Helper()

	p, err := NewPool("test", DefaultPool, config)
	require.NoError(t, err, "创建池失败")
	t.Cleanup(p.Release)
	return p
}

func TestNewPool(t *testing.T) {
	p := newTestPool(t, DefaultPoolConfig())

	assert.Equal(t, "test", p.Name())
	assert.Equal(t, 1000, p.Cap())
}

func TestPoolSubmit(t *testing.T) {
	p := newTestPool(t, &Config{
		Capacity:       10,
		ExpiryDuration: 5 * time.Second,
	})

	var counter atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			counter.Add(1)
		})
		if !assert.NoError(t, err, "提交任务失败") {
			wg.Done()
		}
	}
	wg.Wait()

	assert.EqualValues(t, 100, counter.Load())
}

func TestPoolSubmitWithContext(t *testing.T) {
	p := newTestPool(t, &Config{
		Capacity:       5,
		ExpiryDuration: 5 * time.Second,
	})

	var executed atomic.Bool
	require.NoError(t, p.SubmitWithContext(context.Background(), func() {
		executed.Store(true)
	}))

	time.Sleep(100 * time.Millisecond)
	assert.True(t, executed.Load(), "任务未执行")

	// 已取消的上下文直接拒绝，不执行任务
	canceledCtx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.SubmitWithContext(canceledCtx, func() {
		t.Error("已取消的上下文不应执行任务")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoolPanicRecovery(t *testing.T) {
	var panicCaught atomic.Bool

	p := newTestPool(t, &Config{
		Capacity:       5,
		ExpiryDuration: 5 * time.Second,
		PanicHandler: func(r interface{}) {
			panicCaught.Store(true)
		},
	})

	require.NoError(t, p.Submit(func() {
		panic("测试 panic")
	}))

	time.Sleep(100 * time.Millisecond)
	assert.True(t, panicCaught.Load(), "panic 未被捕获")
}

func TestPoolClosed(t *testing.T) {
	p, err := NewPool("test", DefaultPool, &Config{
		Capacity:       5,
		ExpiryDuration: 5 * time.Second,
	})
	require.NoError(t, err)

	p.Release()

	err = p.Submit(func() {
		t.Error("已关闭的池不应执行任务")
	})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestManager(t *testing.T) {
	mgr := NewManager()
	t.Cleanup(func() { _ = mgr.Close() })

	require.NoError(t, mgr.Register("test-pool", DefaultPool, &Config{
		Capacity:       10,
		ExpiryDuration: 5 * time.Second,
	}))

	// 重复注册被拒绝
	assert.Error(t, mgr.Register("test-pool", DefaultPool, DefaultPoolConfig()))

	p, err := mgr.Get("test-pool")
	require.NoError(t, err)
	require.NotNil(t, p)

	_, err = mgr.Get("non-existent")
	assert.Error(t, err, "获取不存在的池应返回错误")

	var executed atomic.Bool
	require.NoError(t, mgr.Submit("test-pool", func() {
		executed.Store(true)
	}))

	time.Sleep(100 * time.Millisecond)
	assert.True(t, executed.Load(), "任务未执行")

	assert.Len(t, mgr.List(), 1)
	assert.Len(t, mgr.Stats(), 1)
}

func TestGlobalPool(t *testing.T) {
	ResetGlobal()

	require.NoError(t, InitGlobal())
	t.Cleanup(func() { _ = CloseGlobal() })

	mgr := GetGlobal()
	require.NotNil(t, mgr, "全局管理器不应为 nil")

	// 五个预定义池都要就位
	expectedPools := []string{
		string(DefaultPool),
		string(HealthCheckPool),
		string(BackgroundPool),
		string(CallbackPool),
		string(TimeoutPool),
	}
	assert.Len(t, mgr.List(), len(expectedPools))

	var executed atomic.Bool
	require.NoError(t, Submit(func() {
		executed.Store(true)
	}))

	time.Sleep(100 * time.Millisecond)
	assert.True(t, executed.Load(), "任务未执行")
}

func TestPoolNonblocking(t *testing.T) {
	p := newTestPool(t, &Config{
		Capacity:       1,
		ExpiryDuration: 5 * time.Second,
		Nonblocking:    true,
	})

	// 占住唯一的 worker
	done := make(chan struct{})
	require.NoError(t, p.Submit(func() {
		<-done
	}))

	err := p.Submit(func() {
		t.Error("非阻塞模式下池满时不应执行任务")
	})
	assert.Error(t, err, "非阻塞模式下池满时应返回错误")

	close(done)
}

func BenchmarkPoolSubmit(b *testing.B) {
	p, _ := NewPool("bench", DefaultPool, &Config{
		Capacity:       1000,
		ExpiryDuration: 5 * time.Second,
		PreAlloc:       true,
	})
	defer p.Release()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = p.Submit(func() {})
		}
	})
}

func BenchmarkDirectGoroutine(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			go func() {}()
		}
	})
}
