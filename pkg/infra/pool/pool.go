package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
)

// Type classifies a worker pool by its workload.
type Type string

const (
	// DefaultPool 默认通用池
	DefaultPool Type = "default"
	// HealthCheckPool 健康检查专用池
	HealthCheckPool Type = "health-check"
	// BackgroundPool 后台任务池（清理、监控等）
	BackgroundPool Type = "background"
	// CallbackPool 回调执行池
	CallbackPool Type = "callback"
	// TimeoutPool 超时中间件池
	TimeoutPool Type = "timeout"
)

// Config 控制单个池的容量与排队行为
type Config struct {
	// Capacity 最大并发 goroutine 数，0 表示无限制（不推荐）
	Capacity int
	// ExpiryDuration 空闲 goroutine 回收时间
	ExpiryDuration time.Duration
	// PreAlloc 预分配内存，换初始占用降低 GC
	PreAlloc bool
	// Nonblocking 为 true 时池满直接返回错误而不是排队
	Nonblocking bool
	// MaxBlockingTasks 阻塞模式下的最大等待任务数，0 表示无限制
	MaxBlockingTasks int
	// PanicHandler 任务 panic 的处理函数
	PanicHandler func(interface{})
}

// 各池类型的出厂配置。容量与过期时间按工作负载特征区分：
// 健康检查短平快，后台任务稀疏，超时池面向高并发。

// DefaultPoolConfig 默认通用池配置
func DefaultPoolConfig() *Config {
	return &Config{
		Capacity:       1000,
		ExpiryDuration: 10 * time.Second,
	}
}

// HealthCheckPoolConfig 健康检查池配置
func HealthCheckPoolConfig() *Config {
	return &Config{
		Capacity:         100,
		ExpiryDuration:   30 * time.Second,
		PreAlloc:         true,
		Nonblocking:      true,
		MaxBlockingTasks: 10,
	}
}

// BackgroundPoolConfig 后台任务池配置
func BackgroundPoolConfig() *Config {
	return &Config{
		Capacity:         50,
		ExpiryDuration:   60 * time.Second,
		Nonblocking:      true,
		MaxBlockingTasks: 100,
	}
}

// CallbackPoolConfig 回调执行池配置
func CallbackPoolConfig() *Config {
	return &Config{
		Capacity:         200,
		ExpiryDuration:   5 * time.Second,
		MaxBlockingTasks: 1000,
	}
}

// TimeoutPoolConfig 超时中间件池配置，超时路径不允许阻塞
func TimeoutPoolConfig() *Config {
	return &Config{
		Capacity:         5000,
		ExpiryDuration:   5 * time.Second,
		PreAlloc:         true,
		Nonblocking:      true,
		MaxBlockingTasks: 1000,
	}
}

// Pool wraps an ants pool with task accounting.
type Pool struct {
	name     string
	typ      Type
	pool     *ants.Pool
	config   *Config
	stats    *counters
	closed   atomic.Bool
	closedMu sync.Mutex
}

// counters 原子任务计数
type counters struct {
	SubmittedTasks  atomic.Int64
	CompletedTasks  atomic.Int64
	FailedTasks     atomic.Int64
	RejectedTasks   atomic.Int64
	PanicRecovered  atomic.Int64
	TotalWaitTimeNs atomic.Int64
}

// Stats 池统计快照
type Stats struct {
	SubmittedTasks  int64
	CompletedTasks  int64
	FailedTasks     int64
	RejectedTasks   int64
	PanicRecovered  int64
	TotalWaitTimeNs int64
}

// NewPool creates a worker pool. A nil config falls back to
// DefaultPoolConfig.
func NewPool(name string, typ Type, config *Config) (*Pool, error) {
	if config == nil {
		config = DefaultPoolConfig()
	}

	inner, err := ants.NewPool(config.Capacity, antsOptions(name, config)...)
	if err != nil {
		return nil, fmt.Errorf("创建 ants 池失败: %w", err)
	}

	logger.Infow("Worker pool created",
		"name", name,
		"capacity", config.Capacity,
		"preAlloc", config.PreAlloc,
	)

	return &Pool{
		name:   name,
		typ:    typ,
		pool:   inner,
		config: config,
		stats:  &counters{},
	}, nil
}

func antsOptions(name string, config *Config) []ants.Option {
	handler := config.PanicHandler
	if handler == nil {
		handler = func(p interface{}) {
			logger.Errorw("Worker panic recovered", "pool", name, "panic", p)
		}
	}

	return []ants.Option{
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithPreAlloc(config.PreAlloc),
		ants.WithNonblocking(config.Nonblocking),
		ants.WithMaxBlockingTasks(config.MaxBlockingTasks),
		ants.WithPanicHandler(handler),
	}
}

// Name 池名称
func (p *Pool) Name() string { return p.name }

// Type 池类型
func (p *Pool) Type() Type { return p.typ }

// Cap 池容量
func (p *Pool) Cap() int { return p.pool.Cap() }

// Running 正在运行的 goroutine 数
func (p *Pool) Running() int { return p.pool.Running() }

// Free 可用 goroutine 数
func (p *Pool) Free() int { return p.pool.Free() }

// Waiting 等待执行的任务数
func (p *Pool) Waiting() int { return p.pool.Waiting() }

// Submit 提交任务。池满且非阻塞时返回 ErrPoolOverload。
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	enqueued := time.Now()
	err := p.pool.Submit(func() {
		p.stats.TotalWaitTimeNs.Add(int64(time.Since(enqueued)))
		p.stats.SubmittedTasks.Add(1)

		defer func() {
			if r := recover(); r != nil {
				p.stats.PanicRecovered.Add(1)
				p.stats.FailedTasks.Add(1)
				// 交给 ants 的 PanicHandler
				panic(r)
			}
			p.stats.CompletedTasks.Add(1)
		}()

		task()
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			p.stats.RejectedTasks.Add(1)
			return ErrPoolOverload
		}
		p.stats.FailedTasks.Add(1)
		return err
	}
	return nil
}

// SubmitWithContext 提交任务，提交前与执行前各检查一次上下文，
// 已取消的任务静默跳过
func (p *Pool) SubmitWithContext(ctx context.Context, task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return p.Submit(func() {
		if ctx.Err() != nil {
			return
		}
		task()
	})
}

// Release 关闭池并释放资源，幂等
func (p *Pool) Release() {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()

	if p.closed.Load() {
		return
	}
	p.closed.Store(true)
	p.pool.Release()
	logger.Infow("Worker pool released", "name", p.name)
}

// ReleaseTimeout 等待在途任务完成后关闭，超时返回错误
func (p *Pool) ReleaseTimeout(timeout time.Duration) error {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()

	if p.closed.Load() {
		return nil
	}
	p.closed.Store(true)
	return p.pool.ReleaseTimeout(timeout)
}

// Tune 在线调整池容量
func (p *Pool) Tune(size int) {
	p.pool.Tune(size)
	p.config.Capacity = size
	logger.Infow("Worker pool tuned", "name", p.name, "new_capacity", size)
}

// GetStats 返回各计数器的原子快照
func (p *Pool) GetStats() (submitted, completed, failed, rejected, panics int64) {
	return p.stats.SubmittedTasks.Load(),
		p.stats.CompletedTasks.Load(),
		p.stats.FailedTasks.Load(),
		p.stats.RejectedTasks.Load(),
		p.stats.PanicRecovered.Load()
}

// Stats 返回统计快照
func (p *Pool) Stats() Stats {
	return Stats{
		SubmittedTasks:  p.stats.SubmittedTasks.Load(),
		CompletedTasks:  p.stats.CompletedTasks.Load(),
		FailedTasks:     p.stats.FailedTasks.Load(),
		RejectedTasks:   p.stats.RejectedTasks.Load(),
		PanicRecovered:  p.stats.PanicRecovered.Load(),
		TotalWaitTimeNs: p.stats.TotalWaitTimeNs.Load(),
	}
}
