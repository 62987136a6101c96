package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Manager 管理一组命名池。关闭后所有注册和查询都返回 ErrPoolClosed。
type Manager struct {
	mu     sync.RWMutex
	pools  map[string]*Pool
	closed atomic.Bool
}

// NewManager 创建空的池管理器
func NewManager() *Manager {
	return &Manager{
		pools: make(map[string]*Pool),
	}
}

// Register 按名称注册新池，名称冲突返回 ErrPoolAlreadyExists
func (m *Manager) Register(name string, typ Type, config *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Load() {
		return ErrPoolClosed
	}
	if _, exists := m.pools[name]; exists {
		return fmt.Errorf("%w: %s", ErrPoolAlreadyExists, name)
	}

	pool, err := NewPool(name, typ, config)
	if err != nil {
		return err
	}
	m.pools[name] = pool
	return nil
}

// RegisterWithType 用池类型名作为池名注册
func (m *Manager) RegisterWithType(poolType Type, config *Config) error {
	return m.Register(string(poolType), poolType, config)
}

// Get 按名称查找池
func (m *Manager) Get(name string) (*Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return nil, ErrPoolClosed
	}

	pool, exists := m.pools[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, name)
	}
	return pool, nil
}

// GetByType 按预定义类型查找池
func (m *Manager) GetByType(poolType Type) (*Pool, error) {
	return m.Get(string(poolType))
}

// MustGet 按名称查找池，不存在时 panic
func (m *Manager) MustGet(name string) *Pool {
	pool, err := m.Get(name)
	if err != nil {
		panic(fmt.Sprintf("获取池 '%s' 失败: %v", name, err))
	}
	return pool
}

// Submit 向指定池提交任务
func (m *Manager) Submit(poolName string, task func()) error {
	pool, err := m.Get(poolName)
	if err != nil {
		return err
	}
	return pool.Submit(task)
}

// SubmitToDefault 向默认池提交任务
func (m *Manager) SubmitToDefault(task func()) error {
	return m.Submit(string(DefaultPool), task)
}

// SubmitWithContext 向指定池提交任务，提交前检查上下文
func (m *Manager) SubmitWithContext(ctx context.Context, poolName string, task func()) error {
	pool, err := m.Get(poolName)
	if err != nil {
		return err
	}
	return pool.SubmitWithContext(ctx, task)
}

// List 返回所有已注册的池名称
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.pools))
	for name := range m.pools {
		names = append(names, name)
	}
	return names
}

// Info 单个池的运行时快照
type Info struct {
	Name           string
	Running        int
	Free           int
	Capacity       int
	Waiting        int
	SubmittedTasks int64
	CompletedTasks int64
	FailedTasks    int64
	RejectedTasks  int64
	PanicRecovered int64
}

// Stats 返回所有池的统计信息快照
func (m *Manager) Stats() map[string]Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]Info, len(m.pools))
	for name, pool := range m.pools {
		submitted, completed, failed, rejected, panics := pool.GetStats()
		stats[name] = Info{
			Name:           name,
			Running:        pool.Running(),
			Free:           pool.Free(),
			Capacity:       pool.Cap(),
			Waiting:        pool.Waiting(),
			SubmittedTasks: submitted,
			CompletedTasks: completed,
			FailedTasks:    failed,
			RejectedTasks:  rejected,
			PanicRecovered: panics,
		}
	}
	return stats
}

// Tune 动态调整指定池的容量
func (m *Manager) Tune(name string, size int) error {
	pool, err := m.Get(name)
	if err != nil {
		return err
	}
	pool.Tune(size)
	return nil
}

// Release 释放并移除指定池
func (m *Manager) Release(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pool, exists := m.pools[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrPoolNotFound, name)
	}

	pool.Release()
	delete(m.pools, name)
	return nil
}

// ReleaseAll 标记管理器关闭并释放所有池
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed.Store(true)
	for _, pool := range m.pools {
		pool.Release()
	}
	m.pools = make(map[string]*Pool)
}

// ReleaseAllTimeout 带超时释放所有池，返回第一个超时错误
func (m *Manager) ReleaseAllTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed.Store(true)

	var firstErr error
	for name, pool := range m.pools {
		if err := pool.ReleaseTimeout(timeout); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("释放池 '%s' 超时: %w", name, err)
		}
	}
	m.pools = make(map[string]*Pool)
	return firstErr
}

// Close 等同于 ReleaseAll，满足 io.Closer 形式的关闭约定
func (m *Manager) Close() error {
	m.ReleaseAll()
	return nil
}

// IsClosed 报告管理器是否已关闭
func (m *Manager) IsClosed() bool {
	return m.closed.Load()
}
