package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
)

var (
	globalManager     *Manager
	globalMu          sync.Mutex
	globalInitialized uint32
)

// GlobalConfig 全局池管理器的初始化配置，nil 字段跳过注册
type GlobalConfig struct {
	DefaultPool     *Config
	HealthCheckPool *Config
	BackgroundPool  *Config
	CallbackPool    *Config
	TimeoutPool     *Config
	// CustomPools 额外的命名池，统一按 DefaultPool 类型注册
	CustomPools map[string]*Config
}

// DefaultGlobalConfig 返回带全部标准池的全局配置
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		DefaultPool:     DefaultPoolConfig(),
		HealthCheckPool: HealthCheckPoolConfig(),
		BackgroundPool:  BackgroundPoolConfig(),
		CallbackPool:    CallbackPoolConfig(),
		TimeoutPool:     TimeoutPoolConfig(),
		CustomPools:     make(map[string]*Config),
	}
}

// InitGlobal 用默认配置初始化全局池管理器，重复调用是 no-op
func InitGlobal() error {
	return InitGlobalWithConfig(nil)
}

// InitGlobalWithConfig 初始化全局池管理器，注册失败时回滚已建的池
func InitGlobalWithConfig(config *GlobalConfig) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if atomic.LoadUint32(&globalInitialized) == 1 {
		return nil
	}
	if config == nil {
		config = DefaultGlobalConfig()
	}

	manager := NewManager()

	standard := map[Type]*Config{
		DefaultPool:     config.DefaultPool,
		HealthCheckPool: config.HealthCheckPool,
		BackgroundPool:  config.BackgroundPool,
		CallbackPool:    config.CallbackPool,
		TimeoutPool:     config.TimeoutPool,
	}
	for poolType, poolConfig := range standard {
		if poolConfig == nil {
			continue
		}
		if err := manager.RegisterWithType(poolType, poolConfig); err != nil {
			manager.ReleaseAll()
			return err
		}
	}

	for name, poolConfig := range config.CustomPools {
		if err := manager.Register(name, DefaultPool, poolConfig); err != nil {
			manager.ReleaseAll()
			return err
		}
	}

	globalManager = manager
	atomic.StoreUint32(&globalInitialized, 1)

	logger.Infow("全局池管理器初始化完成", "pools", manager.List())
	return nil
}

// GetGlobal 返回全局池管理器，必要时先做默认初始化
func GetGlobal() *Manager {
	if atomic.LoadUint32(&globalInitialized) == 0 {
		if err := InitGlobal(); err != nil {
			logger.Errorw("自动初始化全局池管理器失败", "error", err)
			return nil
		}
	}
	return globalManager
}

// MustGetGlobal 同 GetGlobal，失败时 panic
func MustGetGlobal() *Manager {
	mgr := GetGlobal()
	if mgr == nil {
		panic(ErrManagerNotInitialized)
	}
	return mgr
}

// CloseGlobal 释放所有池并清空全局管理器
func CloseGlobal() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if atomic.LoadUint32(&globalInitialized) == 0 {
		return nil
	}
	if globalManager != nil {
		globalManager.ReleaseAll()
		globalManager = nil
	}
	atomic.StoreUint32(&globalInitialized, 0)

	logger.Infow("全局池管理器已关闭")
	return nil
}

// CloseGlobalTimeout 带超时关闭，等待在途任务完成
func CloseGlobalTimeout(timeout time.Duration) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if atomic.LoadUint32(&globalInitialized) == 0 {
		return nil
	}

	var err error
	if globalManager != nil {
		err = globalManager.ReleaseAllTimeout(timeout)
		globalManager = nil
	}
	atomic.StoreUint32(&globalInitialized, 0)

	logger.Infow("全局池管理器已关闭", "timeout", timeout)
	return err
}

// ResetGlobal 重置全局状态，测试专用
func ResetGlobal() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager != nil {
		globalManager.ReleaseAll()
		globalManager = nil
	}
	atomic.StoreUint32(&globalInitialized, 0)
}

// 走全局管理器的便捷函数

// Submit 提交任务到默认池
func Submit(task func()) error {
	mgr := GetGlobal()
	if mgr == nil {
		return ErrManagerNotInitialized
	}
	return mgr.SubmitToDefault(task)
}

// SubmitTo 提交任务到指定名称的池
func SubmitTo(poolName string, task func()) error {
	mgr := GetGlobal()
	if mgr == nil {
		return ErrManagerNotInitialized
	}
	return mgr.Submit(poolName, task)
}

// SubmitToType 提交任务到指定类型的池
func SubmitToType(poolType Type, task func()) error {
	return SubmitTo(string(poolType), task)
}

// SubmitWithContext 提交带上下文的任务到默认池
func SubmitWithContext(ctx context.Context, task func()) error {
	return SubmitToWithContext(ctx, string(DefaultPool), task)
}

// SubmitToWithContext 提交带上下文的任务到指定池
func SubmitToWithContext(ctx context.Context, poolName string, task func()) error {
	mgr := GetGlobal()
	if mgr == nil {
		return ErrManagerNotInitialized
	}
	return mgr.SubmitWithContext(ctx, poolName, task)
}

// Register 在全局管理器上注册新池
func Register(name string, typ Type, config *Config) error {
	mgr := GetGlobal()
	if mgr == nil {
		return ErrManagerNotInitialized
	}
	return mgr.Register(name, typ, config)
}

// Get 获取指定名称的池
func Get(name string) (*Pool, error) {
	mgr := GetGlobal()
	if mgr == nil {
		return nil, ErrManagerNotInitialized
	}
	return mgr.Get(name)
}

// GetByType 获取指定类型的池
func GetByType(poolType Type) (*Pool, error) {
	return Get(string(poolType))
}

// MustGet 同 Get，失败时 panic
func MustGet(name string) *Pool {
	p, err := Get(name)
	if err != nil {
		panic(err)
	}
	return p
}

// StatsGlobal 返回所有池的统计
func StatsGlobal() map[string]Info {
	mgr := GetGlobal()
	if mgr == nil {
		return nil
	}
	return mgr.Stats()
}

// Tune 调整指定池的容量
func Tune(name string, size int) error {
	mgr := GetGlobal()
	if mgr == nil {
		return ErrManagerNotInitialized
	}
	return mgr.Tune(name, size)
}
