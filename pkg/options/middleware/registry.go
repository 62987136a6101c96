package middleware

import (
	"fmt"
	"sort"
	"sync"
)

// Registry 按名称保存三类中间件构件：配置工厂、处理器工厂、路由注册器。
// 各中间件文件在 init() 中注册自己，服务端按配置的顺序取用。
type Registry struct {
	mu               sync.RWMutex
	factories        map[string]func() MiddlewareConfig
	handlerFactories map[string]Factory
	routeRegistrars  map[string]RouteRegistrar
}

func newRegistry() *Registry {
	return &Registry{
		factories:        make(map[string]func() MiddlewareConfig),
		handlerFactories: make(map[string]Factory),
		routeRegistrars:  make(map[string]RouteRegistrar),
	}
}

var globalRegistry = newRegistry()

func (r *Registry) register(name string, factory func() MiddlewareConfig, allowOverride bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !allowOverride {
		if _, exists := r.factories[name]; exists {
			panic(fmt.Sprintf("middleware %q already registered", name))
		}
	}
	r.factories[name] = factory
}

func (r *Registry) registerFactory(f Factory, allowOverride bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := f.Name()
	if !allowOverride {
		if _, exists := r.handlerFactories[name]; exists {
			panic(fmt.Sprintf("middleware factory %q already registered", name))
		}
	}
	r.handlerFactories[name] = f
}

// Register 注册配置工厂，重名时 panic。
func Register(name string, factory func() MiddlewareConfig) {
	globalRegistry.register(name, factory, false)
}

// MustRegister 注册配置工厂，允许覆盖既有注册（测试用）。
func MustRegister(name string, factory func() MiddlewareConfig) {
	globalRegistry.register(name, factory, true)
}

// RegisterFactory 注册处理器工厂，重名时 panic。
func RegisterFactory(f Factory) {
	globalRegistry.registerFactory(f, false)
}

// MustRegisterFactory 注册处理器工厂，允许覆盖（测试用）。
func MustRegisterFactory(f Factory) {
	globalRegistry.registerFactory(f, true)
}

// RegisterRouteRegistrar 注册独立路由的注册器（health、metrics、pprof、version）。
func RegisterRouteRegistrar(name string, r RouteRegistrar) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.routeRegistrars[name] = r
}

// Create 按名称创建一份新的配置实例。
func Create(name string) (MiddlewareConfig, error) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	factory, ok := globalRegistry.factories[name]
	if !ok {
		return nil, fmt.Errorf("middleware %q not registered", name)
	}
	return factory(), nil
}

// CreateAll 为每个已注册的中间件创建配置实例。
func CreateAll() map[string]MiddlewareConfig {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	configs := make(map[string]MiddlewareConfig, len(globalRegistry.factories))
	for name, factory := range globalRegistry.factories {
		configs[name] = factory()
	}
	return configs
}

// GetFactory 返回处理器工厂。
func GetFactory(name string) (Factory, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	f, ok := globalRegistry.handlerFactories[name]
	return f, ok
}

// GetRouteRegistrar 返回路由注册器。
func GetRouteRegistrar(name string) (RouteRegistrar, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	r, ok := globalRegistry.routeRegistrars[name]
	return r, ok
}

// IsRegistered 报告配置工厂是否存在。
func IsRegistered(name string) bool {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	_, ok := globalRegistry.factories[name]
	return ok
}

// IsFactoryRegistered 报告处理器工厂是否存在。
func IsFactoryRegistered(name string) bool {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	_, ok := globalRegistry.handlerFactories[name]
	return ok
}

// ListRegistered 返回已注册配置工厂的名称，按字母序。
func ListRegistered() []string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	return sortedKeysConfig(globalRegistry.factories)
}

// ListFactories 返回已注册处理器工厂的名称，按字母序。
func ListFactories() []string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	return sortedKeysFactory(globalRegistry.handlerFactories)
}

func sortedKeysConfig(m map[string]func() MiddlewareConfig) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedKeysFactory(m map[string]Factory) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResetRegistry 清空全局注册器，仅测试使用。
func ResetRegistry() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.factories = make(map[string]func() MiddlewareConfig)
	globalRegistry.handlerFactories = make(map[string]Factory)
	globalRegistry.routeRegistrars = make(map[string]RouteRegistrar)
}
