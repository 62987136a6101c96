package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// 中间件注册名，配置文件和 Middleware 顺序数组都用这些名字引用。
const (
	MiddlewareRecovery  = "recovery"
	MiddlewareRequestID = "request-id"
	MiddlewareLogger    = "logger"
	MiddlewareCORS      = "cors"
	MiddlewareTimeout   = "timeout"
	MiddlewareHealth    = "health"
	MiddlewareMetrics   = "metrics"
	MiddlewarePprof     = "pprof"
	MiddlewareVersion   = "version"
)

// ConfigError 携带出错字段名的配置错误。
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("config error in field %q: %s", e.Field, e.Message)
}

// PathMatcher 是各中间件共享的路径匹配配置。
type PathMatcher struct {
	SkipPaths        []string
	SkipPathPrefixes []string
}

// Options 保存全部中间件配置。配置实例统一放在 configs map 里，
// 键是注册名，新中间件不需要改这个结构体就能接入。
// 一个中间件是否启用看它在不在 configs 里，而不是配置上的开关字段。
type Options struct {
	// Middleware 指定应用顺序，空时走 DefaultMiddlewareOrder。
	// 示例: ["recovery", "request-id", "logger", "cors", "timeout"]
	Middleware []string `json:"middleware" mapstructure:"middleware"`

	mu      sync.RWMutex
	configs map[string]MiddlewareConfig
}

// Option 修改 Options 的函数。
type Option func(*Options)

// 默认启用的中间件集合。
var defaultEnabled = []string{
	MiddlewareRecovery,
	MiddlewareRequestID,
	MiddlewareLogger,
	MiddlewareHealth,
	MiddlewareMetrics,
	MiddlewareVersion,
}

// NewOptions 创建带默认中间件集合的选项。
func NewOptions() *Options {
	o := &Options{
		configs: make(map[string]MiddlewareConfig),
	}
	for _, name := range defaultEnabled {
		cfg, err := Create(name)
		if err != nil {
			continue
		}
		o.configs[name] = cfg
	}
	return o
}

// ensureConfigsLocked 初始化 configs map，调用方需持有写锁。
func (o *Options) ensureConfigsLocked() {
	if o.configs == nil {
		o.configs = make(map[string]MiddlewareConfig)
	}
}

// LoadFromViper 从 viper 加载 Middleware 顺序和各中间件配置。
// 配置键取自注册表，文件里没出现的中间件保持现状。
func (o *Options) LoadFromViper(v *viper.Viper) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ensureConfigsLocked()

	if v.IsSet("middleware") {
		if err := v.UnmarshalKey("middleware", &o.Middleware); err != nil {
			return fmt.Errorf("unmarshal middleware order: %w", err)
		}
	}

	for _, name := range ListRegistered() {
		if !v.IsSet(name) {
			continue
		}

		// 先从注册表拿到正确类型的实例，再让 viper 填值
		cfg, err := Create(name)
		if err != nil {
			return fmt.Errorf("create config for %s: %w", name, err)
		}
		if err := v.UnmarshalKey(name, cfg); err != nil {
			return fmt.Errorf("unmarshal config for %s: %w", name, err)
		}
		o.configs[name] = cfg
	}
	return nil
}

// SetConfig 写入指定中间件的配置，同时起到启用的作用。
func (o *Options) SetConfig(name string, cfg MiddlewareConfig) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ensureConfigsLocked()
	o.configs[name] = cfg
}

// GetConfig 读取指定中间件的配置，没有则返回 nil。
func (o *Options) GetConfig(name string) MiddlewareConfig {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.configs[name]
}

// GetOrCreate 读取配置，不存在时从注册表新建一份并写入。
// 名称未注册时返回 nil。
func (o *Options) GetOrCreate(name string) MiddlewareConfig {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ensureConfigsLocked()

	if cfg, ok := o.configs[name]; ok {
		return cfg
	}
	cfg, err := Create(name)
	if err != nil {
		return nil
	}
	o.configs[name] = cfg
	return cfg
}

// DeleteConfig 移除指定中间件的配置，即禁用它。
func (o *Options) DeleteConfig(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.configs, name)
}

// GetConfigTyped 读取配置并断言到具体类型，省去调用方手动断言。
func GetConfigTyped[T MiddlewareConfig](o *Options, name string) (T, bool) {
	cfg := o.GetConfig(name)
	if cfg == nil {
		var zero T
		return zero, false
	}
	typed, ok := cfg.(T)
	return typed, ok
}

// IsEnabled 报告指定中间件是否启用。
func (o *Options) IsEnabled(name string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	cfg, ok := o.configs[name]
	return ok && cfg != nil
}

// GetEnabledMiddlewares 返回全部已启用中间件的名称。
func (o *Options) GetEnabledMiddlewares() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if len(o.configs) == 0 {
		return nil
	}
	var enabled []string
	for name, cfg := range o.configs {
		if cfg != nil {
			enabled = append(enabled, name)
		}
	}
	return enabled
}

// ListConfigs 返回全部持有配置的中间件名称。
func (o *Options) ListConfigs() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if len(o.configs) == 0 {
		return nil
	}
	names := make([]string, 0, len(o.configs))
	for name := range o.configs {
		names = append(names, name)
	}
	return names
}

// Validate 校验 Middleware 顺序和每个中间件配置。
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	errs := o.validateMiddlewareLocked()
	for name, cfg := range o.configs {
		if cfg == nil {
			continue
		}
		for _, err := range cfg.Validate() {
			errs = append(errs, &ConfigError{Field: name, Message: err.Error()})
		}
	}
	return errs
}

// Complete 对每个中间件配置填充默认值，遇到首个失败即返回。
func (o *Options) Complete() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ensureConfigsLocked()

	for name, cfg := range o.configs {
		if cfg == nil {
			continue
		}
		if err := cfg.Complete(); err != nil {
			return &ConfigError{Field: name, Message: err.Error()}
		}
	}
	return nil
}

// AddFlags 把所有已启用中间件的命令行标志挂到 fs 上。
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, cfg := range o.configs {
		if cfg != nil {
			cfg.AddFlags(fs, prefixes...)
		}
	}
}

// DefaultMiddlewareOrder 返回默认应用顺序。recovery 必须在最外层兜住
// panic，request-id 要在 logger 之前，日志才能带上请求 ID。
func DefaultMiddlewareOrder() []string {
	return []string{
		MiddlewareRecovery,
		MiddlewareRequestID,
		MiddlewareLogger,
		MiddlewareMetrics,
		MiddlewareCORS,
		MiddlewareTimeout,
	}
}

// GetMiddlewareOrder 返回配置的应用顺序，未配置时用默认顺序。
func (o *Options) GetMiddlewareOrder() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if len(o.Middleware) > 0 {
		return o.Middleware
	}
	return DefaultMiddlewareOrder()
}

// ValidateMiddleware 校验 Middleware 顺序数组：名称必须已注册且不重复。
func (o *Options) ValidateMiddleware() []error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.validateMiddlewareLocked()
}

func (o *Options) validateMiddlewareLocked() []error {
	if len(o.Middleware) == 0 {
		return nil
	}

	registered := make(map[string]bool)
	for _, name := range ListRegistered() {
		registered[name] = true
	}

	var errs []error
	seen := make(map[string]bool, len(o.Middleware))
	for _, name := range o.Middleware {
		if !registered[name] {
			errs = append(errs, &ConfigError{
				Field:   "middleware",
				Message: "unknown middleware: " + name,
			})
		}
		if seen[name] {
			errs = append(errs, &ConfigError{
				Field:   "middleware",
				Message: "duplicate middleware in list: " + name,
			})
		}
		seen[name] = true
	}
	return errs
}

// Configure 构造针对单个中间件配置的修改器。配置实例来自
// GetOrCreate，类型不匹配或名称未注册时静默跳过。
func Configure[T MiddlewareConfig](name string, modifier func(T)) Option {
	return func(o *Options) {
		cfg := o.GetOrCreate(name)
		if cfg == nil {
			return
		}
		if typed, ok := cfg.(T); ok {
			modifier(typed)
		}
	}
}

// Without 构造禁用指定中间件的修改器。
func Without(name string) Option {
	return func(o *Options) {
		o.DeleteConfig(name)
	}
}

// WithRecovery 启用 recovery 中间件并设置是否返回堆栈。
func WithRecovery(enableStackTrace bool) Option {
	return Configure(MiddlewareRecovery, func(cfg *RecoveryOptions) {
		cfg.EnableStackTrace = enableStackTrace
	})
}

// WithRequestID 启用 request-id 中间件，header 为空时保持默认头名。
func WithRequestID(header string) Option {
	return Configure(MiddlewareRequestID, func(cfg *RequestIDOptions) {
		if header != "" {
			cfg.Header = header
		}
	})
}

// WithLogger 启用 logger 中间件并设置跳过路径。
func WithLogger(skipPaths ...string) Option {
	return Configure(MiddlewareLogger, func(cfg *LoggerOptions) {
		if len(skipPaths) > 0 {
			cfg.SkipPaths = skipPaths
		}
	})
}

// WithCORS 启用 CORS 中间件并设置允许的来源。
func WithCORS(origins ...string) Option {
	return Configure(MiddlewareCORS, func(cfg *CORSOptions) {
		if len(origins) > 0 {
			cfg.AllowOrigins = origins
		}
	})
}

// WithTimeout 启用 timeout 中间件并设置超时时长和跳过路径。
func WithTimeout(timeout time.Duration, skipPaths ...string) Option {
	return Configure(MiddlewareTimeout, func(cfg *TimeoutOptions) {
		if timeout > 0 {
			cfg.Timeout = timeout
		}
		if len(skipPaths) > 0 {
			cfg.SkipPaths = skipPaths
		}
	})
}

// WithHealth 启用 health 中间件并设置三个探针路径，空串保持默认。
func WithHealth(path, livenessPath, readinessPath string) Option {
	return Configure(MiddlewareHealth, func(cfg *HealthOptions) {
		if path != "" {
			cfg.Path = path
		}
		if livenessPath != "" {
			cfg.LivenessPath = livenessPath
		}
		if readinessPath != "" {
			cfg.ReadinessPath = readinessPath
		}
	})
}

// WithMetrics 启用 metrics 中间件并设置采集路径和指标命名。
func WithMetrics(path, namespace, subsystem string) Option {
	return Configure(MiddlewareMetrics, func(cfg *MetricsOptions) {
		if path != "" {
			cfg.Path = path
		}
		if namespace != "" {
			cfg.Namespace = namespace
		}
		if subsystem != "" {
			cfg.Subsystem = subsystem
		}
	})
}

// WithPprof 启用 pprof 中间件并设置路由前缀。
func WithPprof(prefix string) Option {
	return Configure(MiddlewarePprof, func(cfg *PprofOptions) {
		if prefix != "" {
			cfg.Prefix = prefix
		}
	})
}

// WithVersion 启用 version 中间件并设置路径和详情开关。
func WithVersion(path string, hideDetails bool) Option {
	return Configure(MiddlewareVersion, func(cfg *VersionOptions) {
		if path != "" {
			cfg.Path = path
		}
		cfg.HideDetails = hideDetails
	})
}

// 各中间件的禁用修改器。
func WithoutRecovery() Option  { return Without(MiddlewareRecovery) }
func WithoutRequestID() Option { return Without(MiddlewareRequestID) }
func WithoutLogger() Option    { return Without(MiddlewareLogger) }
func WithoutCORS() Option      { return Without(MiddlewareCORS) }
func WithoutTimeout() Option   { return Without(MiddlewareTimeout) }
func WithoutHealth() Option    { return Without(MiddlewareHealth) }
func WithoutMetrics() Option   { return Without(MiddlewareMetrics) }
func WithoutPprof() Option     { return Without(MiddlewarePprof) }
func WithoutVersion() Option   { return Without(MiddlewareVersion) }
