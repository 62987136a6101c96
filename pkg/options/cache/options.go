// Package cache provides cache configuration options.
package cache

import (
	"time"

	"github.com/kart-io/provenance/pkg/options"
	redisopts "github.com/kart-io/provenance/pkg/options/redis"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options 查询缓存配置，Redis 连接配置内嵌复用
type Options struct {
	// Enabled 关闭后所有查询直达后端
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// TTL 缓存条目过期时间
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`
	// KeyPrefix 缓存键前缀，用于多实例共享 Redis 时隔离
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`
	// Redis 连接配置
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`
}

// NewOptions 返回默认缓存配置
func NewOptions() *Options {
	return &Options{
		Enabled:   true,
		TTL:       time.Hour,
		KeyPrefix: "cache:",
		Redis:     redisopts.NewOptions(),
	}
}

// AddFlags 注册 cache.* 命令行参数
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...)
	fs.BoolVar(&o.Enabled, prefix+"cache.enabled", o.Enabled, "Enable cache.")
	fs.DurationVar(&o.TTL, prefix+"cache.ttl", o.TTL, "Cache TTL duration.")
	fs.StringVar(&o.KeyPrefix, prefix+"cache.key-prefix", o.KeyPrefix, "Cache key prefix.")

	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	o.Redis.AddFlags(fs, prefixes...)
}

// Validate 校验缓存配置，禁用时跳过 Redis 校验
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled || o.Redis == nil {
		return nil
	}
	return o.Redis.Validate()
}

// Complete 补全缺省的 Redis 配置
func (o *Options) Complete() error {
	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	return o.Redis.Complete()
}
