// Package redis holds connection options for the Redis query and embedding
// caches.
package redis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/provenance/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

const redacted = "[REDACTED]"

// Options configures the Redis client.
type Options struct {
	Host         string        `json:"host" mapstructure:"host"`
	Port         int           `json:"port" mapstructure:"port"`
	Password     string        `json:"-" mapstructure:"password"`
	Database     int           `json:"database" mapstructure:"database"`
	MaxRetries   int           `json:"max-retries" mapstructure:"max-retries"`
	PoolSize     int           `json:"pool-size" mapstructure:"pool-size"`
	MinIdleConns int           `json:"min-idle-conns" mapstructure:"min-idle-conns"`
	DialTimeout  time.Duration `json:"dial-timeout" mapstructure:"dial-timeout"`
	ReadTimeout  time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
	PoolTimeout  time.Duration `json:"pool-timeout" mapstructure:"pool-timeout"`
}

// NewOptions returns Options with defaults for a local Redis.
func NewOptions() *Options {
	return &Options{
		Host:         "127.0.0.1",
		Port:         6379,
		Database:     0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	}
}

func (o *Options) redactedPassword() string {
	if o.Password == "" {
		return ""
	}
	return redacted
}

// MarshalJSON serializes the options with the password redacted so dumps of
// effective config never leak credentials.
func (o *Options) MarshalJSON() ([]byte, error) {
	type plain Options
	clone := plain(*o)
	clone.Password = ""
	raw, err := json.Marshal(&clone)
	if err != nil {
		return nil, err
	}
	if o.Password == "" {
		return raw, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	m["password"] = redacted
	return json.Marshal(m)
}

// String renders a log-safe summary.
func (o *Options) String() string {
	return fmt.Sprintf("Redis{host=%s, port=%d, password=%s, database=%d}",
		o.Host, o.Port, o.redactedPassword(), o.Database)
}

// Complete fills defaults for unset connection parameters.
func (o *Options) Complete() error {
	defaults := NewOptions()
	if o.Host == "" {
		o.Host = defaults.Host
	}
	if o.Port == 0 {
		o.Port = defaults.Port
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = defaults.MaxRetries
	}
	if o.PoolSize == 0 {
		o.PoolSize = defaults.PoolSize
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = defaults.DialTimeout
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = defaults.ReadTimeout
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = defaults.WriteTimeout
	}
	if o.PoolTimeout == 0 {
		o.PoolTimeout = defaults.PoolTimeout
	}
	return nil
}

// Validate normalizes the options. An empty password falls back to the
// REDIS_PASSWORD environment variable; passing it on the command line still
// works but is warned about since it shows up in process listings.
func (o *Options) Validate() []error {
	if o.Password == "" {
		o.Password = os.Getenv("REDIS_PASSWORD")
	} else if os.Getenv("REDIS_PASSWORD") == "" {
		fmt.Fprintln(os.Stderr, "WARNING: Passing Redis password via CLI is insecure. Use REDIS_PASSWORD environment variable instead.")
	}

	var errs []error
	if o.Port < 0 || o.Port > 65535 {
		errs = append(errs, fmt.Errorf("redis port %d out of range", o.Port))
	}
	if o.Database < 0 {
		errs = append(errs, fmt.Errorf("redis database must not be negative, got %d", o.Database))
	}
	return errs
}

// AddFlags binds the options under the "redis." prefix.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...)
	fs.StringVar(&o.Host, prefix+"redis.host", o.Host, "Redis host")
	fs.IntVar(&o.Port, prefix+"redis.port", o.Port, "Redis port")
	fs.StringVar(&o.Password, prefix+"redis.password", o.Password, "Redis password (DEPRECATED: use REDIS_PASSWORD env var instead)")
	fs.IntVar(&o.Database, prefix+"redis.database", o.Database, "Redis database")
	fs.IntVar(&o.MaxRetries, prefix+"redis.max-retries", o.MaxRetries, "Redis max retries")
	fs.IntVar(&o.PoolSize, prefix+"redis.pool-size", o.PoolSize, "Redis pool size")
	fs.IntVar(&o.MinIdleConns, prefix+"redis.min-idle-conns", o.MinIdleConns, "Redis min idle connections")
	fs.DurationVar(&o.DialTimeout, prefix+"redis.dial-timeout", o.DialTimeout, "Redis dial timeout")
	fs.DurationVar(&o.ReadTimeout, prefix+"redis.read-timeout", o.ReadTimeout, "Redis read timeout")
	fs.DurationVar(&o.WriteTimeout, prefix+"redis.write-timeout", o.WriteTimeout, "Redis write timeout")
	fs.DurationVar(&o.PoolTimeout, prefix+"redis.pool-timeout", o.PoolTimeout, "Redis pool timeout")
}
