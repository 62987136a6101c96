package mysql

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

const redactedPassword = "[REDACTED]"

// Options configures the MySQL connection and pool.
type Options struct {
	Host                  string        `json:"host" mapstructure:"host"`
	Port                  int           `json:"port" mapstructure:"port"`
	Username              string        `json:"username" mapstructure:"username"`
	Password              string        `json:"-" mapstructure:"password"`
	Database              string        `json:"database" mapstructure:"database"`
	MaxIdleConnections    int           `json:"max-idle-connections" mapstructure:"max-idle-connections"`
	MaxOpenConnections    int           `json:"max-open-connections" mapstructure:"max-open-connections"`
	MaxConnectionLifeTime time.Duration `json:"max-connection-life-time" mapstructure:"max-connection-life-time"`
	MaxIdleTime           time.Duration `json:"max-idle-time" mapstructure:"max-idle-time"`
	LogLevel              int           `json:"log-level" mapstructure:"log-level"`
}

// NewOptions returns Options with pool defaults sized for a single service
// instance and gorm logging silenced.
func NewOptions() *Options {
	return &Options{
		Host:                  "127.0.0.1",
		Port:                  3306,
		Username:              "root",
		MaxIdleConnections:    20,
		MaxOpenConnections:    200,
		MaxConnectionLifeTime: time.Hour,
		MaxIdleTime:           10 * time.Minute,
		LogLevel:              1,
	}
}

func (o *Options) redactedPassword() string {
	if o.Password == "" {
		return ""
	}
	return redactedPassword
}

// MarshalJSON redacts the password so effective-config dumps stay safe to log.
func (o *Options) MarshalJSON() ([]byte, error) {
	type plain Options
	clone := plain(*o)
	clone.Password = ""
	raw, err := json.Marshal(&clone)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	m["password"] = o.redactedPassword()
	return json.Marshal(m)
}

// String renders a log-safe summary.
func (o *Options) String() string {
	return fmt.Sprintf("MySQL{host=%s, port=%d, user=%s, password=%s, database=%s}",
		o.Host, o.Port, o.Username, o.redactedPassword(), o.Database)
}

// Complete fills derived values. All defaults come from NewOptions, so there
// is nothing to derive; the method satisfies the component config contract.
func (o *Options) Complete() error {
	return nil
}

// Validate normalizes the options. An empty password falls back to the
// MYSQL_PASSWORD environment variable; a CLI-supplied password is warned
// about since it is visible in process listings.
func (o *Options) Validate() error {
	if o.Password == "" {
		o.Password = os.Getenv("MYSQL_PASSWORD")
	} else if os.Getenv("MYSQL_PASSWORD") == "" {
		fmt.Fprintln(os.Stderr, "WARNING: Passing MySQL password via CLI is insecure. Use MYSQL_PASSWORD environment variable instead.")
	}
	return nil
}

// AddFlags binds the options under the given prefix.
func (o *Options) AddFlags(fs *pflag.FlagSet, namePrefix string) {
	fs.StringVar(&o.Host, namePrefix+"host", o.Host, "MySQL host")
	fs.IntVar(&o.Port, namePrefix+"port", o.Port, "MySQL port")
	fs.StringVar(&o.Username, namePrefix+"username", o.Username, "MySQL username")
	fs.StringVar(&o.Password, namePrefix+"password", o.Password, "MySQL password (DEPRECATED: use MYSQL_PASSWORD env var instead)")
	fs.StringVar(&o.Database, namePrefix+"database", o.Database, "MySQL database")
	fs.IntVar(&o.MaxIdleConnections, namePrefix+"max-idle-connections", o.MaxIdleConnections, "MySQL max idle connections")
	fs.IntVar(&o.MaxOpenConnections, namePrefix+"max-open-connections", o.MaxOpenConnections, "MySQL max open connections")
	fs.DurationVar(&o.MaxConnectionLifeTime, namePrefix+"max-connection-life-time", o.MaxConnectionLifeTime, "MySQL max connection life time")
	fs.DurationVar(&o.MaxIdleTime, namePrefix+"max-idle-time", o.MaxIdleTime, "MySQL max idle time")
	fs.IntVar(&o.LogLevel, namePrefix+"log-level", o.LogLevel, "MySQL log level")
}
