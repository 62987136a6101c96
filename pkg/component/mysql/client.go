package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kart-io/provenance/pkg/component/storage"
)

// Client implements storage.Client on top of gorm.DB. The underlying GORM
// handle stays reachable through DB() for repositories that need it.
//
//	client, err := New(opts)
//	if err != nil {
//	    log.Fatalf("failed to create MySQL client: %v", err)
//	}
//	defer client.Close()
//
//	client.DB().AutoMigrate(&Document{})
type Client struct {
	db   *gorm.DB
	opts *Options
}

// New connects to MySQL with a background context. See NewWithContext.
func New(opts *Options) (*Client, error) {
	return NewWithContext(context.Background(), opts)
}

// NewWithContext validates opts, opens the connection, applies the pool
// limits, and verifies connectivity with a ping. The context bounds the
// connect-and-ping phase.
func NewWithContext(ctx context.Context, opts *Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("mysql options cannot be nil")
	}
	if err := validateOptions(opts); err != nil {
		return nil, fmt.Errorf("invalid mysql options: %w", err)
	}

	db, err := gorm.Open(mysqldriver.Open(BuildDSN(opts)), &gorm.Config{
		Logger: NewGormLogger(gormLogLevel(opts.LogLevel), 200*time.Millisecond, true),
		// 让 gorm 把驱动错误翻译成 ErrDuplicatedKey 等语义错误
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if opts.MaxIdleConnections > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConnections)
	}
	if opts.MaxOpenConnections > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConnections)
	}
	if opts.MaxConnectionLifeTime > 0 {
		sqlDB.SetConnMaxLifetime(opts.MaxConnectionLifeTime)
	}
	if opts.MaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(opts.MaxIdleTime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	return &Client{db: db, opts: opts}, nil
}

// gormLogLevel maps the numeric option (1=silent .. 4=info) to GORM's level.
func gormLogLevel(level int) logger.LogLevel {
	switch level {
	case 2:
		return logger.Error
	case 3:
		return logger.Warn
	case 4:
		return logger.Info
	default:
		return logger.Silent
	}
}

// Name returns the storage type identifier.
func (c *Client) Name() string {
	return "mysql"
}

// Ping verifies connectivity. Implements storage.Client.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool. Safe to call more than once.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Health returns a checker that pings with a 3 second budget.
func (c *Client) Health() storage.HealthChecker {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return c.Ping(ctx)
	}
}

// DB exposes the GORM handle for repository code.
func (c *Client) DB() *gorm.DB {
	return c.db
}

// SqlDB exposes the database/sql handle, mainly for pool statistics.
func (c *Client) SqlDB() (*sql.DB, error) {
	return c.db.DB()
}

func validateOptions(opts *Options) error {
	if opts.Host == "" {
		return fmt.Errorf("host is required")
	}
	if opts.Database == "" {
		return fmt.Errorf("database is required")
	}
	if opts.Port <= 0 || opts.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if opts.Username == "" {
		return fmt.Errorf("username is required")
	}
	return nil
}
