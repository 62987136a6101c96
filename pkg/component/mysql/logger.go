package mysql

import (
	"context"
	"errors"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/logger"
)

// GormLogger bridges gorm's logger interface onto the structured logger so
// SQL logs carry the same fields as the rest of the service.
type GormLogger struct {
	LogLevel                  gormlogger.LogLevel
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// NewGormLogger creates a GormLogger.
func NewGormLogger(logLevel gormlogger.LogLevel, slowThreshold time.Duration, ignoreRecordNotFoundError bool) *GormLogger {
	return &GormLogger{
		LogLevel:                  logLevel,
		SlowThreshold:             slowThreshold,
		IgnoreRecordNotFoundError: ignoreRecordNotFoundError,
	}
}

// LogMode returns a copy at the given level.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.LogLevel = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Info {
		logger.Global().WithCtx(ctx).Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Warn {
		logger.Global().WithCtx(ctx).Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Error {
		logger.Global().WithCtx(ctx).Errorf(msg, data...)
	}
}

// Trace logs each statement once it completes: errors at error level, slow
// queries at warn, everything else at info when the level allows.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}

	elapsedMS := float64(time.Since(begin).Nanoseconds()) / 1e6

	if err != nil && l.LogLevel >= gormlogger.Error {
		if l.IgnoreRecordNotFoundError && errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		sql, rows := fc()
		logger.Global().WithCtx(ctx).Errorw("Database query failed",
			"error", err,
			"sql", sql,
			"rows", rows,
			"duration_ms", elapsedMS,
		)
		return
	}

	if l.SlowThreshold != 0 && elapsedMS > float64(l.SlowThreshold.Nanoseconds())/1e6 && l.LogLevel >= gormlogger.Warn {
		sql, rows := fc()
		logger.Global().WithCtx(ctx).Warnw("Slow database query detected",
			"sql", sql,
			"rows", rows,
			"duration_ms", elapsedMS,
			"threshold_ms", float64(l.SlowThreshold.Nanoseconds())/1e6,
		)
		return
	}

	if l.LogLevel >= gormlogger.Info {
		sql, rows := fc()
		logger.Global().WithCtx(ctx).Infow("Database query executed",
			"sql", sql,
			"rows", rows,
			"duration_ms", elapsedMS,
		)
	}
}
