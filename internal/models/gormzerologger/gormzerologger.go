package gormzerologger

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormZerologger branche les traces gorm sur zerolog
type GormZerologger struct {
	Logger                    zerolog.Logger
	LogLevel                  logger.LogLevel
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

var _ logger.Interface = (*GormZerologger)(nil)

func New(logLevel string, slowThreshold time.Duration) *GormZerologger {
	return &GormZerologger{
		Logger:                    log.Logger,
		LogLevel:                  parseGormLogLevel(logLevel),
		SlowThreshold:             slowThreshold,
		IgnoreRecordNotFoundError: true,
	}
}

// debug et trace tracent chaque requête, info et warn seulement les lentes
func parseGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug", "trace":
		return logger.Info
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// from préfère le logger du contexte de requête, qui porte le request_id
func (l *GormZerologger) from(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if lg := zerolog.Ctx(ctx); lg.GetLevel() != zerolog.Disabled {
			return lg
		}
	}
	return &l.Logger
}

func (l *GormZerologger) LogMode(level logger.LogLevel) logger.Interface {
	copied := *l
	copied.LogLevel = level
	return &copied
}

func (l *GormZerologger) emit(ctx context.Context, min logger.LogLevel, lvl zerolog.Level, msg string, data []interface{}) {
	if l.LogLevel < min {
		return
	}
	l.from(ctx).WithLevel(lvl).Msgf(msg, data...)
}

func (l *GormZerologger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, logger.Info, zerolog.InfoLevel, msg, data)
}

func (l *GormZerologger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, logger.Warn, zerolog.WarnLevel, msg, data)
}

func (l *GormZerologger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.emit(ctx, logger.Error, zerolog.ErrorLevel, msg, data)
}

// classify retourne le niveau et le message d'une requête, ok=false si elle
// ne doit pas être tracée
func (l *GormZerologger) classify(elapsed time.Duration, err error) (zerolog.Level, string, bool) {
	if err != nil && l.LogLevel >= logger.Error {
		if !l.IgnoreRecordNotFoundError || !errors.Is(err, gorm.ErrRecordNotFound) {
			return zerolog.ErrorLevel, "database query error", true
		}
	}
	if l.SlowThreshold > 0 && elapsed > l.SlowThreshold && l.LogLevel >= logger.Warn {
		return zerolog.WarnLevel, "slow database query", true
	}
	if l.LogLevel >= logger.Info {
		return zerolog.DebugLevel, "database query", true
	}
	return zerolog.NoLevel, "", false
}

func (l *GormZerologger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	lvl, msg, ok := l.classify(elapsed, err)
	if !ok {
		return
	}

	sql, rows := fc()
	event := l.from(ctx).WithLevel(lvl).
		Dur("elapsed_ms", elapsed).
		Int64("rows", rows).
		Str("sql", sql)
	switch lvl {
	case zerolog.ErrorLevel:
		event = event.Err(err)
	case zerolog.WarnLevel:
		event = event.Dur("threshold", l.SlowThreshold)
	}
	event.Msg(msg)
}
