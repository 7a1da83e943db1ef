package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormConfig controls what the GORM logger writes
type GormConfig struct {
	Level gormlogger.LogLevel
	// SlowThreshold marks slower statements as warnings; zero disables it
	SlowThreshold time.Duration
	// ReportNotFound logs lookups that find nothing as SQL errors
	ReportNotFound bool
	// RedactParams logs statements with placeholders instead of bound
	// values, keeping amounts and descriptions out of the logs
	RedactParams bool
}

// GormLogger writes GORM output through the "gorm" zap logger, tagged with
// the trace and request IDs of the calling context
type GormLogger struct {
	zl  *zap.Logger
	cfg GormConfig
}

func NewGormLogger(base *zap.Logger, cfg GormConfig) *GormLogger {
	return &GormLogger{zl: base.Named("gorm"), cfg: cfg}
}

// GormLevel picks the GORM level for an application log level. Statements
// are only traced at debug.
func GormLevel(appLevel string) gormlogger.LogLevel {
	switch appLevel {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "debug":
		return gormlogger.Info
	}
	return gormlogger.Warn
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.cfg.Level = level
	return &next
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, min gormlogger.LogLevel, level zapcore.Level, format string, args []any) {
	if l.cfg.Level < min {
		return
	}
	if ce := WithTraceContext(ctx, l.zl).Check(level, fmt.Sprintf(format, args...)); ce != nil {
		ce.Write()
	}
}

// ParamsFilter lets GORM render statements without their bound values
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, params ...any) (string, []any) {
	if l.cfg.RedactParams {
		return sql, nil
	}
	return sql, params
}

// Trace logs one executed statement: failures as errors, slow statements as
// warnings, and everything else at debug when the level is Info
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	level, msg, ok := l.classify(time.Since(begin), err)
	if !ok {
		return
	}
	ce := WithTraceContext(ctx, l.zl).Check(level, msg)
	if ce == nil {
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", time.Since(begin)),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	ce.Write(fields...)
}

func (l *GormLogger) classify(elapsed time.Duration, err error) (zapcore.Level, string, bool) {
	lvl := l.cfg.Level
	switch {
	case lvl <= gormlogger.Silent:
		return 0, "", false
	case err != nil && lvl >= gormlogger.Error:
		if errors.Is(err, gormlogger.ErrRecordNotFound) && !l.cfg.ReportNotFound {
			return 0, "", false
		}
		return zapcore.ErrorLevel, "SQL Error", true
	case l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold && lvl >= gormlogger.Warn:
		return zapcore.WarnLevel, "SLOW SQL >= " + l.cfg.SlowThreshold.String(), true
	case lvl >= gormlogger.Info:
		return zapcore.DebugLevel, "SQL Query", true
	}
	return 0, "", false
}
