package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func entryQuery() (string, int64) {
	return `SELECT * FROM "entries" WHERE id = '3f0c'`, 1
}

func TestGormLogger_LogMode(t *testing.T) {
	gormLog := NewGormLogger(zap.NewNop(), GormConfig{Level: gormlogger.Info, RedactParams: true})
	changed, ok := gormLog.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)

	assert.Equal(t, gormlogger.Info, gormLog.cfg.Level, "original is unchanged")
	assert.Equal(t, gormlogger.Warn, changed.cfg.Level)
	assert.True(t, changed.cfg.RedactParams)
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name     string
		cfg      GormConfig
		begin    time.Time
		err      error
		wantMsg  string
		wantNone bool
	}{
		{name: "error", cfg: GormConfig{Level: gormlogger.Error}, begin: time.Now(), err: errors.New("deadlock detected"), wantMsg: "SQL Error"},
		{name: "record not found ignored", cfg: GormConfig{Level: gormlogger.Error}, begin: time.Now(), err: gormlogger.ErrRecordNotFound, wantNone: true},
		{
			name:    "record not found reported",
			cfg:     GormConfig{Level: gormlogger.Error, ReportNotFound: true},
			begin:   time.Now(),
			err:     gormlogger.ErrRecordNotFound,
			wantMsg: "SQL Error",
		},
		{
			name:    "slow query",
			cfg:     GormConfig{Level: gormlogger.Warn, SlowThreshold: time.Millisecond},
			begin:   time.Now().Add(-time.Second),
			wantMsg: "SLOW SQL",
		},
		{name: "normal query", cfg: GormConfig{Level: gormlogger.Info}, begin: time.Now(), wantMsg: "SQL Query"},
		{name: "normal query below info", cfg: GormConfig{Level: gormlogger.Warn}, begin: time.Now(), wantNone: true},
		{name: "silent", cfg: GormConfig{Level: gormlogger.Silent}, begin: time.Now(), err: errors.New("ignored"), wantNone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			gormLog := NewGormLogger(zap.New(core), tt.cfg)

			gormLog.Trace(context.Background(), tt.begin, entryQuery, tt.err)

			if tt.wantNone {
				assert.Empty(t, recorded.All())
				return
			}
			logs := recorded.All()
			require.Len(t, logs, 1)
			assert.Contains(t, logs[0].Message, tt.wantMsg)
			assert.Equal(t, "gorm", logs[0].LoggerName)
		})
	}
}

func TestGormLogger_Trace_WithRequestID(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gormLog := NewGormLogger(zap.New(core), GormConfig{Level: gormlogger.Info})

	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-42")
	gormLog.Trace(ctx, time.Now(), entryQuery, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "req-42", logs[0].ContextMap()["request_id"])
	assert.Equal(t, int64(1), logs[0].ContextMap()["rows"])
}

func TestGormLogger_Messages(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gormLog := NewGormLogger(zap.New(core), GormConfig{Level: gormlogger.Warn})

	gormLog.Info(context.Background(), "migrated %d tables", 6)
	gormLog.Warn(context.Background(), "slow %s", "index")
	gormLog.Error(context.Background(), "failed %s", "ping")

	logs := recorded.All()
	require.Len(t, logs, 2, "info is below the configured level")
	assert.Equal(t, "slow index", logs[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, logs[1].Level)
}

func TestGormLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Warn},
		{"debug", gormlogger.Info},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, GormLevel(tt.level))
		})
	}
}

var _ gormlogger.Interface = (*GormLogger)(nil)

func TestGormLogger_ParamsFilter(t *testing.T) {
	sql := `UPDATE "entries" SET amount_total = $1 WHERE id = $2`

	full := NewGormLogger(zap.NewNop(), GormConfig{Level: gormlogger.Info})
	_, params := full.ParamsFilter(context.Background(), sql, "1000.00", "3f0c")
	assert.Equal(t, []any{"1000.00", "3f0c"}, params)

	redacted := NewGormLogger(zap.NewNop(), GormConfig{Level: gormlogger.Info, RedactParams: true})
	gotSQL, params := redacted.ParamsFilter(context.Background(), sql, "1000.00", "3f0c")
	assert.Equal(t, sql, gotSQL)
	assert.Nil(t, params)
}
