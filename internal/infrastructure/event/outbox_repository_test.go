package event

import (
	"context"
	"testing"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/clinic-ledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupOutboxDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.OutboxEntryModel{}))
	return db
}

func TestGormOutboxRepository_SaveAndFindPending(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOutboxRepository(setupOutboxDB(t))

	first := shared.NewOutboxEntry(newTestEvent(ledger.EventTypeEntryCreated), []byte(`{"n":1}`))
	second := shared.NewOutboxEntry(newTestEvent(ledger.EventTypeEntryValidated), []byte(`{"n":2}`))
	second.CreatedAt = first.CreatedAt.Add(time.Second)

	require.NoError(t, repo.Save(ctx))
	require.NoError(t, repo.Save(ctx, second, first))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID, "oldest first")
	assert.Equal(t, ledger.EventTypeEntryCreated, pending[0].EventType)
	assert.JSONEq(t, `{"n":1}`, string(pending[0].Payload))

	limited, err := repo.FindPending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGormOutboxRepository_MarkProcessing(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOutboxRepository(setupOutboxDB(t))

	entry := shared.NewOutboxEntry(newTestEvent(ledger.EventTypeEntryCreated), []byte(`{}`))
	require.NoError(t, repo.Save(ctx, entry))

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{entry.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)

	again, err := repo.MarkProcessing(ctx, []uuid.UUID{entry.ID})
	require.NoError(t, err)
	assert.Empty(t, again, "an entry already being processed is not claimed twice")

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	none, err := repo.MarkProcessing(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGormOutboxRepository_UpdateAndRetry(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOutboxRepository(setupOutboxDB(t))

	entry := shared.NewOutboxEntry(newTestEvent(ledger.EventTypeEntryCanceled), []byte(`{}`))
	require.NoError(t, repo.Save(ctx, entry))

	entry.MarkFailed("handler down")
	require.NoError(t, repo.Update(ctx, entry))

	notYet, err := repo.FindRetryable(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, notYet)

	due, err := repo.FindRetryable(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].RetryCount)
	assert.Equal(t, "handler down", due[0].LastError)
}

func TestGormOutboxRepository_DeleteOlderThanAndCount(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOutboxRepository(setupOutboxDB(t))

	sent := shared.NewOutboxEntry(newTestEvent(ledger.EventTypeEntryCreated), []byte(`{}`))
	pending := shared.NewOutboxEntry(newTestEvent(ledger.EventTypeEntryCreated), []byte(`{}`))
	require.NoError(t, repo.Save(ctx, sent, pending))

	sent.MarkSent()
	require.NoError(t, repo.Update(ctx, sent))

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusSent])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusPending])

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, pending.ID, remaining[0].ID)
}

func TestGormOutboxRepository_FindDeadAndByID(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOutboxRepository(setupOutboxDB(t))

	dead := shared.NewOutboxEntry(newTestEvent(ledger.EventTypeEntryCreated), []byte(`{}`))
	dead.MaxRetries = 1
	dead.MarkFailed("subscriber down")
	require.True(t, dead.IsDead())
	live := shared.NewOutboxEntry(newTestEvent(ledger.EventTypeEntryCreated), []byte(`{}`))
	require.NoError(t, repo.Save(ctx, dead, live))

	entries, total, err := repo.FindDead(ctx, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, dead.ID, entries[0].ID)
	assert.Equal(t, "subscriber down", entries[0].LastError)

	found, err := repo.FindByID(ctx, live.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, shared.OutboxStatusPending, found.Status)

	missing, err := repo.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
