// Package event exposes operator actions on the ledger event outbox:
// delivery statistics and dead letter inspection and replay.
package event

import (
	"context"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeadLetterRepository is the slice of outbox persistence the service needs
type DeadLetterRepository interface {
	FindDead(ctx context.Context, offset, limit int) ([]*shared.OutboxEntry, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error)
	Update(ctx context.Context, entry *shared.OutboxEntry) error
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100

	codeOutboxUnavailable = "OUTBOX_UNAVAILABLE"
)

// OutboxService backs the ledgerctl outbox commands
type OutboxService struct {
	repo   DeadLetterRepository
	logger *zap.Logger
}

func NewOutboxService(repo DeadLetterRepository, logger *zap.Logger) *OutboxService {
	return &OutboxService{repo: repo, logger: logger}
}

// EntryView is what an operator sees of one outbox row
type EntryView struct {
	ID            uuid.UUID           `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	EventType     string              `json:"event_type"`
	AggregateType string              `json:"aggregate_type"`
	AggregateID   uuid.UUID           `json:"aggregate_id"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	MaxAttempts   int                 `json:"max_attempts"`
	LastError     string              `json:"last_error,omitempty"`
	NextRetryAt   *time.Time          `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time          `json:"processed_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func viewOf(e *shared.OutboxEntry) EntryView {
	return EntryView{
		ID:            e.ID,
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		Status:        e.Status,
		Attempts:      e.RetryCount,
		MaxAttempts:   e.MaxRetries,
		LastError:     e.LastError,
		NextRetryAt:   e.NextRetryAt,
		ProcessedAt:   e.ProcessedAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// DeadLetterPage is one page of dead letters, most recently failed first
type DeadLetterPage struct {
	Entries    []EntryView `json:"entries"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
}

// StatusCounts is the number of outbox rows in each delivery state
type StatusCounts struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// Stats counts outbox rows per delivery state
func (s *OutboxService) Stats(ctx context.Context) (StatusCounts, error) {
	byStatus, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return StatusCounts{}, s.unavailable("count outbox entries", err)
	}

	counts := StatusCounts{
		Pending:    byStatus[shared.OutboxStatusPending],
		Processing: byStatus[shared.OutboxStatusProcessing],
		Sent:       byStatus[shared.OutboxStatusSent],
		Failed:     byStatus[shared.OutboxStatusFailed],
		Dead:       byStatus[shared.OutboxStatusDead],
	}
	for _, n := range byStatus {
		counts.Total += n
	}
	return counts, nil
}

// ListDead pages through entries that exhausted their retries. Page numbers
// start at 1; the page size is clamped to maxPageSize.
func (s *OutboxService) ListDead(ctx context.Context, page, pageSize int) (DeadLetterPage, error) {
	page = max(page, 1)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	pageSize = min(pageSize, maxPageSize)

	entries, total, err := s.repo.FindDead(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return DeadLetterPage{}, s.unavailable("list dead letters", err)
	}

	out := DeadLetterPage{
		Entries:    make([]EntryView, 0, len(entries)),
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, viewOf(e))
	}
	return out, nil
}

// Show returns one outbox entry whatever its state
func (s *OutboxService) Show(ctx context.Context, id uuid.UUID) (EntryView, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return EntryView{}, err
	}
	return viewOf(entry), nil
}

// Replay moves one dead letter back to pending with a fresh retry budget.
// Entries in any other state are a conflict.
func (s *OutboxService) Replay(ctx context.Context, id uuid.UUID) (EntryView, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return EntryView{}, err
	}
	if err := entry.ResetForRetry(); err != nil {
		return EntryView{}, shared.NewConflictError("OUTBOX_NOT_DEAD", err.Error())
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		return EntryView{}, s.unavailable("requeue dead letter", err)
	}

	s.logger.Info("Dead letter requeued",
		zap.String("outbox_id", id.String()),
		zap.String("event_type", entry.EventType),
	)
	return viewOf(entry), nil
}

// ReplayAll requeues every dead letter and reports how many moved. Entries
// that fail to save are logged and left dead.
func (s *OutboxService) ReplayAll(ctx context.Context) (int64, error) {
	var requeued int64
	for {
		// Requeued rows drop out of the dead set, so offset 0 always holds
		// the next batch.
		batch, _, err := s.repo.FindDead(ctx, 0, maxPageSize)
		if err != nil {
			return requeued, s.unavailable("list dead letters", err)
		}

		moved := s.requeue(ctx, batch)
		requeued += int64(moved)
		if moved == 0 || len(batch) < maxPageSize {
			break
		}
	}

	s.logger.Info("Dead letters requeued", zap.Int64("count", requeued))
	return requeued, nil
}

func (s *OutboxService) requeue(ctx context.Context, batch []*shared.OutboxEntry) int {
	moved := 0
	for _, entry := range batch {
		if entry.ResetForRetry() != nil {
			continue
		}
		if err := s.repo.Update(ctx, entry); err != nil {
			s.logger.Warn("Dead letter not requeued",
				zap.String("outbox_id", entry.ID.String()), zap.Error(err))
			continue
		}
		moved++
	}
	return moved
}

func (s *OutboxService) load(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.unavailable("load outbox entry", err)
	}
	if entry == nil {
		return nil, shared.NewNotFoundError("OUTBOX_ENTRY_NOT_FOUND", "outbox entry not found")
	}
	return entry, nil
}

func (s *OutboxService) unavailable(action string, err error) error {
	s.logger.Error("Outbox store failed", zap.String("action", action), zap.Error(err))
	return shared.NewDependencyError(codeOutboxUnavailable, "failed to "+action, err)
}
