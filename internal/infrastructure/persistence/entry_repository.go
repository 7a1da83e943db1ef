package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/clinic-ledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormEntryRepository implements ledger.EntryRepository using GORM
type GormEntryRepository struct {
	db *gorm.DB
}

// NewGormEntryRepository creates a new GormEntryRepository
func NewGormEntryRepository(db *gorm.DB) *GormEntryRepository {
	return &GormEntryRepository{db: db}
}

// FindByID finds an entry by its ID
func (r *GormEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	var model models.EntryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrEntryNotFound(id)
		}
		return nil, ledger.ErrRepository("find entry", err)
	}
	return model.ToDomain(), nil
}

// FindAll finds entries matching the filter, returning the page and the total count
func (r *GormEntryRepository) FindAll(ctx context.Context, filter ledger.EntryFilter) ([]ledger.Entry, int64, error) {
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.EntryModel{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, ledger.ErrRepository("count entries", err)
	}

	query = query.Order(entrySort.OrderBy(filter.OrderBy, filter.OrderDir)).Order("id")
	if filter.Paged() {
		query = query.Limit(filter.PageSize).Offset(filter.Offset())
	}

	var entryModels []models.EntryModel
	if err := query.Find(&entryModels).Error; err != nil {
		return nil, 0, ledger.ErrRepository("list entries", err)
	}
	return toDomainEntries(entryModels), total, nil
}

func (r *GormEntryRepository) applyFilterWithoutPagination(query *gorm.DB, filter ledger.EntryFilter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("LOWER(description) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.Origin != nil {
		query = query.Where("origin = ?", *filter.Origin)
	}
	if filter.RecurringDefinitionID != nil {
		query = query.Where("recurring_definition_id = ?", *filter.RecurringDefinitionID)
	}
	if filter.IssueFrom != nil {
		query = query.Where("issue_date >= ?", ledger.DateOf(*filter.IssueFrom))
	}
	if filter.IssueTo != nil {
		query = query.Where("issue_date <= ?", ledger.DateOf(*filter.IssueTo))
	}
	return query
}

// FindByRecurringDefinition lists the entries materialized from a definition, newest first
func (r *GormEntryRepository) FindByRecurringDefinition(ctx context.Context, definitionID uuid.UUID) ([]ledger.Entry, error) {
	var entryModels []models.EntryModel
	if err := r.db.WithContext(ctx).
		Where("recurring_definition_id = ?", definitionID).
		Order("issue_date DESC").
		Find(&entryModels).Error; err != nil {
		return nil, ledger.ErrRepository("list definition history", err)
	}
	return toDomainEntries(entryModels), nil
}

// Create inserts a new entry
func (r *GormEntryRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	model := models.EntryModelFromDomain(entry)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return ledger.ErrRepository("create entry", err)
	}
	return nil
}

// SaveWithLock updates the entry only if the stored version still matches,
// then bumps the in-memory version
func (r *GormEntryRepository) SaveWithLock(ctx context.Context, entry *ledger.Entry) error {
	result := r.db.WithContext(ctx).
		Model(&models.EntryModel{}).
		Where("id = ? AND version = ?", entry.ID, entry.Version).
		Updates(map[string]interface{}{
			"description":        entry.Description,
			"accrual_date":       entry.AccrualDate,
			"due_date":           entry.DueDate,
			"installment_count":  entry.InstallmentCount,
			"already_paid":       entry.AlreadyPaid,
			"status":             entry.Status,
			"supplier_id":        entry.SupplierID,
			"category_id":        entry.CategoryID,
			"attachment_ref":     entry.AttachmentRef,
			"product_ref":        entry.ProductRef,
			"validated_by":       entry.ValidatedBy,
			"validated_at":       entry.ValidatedAt,
			"canceled_by":        entry.CanceledBy,
			"canceled_at":        entry.CanceledAt,
			"version":            entry.Version + 1,
			"updated_at":         entry.UpdatedAt,
		})

	if result.Error != nil {
		return ledger.ErrRepository("save entry", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewConflictError(shared.ErrConcurrencyConflict.Code,
			fmt.Sprintf("entry %s was modified by another transaction", entry.ID))
	}
	entry.IncrementVersion()
	return nil
}

func toDomainEntries(entryModels []models.EntryModel) []ledger.Entry {
	entries := make([]ledger.Entry, len(entryModels))
	for i := range entryModels {
		entries[i] = *entryModels[i].ToDomain()
	}
	return entries
}

// Ensure GormEntryRepository implements ledger.EntryRepository
var _ ledger.EntryRepository = (*GormEntryRepository)(nil)
