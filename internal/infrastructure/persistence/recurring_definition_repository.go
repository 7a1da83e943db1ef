package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/clinic-ledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRecurringDefinitionRepository implements ledger.RecurringDefinitionRepository using GORM
type GormRecurringDefinitionRepository struct {
	db *gorm.DB
}

// NewGormRecurringDefinitionRepository creates a new GormRecurringDefinitionRepository
func NewGormRecurringDefinitionRepository(db *gorm.DB) *GormRecurringDefinitionRepository {
	return &GormRecurringDefinitionRepository{db: db}
}

// FindByID finds a definition by ID
func (r *GormRecurringDefinitionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.RecurringDefinition, error) {
	var model models.RecurringDefinitionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrRecurringDefinitionNotFound(id)
		}
		return nil, ledger.ErrRepository("find recurring definition", err)
	}
	return model.ToDomain(), nil
}

// FindDue lists active definitions whose next occurrence is on or before asOf,
// oldest occurrence first
func (r *GormRecurringDefinitionRepository) FindDue(ctx context.Context, asOf time.Time, limit int) ([]ledger.RecurringDefinition, error) {
	query := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("next_occurrence_date <= ?", ledger.DateOf(asOf)).
		Where("end_date IS NULL OR next_occurrence_date <= end_date").
		Order("next_occurrence_date ASC").
		Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.RecurringDefinitionModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, ledger.ErrRepository("find due recurring definitions", err)
	}
	return toDomainDefinitions(rows), nil
}

// FindAll lists definitions matching the filter
func (r *GormRecurringDefinitionRepository) FindAll(ctx context.Context, filter ledger.RecurringDefinitionFilter) ([]ledger.RecurringDefinition, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.RecurringDefinitionModel{})
	if filter.Search != "" {
		query = query.Where("LOWER(description) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, ledger.ErrRepository("count recurring definitions", err)
	}

	query = query.Order(definitionSort.OrderBy(filter.OrderBy, filter.OrderDir)).Order("id")
	if filter.Paged() {
		query = query.Limit(filter.PageSize).Offset(filter.Offset())
	}

	var rows []models.RecurringDefinitionModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, ledger.ErrRepository("list recurring definitions", err)
	}
	return toDomainDefinitions(rows), total, nil
}

// Create inserts a new definition
func (r *GormRecurringDefinitionRepository) Create(ctx context.Context, def *ledger.RecurringDefinition) error {
	if err := r.db.WithContext(ctx).Create(models.RecurringDefinitionModelFromDomain(def)).Error; err != nil {
		return ledger.ErrRepository("create recurring definition", err)
	}
	return nil
}

// SaveWithLock persists the mutable fields of a definition if its version
// still matches. Two tick runners racing on the same definition cannot both
// advance it.
func (r *GormRecurringDefinitionRepository) SaveWithLock(ctx context.Context, def *ledger.RecurringDefinition) error {
	result := r.db.WithContext(ctx).
		Model(&models.RecurringDefinitionModel{}).
		Where("id = ? AND version = ?", def.ID, def.Version).
		Updates(map[string]interface{}{
			"active":               def.Active,
			"next_occurrence_date": def.NextOccurrenceDate,
			"version":              def.Version + 1,
			"updated_at":           def.UpdatedAt,
		})

	if result.Error != nil {
		return ledger.ErrRepository("save recurring definition", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewConflictError(shared.ErrConcurrencyConflict.Code,
			fmt.Sprintf("recurring definition %s was modified by another transaction", def.ID))
	}
	def.IncrementVersion()
	return nil
}

func toDomainDefinitions(rows []models.RecurringDefinitionModel) []ledger.RecurringDefinition {
	defs := make([]ledger.RecurringDefinition, len(rows))
	for i := range rows {
		defs[i] = *rows[i].ToDomain()
	}
	return defs
}

var _ ledger.RecurringDefinitionRepository = (*GormRecurringDefinitionRepository)(nil)
