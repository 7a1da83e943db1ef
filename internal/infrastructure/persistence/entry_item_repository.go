package persistence

import (
	"context"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormEntryItemRepository implements ledger.EntryItemRepository using GORM
type GormEntryItemRepository struct {
	db *gorm.DB
}

// NewGormEntryItemRepository creates a new GormEntryItemRepository
func NewGormEntryItemRepository(db *gorm.DB) *GormEntryItemRepository {
	return &GormEntryItemRepository{db: db}
}

// ExistsForEntry reports whether an item was already materialized for the entry
func (r *GormEntryItemRepository) ExistsForEntry(ctx context.Context, entryID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.EntryItemModel{}).
		Where("entry_id = ?", entryID).
		Count(&count).Error; err != nil {
		return false, ledger.ErrRepository("check entry item", err)
	}
	return count > 0, nil
}

// CreateOnce inserts the item and relies on the unique entry_id index to
// drop a second insert for the same entry
func (r *GormEntryItemRepository) CreateOnce(ctx context.Context, item *ledger.EntryItem) (bool, error) {
	model := models.EntryItemModelFromDomain(item)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entry_id"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return false, ledger.ErrRepository("create entry item", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// FindByEntry lists the items of an entry
func (r *GormEntryItemRepository) FindByEntry(ctx context.Context, entryID uuid.UUID) ([]ledger.EntryItem, error) {
	var itemModels []models.EntryItemModel
	if err := r.db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("created_at").
		Find(&itemModels).Error; err != nil {
		return nil, ledger.ErrRepository("list entry items", err)
	}
	items := make([]ledger.EntryItem, len(itemModels))
	for i := range itemModels {
		items[i] = *itemModels[i].ToDomain()
	}
	return items, nil
}

var _ ledger.EntryItemRepository = (*GormEntryItemRepository)(nil)
