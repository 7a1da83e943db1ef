package persistence

import (
	"context"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCatalog resolves category and supplier references against the catalog tables
type GormCatalog struct {
	db *gorm.DB
}

// NewGormCatalog creates a new GormCatalog
func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

// WithTx returns a catalog reading through tx
func (c *GormCatalog) WithTx(tx *gorm.DB) *GormCatalog {
	return &GormCatalog{db: tx}
}

// CategoryExists reports whether an active category with the ID exists
func (c *GormCatalog) CategoryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return c.exists(ctx, &models.CategoryModel{}, id, "categories")
}

// SupplierExists reports whether an active supplier with the ID exists
func (c *GormCatalog) SupplierExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return c.exists(ctx, &models.SupplierModel{}, id, "suppliers")
}

func (c *GormCatalog) exists(ctx context.Context, model any, id uuid.UUID, name string) (bool, error) {
	var count int64
	if err := c.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND active = ?", id, true).
		Count(&count).Error; err != nil {
		return false, ledger.ErrCollaborator(name, err)
	}
	return count > 0, nil
}

var (
	_ ledger.CategoryCatalog = (*GormCatalog)(nil)
	_ ledger.SupplierCatalog = (*GormCatalog)(nil)
)
