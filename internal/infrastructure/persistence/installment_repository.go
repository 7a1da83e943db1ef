package persistence

import (
	"context"
	"errors"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInstallmentRepository implements ledger.InstallmentRepository using GORM
type GormInstallmentRepository struct {
	db *gorm.DB
}

// NewGormInstallmentRepository creates a new GormInstallmentRepository
func NewGormInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

// CreateBatch inserts all installments of an entry in one statement
func (r *GormInstallmentRepository) CreateBatch(ctx context.Context, installments []ledger.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	rows := make([]*models.InstallmentModel, len(installments))
	for i := range installments {
		rows[i] = models.InstallmentModelFromDomain(&installments[i])
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return ledger.ErrRepository("create installments", err)
	}
	return nil
}

// FindByEntry lists installments ordered by sequence number
func (r *GormInstallmentRepository) FindByEntry(ctx context.Context, entryID uuid.UUID) ([]ledger.Installment, error) {
	var rows []models.InstallmentModel
	if err := r.db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("sequence_number ASC").
		Find(&rows).Error; err != nil {
		return nil, ledger.ErrRepository("list installments", err)
	}
	installments := make([]ledger.Installment, len(rows))
	for i := range rows {
		installments[i] = *rows[i].ToDomain()
	}
	return installments, nil
}

// FindByID finds an installment by ID
func (r *GormInstallmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Installment, error) {
	var row models.InstallmentModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrInstallmentNotFound(id)
		}
		return nil, ledger.ErrRepository("find installment", err)
	}
	return row.ToDomain(), nil
}

// Save updates the payment fields of an installment
func (r *GormInstallmentRepository) Save(ctx context.Context, installment *ledger.Installment) error {
	row := models.InstallmentModelFromDomain(installment)
	result := r.db.WithContext(ctx).
		Model(&models.InstallmentModel{}).
		Where("id = ?", installment.ID).
		Updates(map[string]interface{}{
			"payment_status": row.PaymentStatus,
			"paid_date":      row.PaidDate,
			"paid_amount":    row.PaidAmount,
			"updated_at":     row.UpdatedAt,
		})
	if result.Error != nil {
		return ledger.ErrRepository("save installment", result.Error)
	}
	if result.RowsAffected == 0 {
		return ledger.ErrInstallmentNotFound(installment.ID)
	}
	return nil
}

var _ ledger.InstallmentRepository = (*GormInstallmentRepository)(nil)
