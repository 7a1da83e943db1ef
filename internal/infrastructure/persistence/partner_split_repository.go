package persistence

import (
	"context"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPartnerSplitRepository implements ledger.PartnerSplitRepository using GORM
type GormPartnerSplitRepository struct {
	db *gorm.DB
}

// NewGormPartnerSplitRepository creates a new GormPartnerSplitRepository
func NewGormPartnerSplitRepository(db *gorm.DB) *GormPartnerSplitRepository {
	return &GormPartnerSplitRepository{db: db}
}

// CreateBatch inserts all splits of an entry
func (r *GormPartnerSplitRepository) CreateBatch(ctx context.Context, splits []ledger.PartnerSplit) error {
	if len(splits) == 0 {
		return nil
	}
	rows := make([]*models.PartnerSplitModel, len(splits))
	for i := range splits {
		rows[i] = models.PartnerSplitModelFromDomain(&splits[i])
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return ledger.ErrRepository("create partner splits", err)
	}
	return nil
}

// FindByEntry lists the splits of an entry
func (r *GormPartnerSplitRepository) FindByEntry(ctx context.Context, entryID uuid.UUID) ([]ledger.PartnerSplit, error) {
	var rows []models.PartnerSplitModel
	if err := r.db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("created_at").
		Find(&rows).Error; err != nil {
		return nil, ledger.ErrRepository("list partner splits", err)
	}
	splits := make([]ledger.PartnerSplit, len(rows))
	for i := range rows {
		splits[i] = *rows[i].ToDomain()
	}
	return splits, nil
}

// GormPartnerSplitConfigProvider reads partner split configs from the database.
// Every call returns a fresh snapshot; nothing is cached between approvals.
type GormPartnerSplitConfigProvider struct {
	db *gorm.DB
}

// NewGormPartnerSplitConfigProvider creates a new GormPartnerSplitConfigProvider
func NewGormPartnerSplitConfigProvider(db *gorm.DB) *GormPartnerSplitConfigProvider {
	return &GormPartnerSplitConfigProvider{db: db}
}

// WithTx returns a provider reading through tx
func (p *GormPartnerSplitConfigProvider) WithTx(tx *gorm.DB) *GormPartnerSplitConfigProvider {
	return &GormPartnerSplitConfigProvider{db: tx}
}

// Snapshot returns the configs whose active range contains asOf
func (p *GormPartnerSplitConfigProvider) Snapshot(ctx context.Context, asOf time.Time) ([]ledger.PartnerSplitConfig, error) {
	day := ledger.DateOf(asOf)
	var rows []models.PartnerSplitConfigModel
	if err := p.db.WithContext(ctx).
		Where("active_start <= ?", day).
		Where("active_end IS NULL OR active_end >= ?", day).
		Order("partner_id").
		Find(&rows).Error; err != nil {
		return nil, ledger.ErrCollaborator("partner split configs", err)
	}
	configs := make([]ledger.PartnerSplitConfig, len(rows))
	for i := range rows {
		configs[i] = rows[i].ToDomain()
	}
	return configs, nil
}

// Create stores a new config after validating it
func (p *GormPartnerSplitConfigProvider) Create(ctx context.Context, cfg ledger.PartnerSplitConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	cfg.ActiveStart = ledger.DateOf(cfg.ActiveStart)
	if err := p.db.WithContext(ctx).Create(models.PartnerSplitConfigModelFromDomain(cfg)).Error; err != nil {
		return ledger.ErrRepository("create partner split config", err)
	}
	return nil
}

var (
	_ ledger.PartnerSplitRepository     = (*GormPartnerSplitRepository)(nil)
	_ ledger.PartnerSplitConfigProvider = (*GormPartnerSplitConfigProvider)(nil)
)
