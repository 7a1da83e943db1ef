package models

import (
	"time"

	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel carries the identity and timestamp columns of every ledger table.
// Its fields line up with shared.BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

func (m BaseModel) Entity() shared.BaseEntity { return shared.BaseEntity(m) }

func (m *BaseModel) SetEntity(e shared.BaseEntity) { *m = BaseModel(e) }

// AggregateModel adds the optimistic lock version and creator of an aggregate root
type AggregateModel struct {
	BaseModel
	Version   int        `gorm:"not null;default:1"`
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
}

// Root rebuilds the aggregate root state. Pending domain events are never persisted.
func (m AggregateModel) Root() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: m.Entity(),
		Version:    m.Version,
		CreatedBy:  m.CreatedBy,
	}
}

func (m *AggregateModel) SetRoot(a shared.BaseAggregateRoot) {
	m.SetEntity(a.BaseEntity)
	m.Version = a.Version
	m.CreatedBy = a.CreatedBy
}
