package models

import (
	"time"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryModel is the persistence model for the Entry aggregate root.
type EntryModel struct {
	AggregateModel
	Kind                  ledger.EntryKind   `gorm:"type:varchar(20);not null;index"`
	Description           string             `gorm:"type:varchar(500);not null"`
	IssueDate             time.Time          `gorm:"type:date;not null;index"`
	AccrualDate           time.Time          `gorm:"type:date;not null"`
	DueDate               *time.Time         `gorm:"type:date"`
	AmountTotal           decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	InstallmentCount      int                `gorm:"not null;default:1"`
	PartnerSplitEnabled   bool               `gorm:"not null;default:false"`
	AlreadyPaid           bool               `gorm:"not null;default:false"`
	Status                ledger.EntryStatus `gorm:"type:varchar(20);not null;default:'pre_entry';index"`
	Origin                ledger.EntryOrigin `gorm:"type:varchar(20);not null;default:'manual'"`
	SupplierID            *uuid.UUID         `gorm:"type:uuid;index"`
	CategoryID            *uuid.UUID         `gorm:"type:uuid;index"`
	RecurringDefinitionID *uuid.UUID         `gorm:"type:uuid;index"`
	AttachmentRef         string             `gorm:"type:varchar(1024)"`
	ProductRef            string             `gorm:"type:varchar(100)"`
	ValidatedBy           *uuid.UUID         `gorm:"type:uuid"`
	ValidatedAt           *time.Time
	CanceledBy            *uuid.UUID `gorm:"type:uuid"`
	CanceledAt            *time.Time
}

// TableName returns the table name for GORM
func (EntryModel) TableName() string {
	return "entries"
}

// ToDomain converts the persistence model to a domain Entry
func (m *EntryModel) ToDomain() *ledger.Entry {
	return &ledger.Entry{
		BaseAggregateRoot:     m.Root(),
		Kind:                  m.Kind,
		Description:           m.Description,
		IssueDate:             m.IssueDate,
		AccrualDate:           m.AccrualDate,
		DueDate:               m.DueDate,
		AmountTotal:           valueobject.NewMoney(m.AmountTotal),
		InstallmentCount:      m.InstallmentCount,
		PartnerSplitEnabled:   m.PartnerSplitEnabled,
		AlreadyPaid:           m.AlreadyPaid,
		Status:                m.Status,
		Origin:                m.Origin,
		SupplierID:            m.SupplierID,
		CategoryID:            m.CategoryID,
		RecurringDefinitionID: m.RecurringDefinitionID,
		AttachmentRef:         m.AttachmentRef,
		ProductRef:            m.ProductRef,
		ValidatedBy:           m.ValidatedBy,
		ValidatedAt:           m.ValidatedAt,
		CanceledBy:            m.CanceledBy,
		CanceledAt:            m.CanceledAt,
	}
}

// FromDomain populates the persistence model from a domain Entry
func (m *EntryModel) FromDomain(e *ledger.Entry) {
	m.SetRoot(e.BaseAggregateRoot)
	m.Kind = e.Kind
	m.Description = e.Description
	m.IssueDate = e.IssueDate
	m.AccrualDate = e.AccrualDate
	m.DueDate = e.DueDate
	m.AmountTotal = e.AmountTotal.Amount()
	m.InstallmentCount = e.InstallmentCount
	m.PartnerSplitEnabled = e.PartnerSplitEnabled
	m.AlreadyPaid = e.AlreadyPaid
	m.Status = e.Status
	m.Origin = e.Origin
	m.SupplierID = e.SupplierID
	m.CategoryID = e.CategoryID
	m.RecurringDefinitionID = e.RecurringDefinitionID
	m.AttachmentRef = e.AttachmentRef
	m.ProductRef = e.ProductRef
	m.ValidatedBy = e.ValidatedBy
	m.ValidatedAt = e.ValidatedAt
	m.CanceledBy = e.CanceledBy
	m.CanceledAt = e.CanceledAt
}

// EntryModelFromDomain creates a new persistence model from a domain Entry
func EntryModelFromDomain(e *ledger.Entry) *EntryModel {
	m := &EntryModel{}
	m.FromDomain(e)
	return m
}

// EntryItemModel is the persistence model for a materialized entry item.
// The unique index on entry_id keeps approval retries from duplicating items.
type EntryItemModel struct {
	BaseModel
	EntryID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_entry_items_entry"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CategoryID  *uuid.UUID      `gorm:"type:uuid"`
	ProductRef  string          `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (EntryItemModel) TableName() string {
	return "entry_items"
}

// ToDomain converts the persistence model to a domain EntryItem
func (m *EntryItemModel) ToDomain() *ledger.EntryItem {
	return &ledger.EntryItem{
		BaseEntity:  m.Entity(),
		EntryID:     m.EntryID,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   valueobject.NewMoney(m.UnitPrice),
		LineTotal:   valueobject.NewMoney(m.LineTotal),
		CategoryID:  m.CategoryID,
		ProductRef:  m.ProductRef,
	}
}

// EntryItemModelFromDomain creates a new persistence model from a domain EntryItem
func EntryItemModelFromDomain(i *ledger.EntryItem) *EntryItemModel {
	m := &EntryItemModel{
		EntryID:     i.EntryID,
		Description: i.Description,
		Quantity:    i.Quantity,
		UnitPrice:   i.UnitPrice.Amount(),
		LineTotal:   i.LineTotal.Amount(),
		CategoryID:  i.CategoryID,
		ProductRef:  i.ProductRef,
	}
	m.SetEntity(i.BaseEntity)
	return m
}

// InstallmentModel is the persistence model for an installment
type InstallmentModel struct {
	BaseModel
	EntryID           uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_installments_entry_seq,priority:1"`
	SequenceNumber    int                  `gorm:"not null;uniqueIndex:idx_installments_entry_seq,priority:2"`
	TotalInstallments int                  `gorm:"not null"`
	Amount            decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	DueDate           time.Time            `gorm:"type:date;not null;index"`
	PaymentStatus     ledger.PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	PaidDate          *time.Time           `gorm:"type:date"`
	PaidAmount        *decimal.Decimal     `gorm:"type:decimal(18,2)"`
}

// TableName returns the table name for GORM
func (InstallmentModel) TableName() string {
	return "installments"
}

// ToDomain converts the persistence model to a domain Installment
func (m *InstallmentModel) ToDomain() *ledger.Installment {
	inst := &ledger.Installment{
		BaseEntity:        m.Entity(),
		EntryID:           m.EntryID,
		SequenceNumber:    m.SequenceNumber,
		TotalInstallments: m.TotalInstallments,
		Amount:            valueobject.NewMoney(m.Amount),
		DueDate:           m.DueDate,
		PaymentStatus:     m.PaymentStatus,
		PaidDate:          m.PaidDate,
	}
	if m.PaidAmount != nil {
		paid := valueobject.NewMoney(*m.PaidAmount)
		inst.PaidAmount = &paid
	}
	return inst
}

// InstallmentModelFromDomain creates a new persistence model from a domain Installment
func InstallmentModelFromDomain(i *ledger.Installment) *InstallmentModel {
	m := &InstallmentModel{
		EntryID:           i.EntryID,
		SequenceNumber:    i.SequenceNumber,
		TotalInstallments: i.TotalInstallments,
		Amount:            i.Amount.Amount(),
		DueDate:           i.DueDate,
		PaymentStatus:     i.PaymentStatus,
		PaidDate:          i.PaidDate,
	}
	if i.PaidAmount != nil {
		paid := i.PaidAmount.Amount()
		m.PaidAmount = &paid
	}
	m.SetEntity(i.BaseEntity)
	return m
}

// PartnerSplitModel is the persistence model for a partner split
type PartnerSplitModel struct {
	BaseModel
	EntryID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_partner_splits_entry_partner,priority:1"`
	PartnerID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_partner_splits_entry_partner,priority:2"`
	Percentage decimal.Decimal `gorm:"type:decimal(7,4);not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (PartnerSplitModel) TableName() string {
	return "partner_splits"
}

// ToDomain converts the persistence model to a domain PartnerSplit
func (m *PartnerSplitModel) ToDomain() *ledger.PartnerSplit {
	return &ledger.PartnerSplit{
		BaseEntity: m.Entity(),
		EntryID:    m.EntryID,
		PartnerID:  m.PartnerID,
		Percentage: m.Percentage,
		Amount:     valueobject.NewMoney(m.Amount),
	}
}

// PartnerSplitModelFromDomain creates a new persistence model from a domain PartnerSplit
func PartnerSplitModelFromDomain(s *ledger.PartnerSplit) *PartnerSplitModel {
	m := &PartnerSplitModel{
		EntryID:    s.EntryID,
		PartnerID:  s.PartnerID,
		Percentage: s.Percentage,
		Amount:     s.Amount.Amount(),
	}
	m.SetEntity(s.BaseEntity)
	return m
}

// PartnerSplitConfigModel stores the percentage each partner receives while active
type PartnerSplitConfigModel struct {
	BaseModel
	PartnerID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Percentage  decimal.Decimal `gorm:"type:decimal(7,4);not null"`
	ActiveStart time.Time       `gorm:"type:date;not null"`
	ActiveEnd   *time.Time      `gorm:"type:date"`
}

// TableName returns the table name for GORM
func (PartnerSplitConfigModel) TableName() string {
	return "partner_split_configs"
}

// ToDomain converts the persistence model to a domain PartnerSplitConfig
func (m *PartnerSplitConfigModel) ToDomain() ledger.PartnerSplitConfig {
	return ledger.PartnerSplitConfig{
		ID:          m.ID,
		PartnerID:   m.PartnerID,
		Percentage:  m.Percentage,
		ActiveStart: m.ActiveStart,
		ActiveEnd:   m.ActiveEnd,
	}
}

// PartnerSplitConfigModelFromDomain creates a new persistence model from a domain PartnerSplitConfig
func PartnerSplitConfigModelFromDomain(c ledger.PartnerSplitConfig) *PartnerSplitConfigModel {
	now := time.Now()
	return &PartnerSplitConfigModel{
		BaseModel:   BaseModel{ID: c.ID, CreatedAt: now, UpdatedAt: now},
		PartnerID:   c.PartnerID,
		Percentage:  c.Percentage,
		ActiveStart: c.ActiveStart,
		ActiveEnd:   c.ActiveEnd,
	}
}

// RecurringDefinitionModel is the persistence model for the RecurringDefinition aggregate root
type RecurringDefinitionModel struct {
	AggregateModel
	Kind                ledger.EntryKind `gorm:"type:varchar(20);not null"`
	Description         string           `gorm:"type:varchar(500);not null"`
	Amount              decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	Frequency           ledger.Frequency `gorm:"type:varchar(20);not null"`
	DueDayOfMonth       int              `gorm:"not null"`
	AdjustForWeekend    bool             `gorm:"not null;default:false"`
	StartDate           time.Time        `gorm:"type:date;not null"`
	EndDate             *time.Time       `gorm:"type:date"`
	Active              bool             `gorm:"not null;default:true;index:idx_recurring_due,priority:1"`
	NextOccurrenceDate  time.Time        `gorm:"type:date;not null;index:idx_recurring_due,priority:2"`
	CategoryID          *uuid.UUID       `gorm:"type:uuid"`
	SupplierID          *uuid.UUID       `gorm:"type:uuid"`
	InstallmentCount    int              `gorm:"not null;default:1"`
	AutoValidate        bool             `gorm:"not null;default:false"`
	PartnerSplitEnabled bool             `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (RecurringDefinitionModel) TableName() string {
	return "recurring_definitions"
}

// ToDomain converts the persistence model to a domain RecurringDefinition
func (m *RecurringDefinitionModel) ToDomain() *ledger.RecurringDefinition {
	return &ledger.RecurringDefinition{
		BaseAggregateRoot:   m.Root(),
		Kind:                m.Kind,
		Description:         m.Description,
		Amount:              valueobject.NewMoney(m.Amount),
		Frequency:           m.Frequency,
		DueDayOfMonth:       m.DueDayOfMonth,
		AdjustForWeekend:    m.AdjustForWeekend,
		StartDate:           m.StartDate,
		EndDate:             m.EndDate,
		Active:              m.Active,
		NextOccurrenceDate:  m.NextOccurrenceDate,
		CategoryID:          m.CategoryID,
		SupplierID:          m.SupplierID,
		InstallmentCount:    m.InstallmentCount,
		AutoValidate:        m.AutoValidate,
		PartnerSplitEnabled: m.PartnerSplitEnabled,
	}
}

// FromDomain populates the persistence model from a domain RecurringDefinition
func (m *RecurringDefinitionModel) FromDomain(d *ledger.RecurringDefinition) {
	m.SetRoot(d.BaseAggregateRoot)
	m.Kind = d.Kind
	m.Description = d.Description
	m.Amount = d.Amount.Amount()
	m.Frequency = d.Frequency
	m.DueDayOfMonth = d.DueDayOfMonth
	m.AdjustForWeekend = d.AdjustForWeekend
	m.StartDate = d.StartDate
	m.EndDate = d.EndDate
	m.Active = d.Active
	m.NextOccurrenceDate = d.NextOccurrenceDate
	m.CategoryID = d.CategoryID
	m.SupplierID = d.SupplierID
	m.InstallmentCount = d.InstallmentCount
	m.AutoValidate = d.AutoValidate
	m.PartnerSplitEnabled = d.PartnerSplitEnabled
}

// RecurringDefinitionModelFromDomain creates a new persistence model from a domain RecurringDefinition
func RecurringDefinitionModelFromDomain(d *ledger.RecurringDefinition) *RecurringDefinitionModel {
	m := &RecurringDefinitionModel{}
	m.FromDomain(d)
	return m
}
