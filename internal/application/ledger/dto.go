package ledger

import (
	"time"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ===================== Requests =====================

// CreateEntryRequest represents a request to register a pre-entry
type CreateEntryRequest struct {
	Kind                string          `json:"kind" binding:"required,oneof=expense revenue"`
	Description         string          `json:"description" binding:"required,max=500"`
	Amount              decimal.Decimal `json:"amount" binding:"decimal_gte0"`
	IssueDate           time.Time       `json:"issue_date" binding:"required"`
	AccrualDate         *time.Time      `json:"accrual_date"`
	DueDate             *time.Time      `json:"due_date"`
	InstallmentCount    int             `json:"installment_count" binding:"omitempty,min=1"`
	PartnerSplitEnabled bool            `json:"partner_split_enabled"`
	AlreadyPaid         bool            `json:"already_paid"`
	Origin              string          `json:"origin" binding:"omitempty,oneof=manual api"`
	SupplierID          *uuid.UUID      `json:"supplier_id"`
	CategoryID          *uuid.UUID      `json:"category_id"`
	ProductRef          string          `json:"product_ref"`
	CreatedBy           *uuid.UUID      `json:"-"` // Set from JWT context, not from request body
}

// EntryEditsRequest carries reviewer corrections. Only the fields present are applied.
type EntryEditsRequest struct {
	Description      *string    `json:"description" binding:"omitempty,max=500"`
	CategoryID       *uuid.UUID `json:"category_id"`
	SupplierID       *uuid.UUID `json:"supplier_id"`
	DueDate          *time.Time `json:"due_date"`
	InstallmentCount *int       `json:"installment_count" binding:"omitempty,min=1"`
	AlreadyPaid      *bool      `json:"already_paid"`
}

// ToDomain converts the request to the closed edit set of the domain
func (r EntryEditsRequest) ToDomain() ledger.EntryEdits {
	return ledger.EntryEdits{
		Description:      r.Description,
		CategoryID:       r.CategoryID,
		SupplierID:       r.SupplierID,
		DueDate:          r.DueDate,
		InstallmentCount: r.InstallmentCount,
		AlreadyPaid:      r.AlreadyPaid,
	}
}

// ApproveEntryRequest represents a request to validate a pre-entry
type ApproveEntryRequest struct {
	Edits       EntryEditsRequest `json:"edits"`
	ValidatorID uuid.UUID         `json:"-"` // Set from JWT context
}

// MarkInstallmentPaidRequest records a payment against an installment
type MarkInstallmentPaidRequest struct {
	PaidDate   *time.Time       `json:"paid_date"`
	PaidAmount *decimal.Decimal `json:"paid_amount" binding:"omitempty,decimal_gte0"`
}

// EntryListFilter defines filtering options for entry list queries
type EntryListFilter struct {
	Search                string     `form:"search"`
	Status                string     `form:"status" binding:"omitempty,oneof=pre_entry validated canceled"`
	Kind                  string     `form:"kind" binding:"omitempty,oneof=expense revenue"`
	Origin                string     `form:"origin" binding:"omitempty,oneof=manual api recurring"`
	RecurringDefinitionID *uuid.UUID `form:"recurring_definition_id"`
	IssueFrom             *time.Time `form:"issue_from" time_format:"2006-01-02"`
	IssueTo               *time.Time `form:"issue_to" time_format:"2006-01-02"`
	Page                  int        `form:"page"`
	PageSize              int        `form:"page_size"`
}

// CreateRecurringDefinitionRequest represents a request to create a recurring definition
type CreateRecurringDefinitionRequest struct {
	Kind                string          `json:"kind" binding:"required,oneof=expense revenue"`
	Description         string          `json:"description" binding:"required,max=500"`
	Amount              decimal.Decimal `json:"amount" binding:"decimal_gte0"`
	Frequency           string          `json:"frequency" binding:"required,oneof=monthly bimonthly quarterly semiannual annual"`
	DueDayOfMonth       int             `json:"due_day_of_month" binding:"required,min=1,max=31"`
	AdjustForWeekend    bool            `json:"adjust_for_weekend"`
	StartDate           time.Time       `json:"start_date" binding:"required"`
	EndDate             *time.Time      `json:"end_date"`
	CategoryID          *uuid.UUID      `json:"category_id"`
	SupplierID          *uuid.UUID      `json:"supplier_id"`
	InstallmentCount    int             `json:"installment_count" binding:"omitempty,min=1"`
	AutoValidate        bool            `json:"auto_validate"`
	PartnerSplitEnabled bool            `json:"partner_split_enabled"`
	CreatedBy           *uuid.UUID      `json:"-"`
}

// ToggleRecurringDefinitionRequest activates or deactivates a definition
type ToggleRecurringDefinitionRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// RecurringDefinitionListFilter defines filtering options for definition list queries
type RecurringDefinitionListFilter struct {
	Active   *bool  `form:"active"`
	Kind     string `form:"kind" binding:"omitempty,oneof=expense revenue"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ===================== Responses =====================

// EntryResponse represents an entry in API responses
type EntryResponse struct {
	ID                    uuid.UUID  `json:"id"`
	Kind                  string     `json:"kind"`
	Description           string     `json:"description"`
	IssueDate             time.Time  `json:"issue_date"`
	AccrualDate           time.Time  `json:"accrual_date"`
	DueDate               *time.Time `json:"due_date,omitempty"`
	AmountTotal           string     `json:"amount_total"`
	InstallmentCount      int        `json:"installment_count"`
	PartnerSplitEnabled   bool       `json:"partner_split_enabled"`
	AlreadyPaid           bool       `json:"already_paid"`
	Status                string     `json:"status"`
	Origin                string     `json:"origin"`
	SupplierID            *uuid.UUID `json:"supplier_id,omitempty"`
	CategoryID            *uuid.UUID `json:"category_id,omitempty"`
	RecurringDefinitionID *uuid.UUID `json:"recurring_definition_id,omitempty"`
	AttachmentRef         string     `json:"attachment_ref,omitempty"`
	ProductRef            string     `json:"product_ref,omitempty"`
	ValidatedBy           *uuid.UUID `json:"validated_by,omitempty"`
	ValidatedAt           *time.Time `json:"validated_at,omitempty"`
	CanceledBy            *uuid.UUID `json:"canceled_by,omitempty"`
	CanceledAt            *time.Time `json:"canceled_at,omitempty"`
	CreatedBy             *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	Version               int        `json:"version"`
}

// EntryItemResponse represents a materialized entry item
type EntryItemResponse struct {
	ID          uuid.UUID  `json:"id"`
	Description string     `json:"description"`
	Quantity    string     `json:"quantity"`
	UnitPrice   string     `json:"unit_price"`
	LineTotal   string     `json:"line_total"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	ProductRef  string     `json:"product_ref,omitempty"`
}

// InstallmentResponse represents an installment in API responses
type InstallmentResponse struct {
	ID                uuid.UUID  `json:"id"`
	EntryID           uuid.UUID  `json:"entry_id"`
	SequenceNumber    int        `json:"sequence_number"`
	TotalInstallments int        `json:"total_installments"`
	Amount            string     `json:"amount"`
	DueDate           time.Time  `json:"due_date"`
	PaymentStatus     string     `json:"payment_status"`
	PaidDate          *time.Time `json:"paid_date,omitempty"`
	PaidAmount        *string    `json:"paid_amount,omitempty"`
}

// PartnerSplitResponse represents a partner split in API responses
type PartnerSplitResponse struct {
	ID         uuid.UUID `json:"id"`
	PartnerID  uuid.UUID `json:"partner_id"`
	Percentage string    `json:"percentage"`
	Amount     string    `json:"amount"`
}

// EntryDetailResponse is an entry with everything approval produced for it
type EntryDetailResponse struct {
	EntryResponse
	Items        []EntryItemResponse    `json:"items"`
	Installments []InstallmentResponse  `json:"installments"`
	Splits       []PartnerSplitResponse `json:"splits"`
}

// RecurringDefinitionResponse represents a recurring definition in API responses
type RecurringDefinitionResponse struct {
	ID                  uuid.UUID  `json:"id"`
	Kind                string     `json:"kind"`
	Description         string     `json:"description"`
	Amount              string     `json:"amount"`
	Frequency           string     `json:"frequency"`
	DueDayOfMonth       int        `json:"due_day_of_month"`
	AdjustForWeekend    bool       `json:"adjust_for_weekend"`
	StartDate           time.Time  `json:"start_date"`
	EndDate             *time.Time `json:"end_date,omitempty"`
	Active              bool       `json:"active"`
	NextOccurrenceDate  time.Time  `json:"next_occurrence_date"`
	CategoryID          *uuid.UUID `json:"category_id,omitempty"`
	SupplierID          *uuid.UUID `json:"supplier_id,omitempty"`
	InstallmentCount    int        `json:"installment_count"`
	AutoValidate        bool       `json:"auto_validate"`
	PartnerSplitEnabled bool       `json:"partner_split_enabled"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	Version             int        `json:"version"`
}

// MaterializedEntry reports one entry a tick produced
type MaterializedEntry struct {
	DefinitionID   uuid.UUID `json:"definition_id"`
	EntryID        uuid.UUID `json:"entry_id"`
	OccurrenceDate time.Time `json:"occurrence_date"`
	Status         string    `json:"status"`
}

// TickFailure reports a definition a tick could not process
type TickFailure struct {
	DefinitionID uuid.UUID `json:"definition_id"`
	Error        string    `json:"error"`
}

// TickResult summarizes one generator run
type TickResult struct {
	RunAt        time.Time           `json:"run_at"`
	Processed    int                 `json:"processed"`
	Materialized []MaterializedEntry `json:"materialized"`
	Failures     []TickFailure       `json:"failures,omitempty"`
}

// ===================== Mappers =====================

func toEntryResponse(e *ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:                    e.ID,
		Kind:                  e.Kind.String(),
		Description:           e.Description,
		IssueDate:             e.IssueDate,
		AccrualDate:           e.AccrualDate,
		DueDate:               e.DueDate,
		AmountTotal:           e.AmountTotal.StringFixed(),
		InstallmentCount:      e.InstallmentCount,
		PartnerSplitEnabled:   e.PartnerSplitEnabled,
		AlreadyPaid:           e.AlreadyPaid,
		Status:                e.Status.String(),
		Origin:                string(e.Origin),
		SupplierID:            e.SupplierID,
		CategoryID:            e.CategoryID,
		RecurringDefinitionID: e.RecurringDefinitionID,
		AttachmentRef:         e.AttachmentRef,
		ProductRef:            e.ProductRef,
		ValidatedBy:           e.ValidatedBy,
		ValidatedAt:           e.ValidatedAt,
		CanceledBy:            e.CanceledBy,
		CanceledAt:            e.CanceledAt,
		CreatedBy:             e.CreatedBy,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
		Version:               e.Version,
	}
}

func toEntryResponses(entries []ledger.Entry) []EntryResponse {
	responses := make([]EntryResponse, len(entries))
	for i := range entries {
		responses[i] = toEntryResponse(&entries[i])
	}
	return responses
}

func toEntryItemResponse(item *ledger.EntryItem) EntryItemResponse {
	return EntryItemResponse{
		ID:          item.ID,
		Description: item.Description,
		Quantity:    item.Quantity.String(),
		UnitPrice:   item.UnitPrice.StringFixed(),
		LineTotal:   item.LineTotal.StringFixed(),
		CategoryID:  item.CategoryID,
		ProductRef:  item.ProductRef,
	}
}

func toInstallmentResponse(i *ledger.Installment) InstallmentResponse {
	resp := InstallmentResponse{
		ID:                i.ID,
		EntryID:           i.EntryID,
		SequenceNumber:    i.SequenceNumber,
		TotalInstallments: i.TotalInstallments,
		Amount:            i.Amount.StringFixed(),
		DueDate:           i.DueDate,
		PaymentStatus:     string(i.PaymentStatus),
		PaidDate:          i.PaidDate,
	}
	if i.PaidAmount != nil {
		paid := i.PaidAmount.StringFixed()
		resp.PaidAmount = &paid
	}
	return resp
}

func toInstallmentResponses(installments []ledger.Installment) []InstallmentResponse {
	responses := make([]InstallmentResponse, len(installments))
	for i := range installments {
		responses[i] = toInstallmentResponse(&installments[i])
	}
	return responses
}

func toPartnerSplitResponse(s *ledger.PartnerSplit) PartnerSplitResponse {
	return PartnerSplitResponse{
		ID:         s.ID,
		PartnerID:  s.PartnerID,
		Percentage: s.Percentage.String(),
		Amount:     s.Amount.StringFixed(),
	}
}

func toRecurringDefinitionResponse(d *ledger.RecurringDefinition) RecurringDefinitionResponse {
	return RecurringDefinitionResponse{
		ID:                  d.ID,
		Kind:                d.Kind.String(),
		Description:         d.Description,
		Amount:              d.Amount.StringFixed(),
		Frequency:           d.Frequency.String(),
		DueDayOfMonth:       d.DueDayOfMonth,
		AdjustForWeekend:    d.AdjustForWeekend,
		StartDate:           d.StartDate,
		EndDate:             d.EndDate,
		Active:              d.Active,
		NextOccurrenceDate:  d.NextOccurrenceDate,
		CategoryID:          d.CategoryID,
		SupplierID:          d.SupplierID,
		InstallmentCount:    d.InstallmentCount,
		AutoValidate:        d.AutoValidate,
		PartnerSplitEnabled: d.PartnerSplitEnabled,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
		Version:             d.Version,
	}
}

func toMoney(d decimal.Decimal) valueobject.Money {
	return valueobject.NewMoney(d)
}
