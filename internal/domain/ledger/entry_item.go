package ledger

import (
	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/clinic-ledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryItem is a line of a validated entry. Items exist only after validation.
type EntryItem struct {
	shared.BaseEntity
	EntryID     uuid.UUID         `json:"entry_id"`
	Description string            `json:"description"`
	Quantity    decimal.Decimal   `json:"quantity"`
	UnitPrice   valueobject.Money `json:"unit_price"`
	LineTotal   valueobject.Money `json:"line_total"`
	CategoryID  *uuid.UUID        `json:"category_id,omitempty"`
	ProductRef  string            `json:"product_ref,omitempty"`
}

// NewEntryItem creates an item with line_total = quantity * unit_price
func NewEntryItem(entryID uuid.UUID, description string, quantity decimal.Decimal, unitPrice valueobject.Money) (*EntryItem, error) {
	if err := validateDescription(description); err != nil {
		return nil, err
	}
	if !quantity.IsPositive() {
		return nil, newValidationError(CodeInvalidQuantity, "quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, newValidationError(CodeInvalidAmount, "unit price cannot be negative")
	}
	return &EntryItem{
		BaseEntity:  shared.NewBaseEntity(),
		EntryID:     entryID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LineTotal:   unitPrice.Multiply(quantity).Round(),
	}, nil
}
