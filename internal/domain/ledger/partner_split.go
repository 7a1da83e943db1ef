package ledger

import (
	"fmt"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/clinic-ledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var maxPercentage = decimal.NewFromInt(100)

// PartnerSplitConfig allocates a percentage of every split-enabled entry to a
// partner while the entry's issue date falls inside the active range.
// Configs are independent allocations; their percentages need not add up to 100.
type PartnerSplitConfig struct {
	ID          uuid.UUID       `json:"id"`
	PartnerID   uuid.UUID       `json:"partner_id"`
	Percentage  decimal.Decimal `json:"percentage"`
	ActiveStart time.Time       `json:"active_start"`
	ActiveEnd   *time.Time      `json:"active_end,omitempty"`
}

// Validate checks the config's percentage and date range
func (c PartnerSplitConfig) Validate() error {
	if c.Percentage.IsNegative() || c.Percentage.GreaterThan(maxPercentage) {
		return newValidationError(CodeInvalidPercentage,
			fmt.Sprintf("partner %s percentage must be between 0 and 100, got %s", c.PartnerID, c.Percentage))
	}
	if c.ActiveEnd != nil && DateOf(*c.ActiveEnd).Before(DateOf(c.ActiveStart)) {
		return newValidationError(CodeInvalidDate, fmt.Sprintf("partner %s active range ends before it starts", c.PartnerID))
	}
	return nil
}

// ActiveOn reports whether asOf falls within [ActiveStart, ActiveEnd]; a nil end is open
func (c PartnerSplitConfig) ActiveOn(asOf time.Time) bool {
	day := DateOf(asOf)
	if day.Before(DateOf(c.ActiveStart)) {
		return false
	}
	return c.ActiveEnd == nil || !day.After(DateOf(*c.ActiveEnd))
}

// PartnerSplit is the share of an entry allocated to one partner
type PartnerSplit struct {
	shared.BaseEntity
	EntryID    uuid.UUID         `json:"entry_id"`
	PartnerID  uuid.UUID         `json:"partner_id"`
	Percentage decimal.Decimal   `json:"percentage"`
	Amount     valueobject.Money `json:"amount"`
}

// AllocateSplits computes one split per partner from the configs active on
// asOf. Each config contributes total * percentage / 100 rounded half-up to the
// minor unit; rounding differences are left as they fall. Several active
// configs for one partner fold into a single split carrying the summed
// percentage and amount, in the order the partner first appears. No active
// config yields an empty slice.
func AllocateSplits(total valueobject.Money, asOf time.Time, configs []PartnerSplitConfig) ([]PartnerSplit, error) {
	splits := make([]PartnerSplit, 0, len(configs))
	byPartner := make(map[uuid.UUID]int, len(configs))
	for _, cfg := range configs {
		if !cfg.ActiveOn(asOf) {
			continue
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		amount := total.Percentage(cfg.Percentage)
		if i, seen := byPartner[cfg.PartnerID]; seen {
			splits[i].Percentage = splits[i].Percentage.Add(cfg.Percentage)
			splits[i].Amount = splits[i].Amount.Add(amount)
			continue
		}
		byPartner[cfg.PartnerID] = len(splits)
		splits = append(splits, PartnerSplit{
			BaseEntity: shared.NewBaseEntity(),
			PartnerID:  cfg.PartnerID,
			Percentage: cfg.Percentage,
			Amount:     amount,
		})
	}
	return splits, nil
}
