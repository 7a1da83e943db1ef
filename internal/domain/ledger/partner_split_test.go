package ledger

import (
	"testing"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/clinic-ledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func splitConfig(pct string, start time.Time, end *time.Time) PartnerSplitConfig {
	return PartnerSplitConfig{
		ID:          uuid.New(),
		PartnerID:   uuid.New(),
		Percentage:  decimal.RequireFromString(pct),
		ActiveStart: start,
		ActiveEnd:   end,
	}
}

func TestPartnerSplitConfig_ActiveOn(t *testing.T) {
	end := date(2024, 6, 30)
	cfg := splitConfig("50", date(2024, 1, 1), &end)

	assert.False(t, cfg.ActiveOn(date(2023, 12, 31)))
	assert.True(t, cfg.ActiveOn(date(2024, 1, 1)))
	assert.True(t, cfg.ActiveOn(time.Date(2024, 6, 30, 23, 59, 0, 0, time.UTC)))
	assert.False(t, cfg.ActiveOn(date(2024, 7, 1)))

	open := splitConfig("50", date(2024, 1, 1), nil)
	assert.True(t, open.ActiveOn(date(2099, 1, 1)))
}

func TestAllocateSplits(t *testing.T) {
	asOf := date(2024, 3, 10)
	expired := date(2024, 2, 1)

	configs := []PartnerSplitConfig{
		splitConfig("60", date(2024, 1, 1), nil),
		splitConfig("25", date(2024, 1, 1), nil),
		splitConfig("40", date(2023, 1, 1), &expired),
		splitConfig("10", date(2024, 4, 1), nil),
	}

	splits, err := AllocateSplits(valueobject.MustMoney("1000.00"), asOf, configs)
	require.NoError(t, err)
	require.Len(t, splits, 2)

	assert.Equal(t, configs[0].PartnerID, splits[0].PartnerID)
	assert.Equal(t, "600.00", splits[0].Amount.StringFixed())
	assert.Equal(t, configs[1].PartnerID, splits[1].PartnerID)
	assert.Equal(t, "250.00", splits[1].Amount.StringFixed())
}

func TestAllocateSplits_RoundingIsNotReconciled(t *testing.T) {
	configs := []PartnerSplitConfig{
		splitConfig("33.33", date(2024, 1, 1), nil),
		splitConfig("33.33", date(2024, 1, 1), nil),
		splitConfig("33.34", date(2024, 1, 1), nil),
	}

	splits, err := AllocateSplits(valueobject.MustMoney("100.01"), date(2024, 1, 1), configs)
	require.NoError(t, err)

	sum := valueobject.Zero()
	for _, s := range splits {
		sum = sum.Add(s.Amount)
	}
	// 33.33 + 33.33 + 33.34 (each rounded independently) = 100.00, one cent short
	assert.Equal(t, "100.00", sum.StringFixed())
}

func TestAllocateSplits_NoActiveConfig(t *testing.T) {
	splits, err := AllocateSplits(valueobject.MustMoney("100.00"), date(2024, 1, 1), []PartnerSplitConfig{
		splitConfig("50", date(2025, 1, 1), nil),
	})
	require.NoError(t, err)
	assert.NotNil(t, splits)
	assert.Empty(t, splits)

	splits, err = AllocateSplits(valueobject.MustMoney("100.00"), date(2024, 1, 1), nil)
	require.NoError(t, err)
	assert.Empty(t, splits)
}

func TestAllocateSplits_InvalidPercentage(t *testing.T) {
	_, err := AllocateSplits(valueobject.MustMoney("100.00"), date(2024, 1, 1), []PartnerSplitConfig{
		splitConfig("120", date(2024, 1, 1), nil),
	})
	assert.True(t, shared.IsValidation(err))
}

func TestAllocateSplits_FoldsConfigsOfOnePartner(t *testing.T) {
	base := splitConfig("10", date(2024, 1, 1), nil)
	other := splitConfig("20", date(2024, 1, 1), nil)
	bonus := splitConfig("5", date(2024, 3, 1), nil)
	bonus.PartnerID = base.PartnerID

	splits, err := AllocateSplits(valueobject.MustMoney("999.99"), date(2024, 3, 10),
		[]PartnerSplitConfig{base, other, bonus})
	require.NoError(t, err)
	require.Len(t, splits, 2)

	assert.Equal(t, base.PartnerID, splits[0].PartnerID)
	assert.True(t, splits[0].Percentage.Equal(decimal.NewFromInt(15)), splits[0].Percentage.String())
	// 100.00 + 50.00, each share rounded before folding
	assert.Equal(t, "150.00", splits[0].Amount.StringFixed())

	assert.Equal(t, other.PartnerID, splits[1].PartnerID)
	assert.Equal(t, "200.00", splits[1].Amount.StringFixed())
}
