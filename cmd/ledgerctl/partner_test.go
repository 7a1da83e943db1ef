package main

import (
	"testing"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePartnerSplitConfig(t *testing.T) {
	partner := uuid.New()
	today := time.Date(2024, 5, 20, 15, 30, 0, 0, time.UTC)

	t.Run("open-ended from today", func(t *testing.T) {
		cfg, err := parsePartnerSplitConfig(partner.String(), "12.5", "", "", today)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, cfg.ID)
		assert.Equal(t, partner, cfg.PartnerID)
		assert.True(t, cfg.Percentage.Equal(decimal.RequireFromString("12.5")))
		assert.Equal(t, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), cfg.ActiveStart)
		assert.Nil(t, cfg.ActiveEnd)
	})

	t.Run("bounded range", func(t *testing.T) {
		cfg, err := parsePartnerSplitConfig(partner.String(), "30", "2024-01-01", "2024-06-30", today)
		require.NoError(t, err)
		require.NotNil(t, cfg.ActiveEnd)
		assert.Equal(t, "2024-06-30", cfg.ActiveEnd.Format(time.DateOnly))
		assert.True(t, cfg.ActiveOn(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := parsePartnerSplitConfig("not-a-uuid", "10", "", "", today)
		assert.ErrorContains(t, err, "partner ID")

		_, err = parsePartnerSplitConfig(partner.String(), "ten", "", "", today)
		assert.ErrorContains(t, err, "percentage")

		_, err = parsePartnerSplitConfig(partner.String(), "10", "01/02/2024", "", today)
		assert.ErrorContains(t, err, "--from")

		_, err = parsePartnerSplitConfig(partner.String(), "150", "", "", today)
		assert.True(t, shared.IsValidation(err))

		_, err = parsePartnerSplitConfig(partner.String(), "10", "2024-06-01", "2024-05-01", today)
		assert.True(t, shared.IsValidation(err))
	})
}
