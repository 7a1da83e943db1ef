package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetricsEntry(t *testing.T, kind ledger.EntryKind, amount string) *ledger.Entry {
	t.Helper()
	entry, err := ledger.NewPreEntry(ledger.NewEntryParams{
		Kind:        kind,
		Description: "Dental supplies",
		IssueDate:   time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
		Amount:      valueobject.MustMoney(amount),
	})
	require.NoError(t, err)
	return entry
}

func TestLedgerMetrics_Handle(t *testing.T) {
	ctx := context.Background()
	m := NewLedgerMetrics()

	expense := newMetricsEntry(t, ledger.EntryKindExpense, "250.50")
	revenue := newMetricsEntry(t, ledger.EntryKindRevenue, "1000.00")

	require.NoError(t, m.Handle(ctx, ledger.NewEntryCreatedEvent(expense)))
	require.NoError(t, m.Handle(ctx, ledger.NewEntryCreatedEvent(revenue)))
	require.NoError(t, m.Handle(ctx, ledger.NewEntryValidatedEvent(expense, 1, 0)))
	require.NoError(t, m.Handle(ctx, ledger.NewEntryCanceledEvent(revenue)))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.eventsTotal.WithLabelValues(ledger.EventTypeEntryCreated)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.entriesCreated.WithLabelValues("expense", "manual")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.entriesCreated.WithLabelValues("revenue", "manual")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.entriesValidated.WithLabelValues("expense", "manual")))
	assert.InDelta(t, 250.50, testutil.ToFloat64(m.validatedAmount.WithLabelValues("expense")), 0.001)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.entriesCanceled.WithLabelValues("revenue")))
}

func TestLedgerMetrics_InstallmentPaid(t *testing.T) {
	m := NewLedgerMetrics()
	paid := valueobject.MustMoney("99.90")
	paidDate := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	evt := ledger.NewInstallmentPaidEvent(&ledger.Installment{
		EntryID:        uuid.New(),
		SequenceNumber: 1,
		PaidAmount:     &paid,
		PaidDate:       &paidDate,
	})
	require.NoError(t, m.Handle(context.Background(), evt))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.installmentsPaid))
	assert.InDelta(t, 99.90, testutil.ToFloat64(m.installmentsPaidSum), 0.001)
}

func TestLedgerMetrics_ObserveTick(t *testing.T) {
	m := NewLedgerMetrics()

	m.ObserveTick("completed", 150*time.Millisecond, 3)
	m.ObserveTick("skipped", time.Millisecond, 0)
	m.ObserveTick("failed", time.Second, 0)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ticksTotal.WithLabelValues("completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ticksTotal.WithLabelValues("skipped")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ticksTotal.WithLabelValues("failed")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.materializedTotal))
	assert.Positive(t, testutil.ToFloat64(m.lastTickCompletedSec))
	assert.Equal(t, 1, testutil.CollectAndCount(m.tickDuration))
}

func TestLedgerMetrics_Handler(t *testing.T) {
	m := NewLedgerMetrics()
	m.ObserveTick("completed", time.Millisecond, 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `ledger_recurrence_ticks_total{outcome="completed"} 1`))
	assert.Contains(t, body, "go_goroutines")
	assert.Empty(t, m.EventTypes())
}
