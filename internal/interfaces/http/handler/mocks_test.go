package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appledger "github.com/clinic-ledger/backend/internal/application/ledger"
	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEntryService implements EntryService for testing
type MockEntryService struct {
	mock.Mock
}

func (m *MockEntryService) CreatePreEntry(ctx context.Context, req appledger.CreateEntryRequest) (*appledger.EntryResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appledger.EntryResponse), args.Error(1)
}

func (m *MockEntryService) GetEntry(ctx context.Context, id uuid.UUID) (*appledger.EntryDetailResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appledger.EntryDetailResponse), args.Error(1)
}

func (m *MockEntryService) ListEntries(ctx context.Context, filter appledger.EntryListFilter) ([]appledger.EntryResponse, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]appledger.EntryResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockEntryService) SaveEdits(ctx context.Context, id uuid.UUID, req appledger.EntryEditsRequest) (*appledger.EntryResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appledger.EntryResponse), args.Error(1)
}

func (m *MockEntryService) Approve(ctx context.Context, id uuid.UUID, req appledger.ApproveEntryRequest) (*appledger.EntryDetailResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appledger.EntryDetailResponse), args.Error(1)
}

func (m *MockEntryService) Cancel(ctx context.Context, id, actorID uuid.UUID) (*appledger.EntryResponse, error) {
	args := m.Called(ctx, id, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appledger.EntryResponse), args.Error(1)
}

func (m *MockEntryService) ListInstallments(ctx context.Context, entryID uuid.UUID) ([]appledger.InstallmentResponse, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appledger.InstallmentResponse), args.Error(1)
}

func (m *MockEntryService) MarkInstallmentPaid(ctx context.Context, installmentID uuid.UUID, req appledger.MarkInstallmentPaidRequest) (*appledger.InstallmentResponse, error) {
	args := m.Called(ctx, installmentID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appledger.InstallmentResponse), args.Error(1)
}

func (m *MockEntryService) AttachDocument(ctx context.Context, entryID uuid.UUID, filename, contentType string, body io.Reader, size int64) (*appledger.EntryResponse, error) {
	data, _ := io.ReadAll(body)
	args := m.Called(ctx, entryID, filename, contentType, string(data), size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appledger.EntryResponse), args.Error(1)
}

func (m *MockEntryService) SuggestProducts(ctx context.Context, description string, limit int) ([]ledger.ProductMatch, error) {
	args := m.Called(ctx, description, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.ProductMatch), args.Error(1)
}

// MockRecurrenceService implements RecurrenceService for testing
type MockRecurrenceService struct {
	mock.Mock
}

func (m *MockRecurrenceService) CreateRecurringDefinition(ctx context.Context, req appledger.CreateRecurringDefinitionRequest) (*appledger.RecurringDefinitionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appledger.RecurringDefinitionResponse), args.Error(1)
}

func (m *MockRecurrenceService) GetRecurringDefinition(ctx context.Context, id uuid.UUID) (*appledger.RecurringDefinitionResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appledger.RecurringDefinitionResponse), args.Error(1)
}

func (m *MockRecurrenceService) ListRecurringDefinitions(ctx context.Context, filter appledger.RecurringDefinitionListFilter) ([]appledger.RecurringDefinitionResponse, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]appledger.RecurringDefinitionResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockRecurrenceService) ToggleRecurringDefinition(ctx context.Context, id uuid.UUID, active bool) (*appledger.RecurringDefinitionResponse, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appledger.RecurringDefinitionResponse), args.Error(1)
}

func (m *MockRecurrenceService) ListHistory(ctx context.Context, definitionID uuid.UUID) ([]appledger.EntryResponse, error) {
	args := m.Called(ctx, definitionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appledger.EntryResponse), args.Error(1)
}

// MockTickTrigger implements TickTrigger for testing
type MockTickTrigger struct {
	mock.Mock
}

func (m *MockTickTrigger) TriggerImmediate(ctx context.Context, now time.Time) (*appledger.TickResult, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appledger.TickResult), args.Error(1)
}

type routeRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// newTestRouter mounts the handler under /api/v1 behind a fake auth step that
// authenticates as userID (unauthenticated when uuid.Nil)
func newTestRouter(t *testing.T, userID uuid.UUID, h routeRegistrar) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.SetupValidator())

	r := gin.New()
	r.Use(middleware.RequestID(), func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set(middleware.JWTUserIDKey, userID.String())
		}
		c.Next()
	})
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
