package ledger

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{events: make([]shared.DomainEvent, 0)}
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// MockEntryRepository is a mock implementation of ledger.EntryRepository
type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockEntryRepository) FindAll(ctx context.Context, filter ledger.EntryFilter) ([]ledger.Entry, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]ledger.Entry), args.Get(1).(int64), args.Error(2)
}

func (m *MockEntryRepository) FindByRecurringDefinition(ctx context.Context, definitionID uuid.UUID) ([]ledger.Entry, error) {
	args := m.Called(ctx, definitionID)
	return args.Get(0).([]ledger.Entry), args.Error(1)
}

func (m *MockEntryRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEntryRepository) SaveWithLock(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockEntryItemRepository is a mock implementation of ledger.EntryItemRepository
type MockEntryItemRepository struct {
	mock.Mock
}

func (m *MockEntryItemRepository) ExistsForEntry(ctx context.Context, entryID uuid.UUID) (bool, error) {
	args := m.Called(ctx, entryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEntryItemRepository) CreateOnce(ctx context.Context, item *ledger.EntryItem) (bool, error) {
	args := m.Called(ctx, item)
	return args.Bool(0), args.Error(1)
}

func (m *MockEntryItemRepository) FindByEntry(ctx context.Context, entryID uuid.UUID) ([]ledger.EntryItem, error) {
	args := m.Called(ctx, entryID)
	return args.Get(0).([]ledger.EntryItem), args.Error(1)
}

// MockInstallmentRepository is a mock implementation of ledger.InstallmentRepository
type MockInstallmentRepository struct {
	mock.Mock
}

func (m *MockInstallmentRepository) CreateBatch(ctx context.Context, installments []ledger.Installment) error {
	args := m.Called(ctx, installments)
	return args.Error(0)
}

func (m *MockInstallmentRepository) FindByEntry(ctx context.Context, entryID uuid.UUID) ([]ledger.Installment, error) {
	args := m.Called(ctx, entryID)
	return args.Get(0).([]ledger.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Installment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) Save(ctx context.Context, installment *ledger.Installment) error {
	args := m.Called(ctx, installment)
	return args.Error(0)
}

// MockPartnerSplitRepository is a mock implementation of ledger.PartnerSplitRepository
type MockPartnerSplitRepository struct {
	mock.Mock
}

func (m *MockPartnerSplitRepository) CreateBatch(ctx context.Context, splits []ledger.PartnerSplit) error {
	args := m.Called(ctx, splits)
	return args.Error(0)
}

func (m *MockPartnerSplitRepository) FindByEntry(ctx context.Context, entryID uuid.UUID) ([]ledger.PartnerSplit, error) {
	args := m.Called(ctx, entryID)
	return args.Get(0).([]ledger.PartnerSplit), args.Error(1)
}

// MockRecurringDefinitionRepository is a mock implementation of ledger.RecurringDefinitionRepository
type MockRecurringDefinitionRepository struct {
	mock.Mock
}

func (m *MockRecurringDefinitionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.RecurringDefinition, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.RecurringDefinition), args.Error(1)
}

func (m *MockRecurringDefinitionRepository) FindDue(ctx context.Context, asOf time.Time, limit int) ([]ledger.RecurringDefinition, error) {
	args := m.Called(ctx, asOf, limit)
	return args.Get(0).([]ledger.RecurringDefinition), args.Error(1)
}

func (m *MockRecurringDefinitionRepository) FindAll(ctx context.Context, filter ledger.RecurringDefinitionFilter) ([]ledger.RecurringDefinition, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]ledger.RecurringDefinition), args.Get(1).(int64), args.Error(2)
}

func (m *MockRecurringDefinitionRepository) Create(ctx context.Context, def *ledger.RecurringDefinition) error {
	args := m.Called(ctx, def)
	return args.Error(0)
}

func (m *MockRecurringDefinitionRepository) SaveWithLock(ctx context.Context, def *ledger.RecurringDefinition) error {
	args := m.Called(ctx, def)
	return args.Error(0)
}

// MockCatalog implements both category and supplier lookups
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) CategoryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalog) SupplierExists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockSplitConfigProvider is a mock implementation of ledger.PartnerSplitConfigProvider
type MockSplitConfigProvider struct {
	mock.Mock
}

func (m *MockSplitConfigProvider) Snapshot(ctx context.Context, asOf time.Time) ([]ledger.PartnerSplitConfig, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.PartnerSplitConfig), args.Error(1)
}

// MockProductMatcher is a mock implementation of ledger.ProductMatcher
type MockProductMatcher struct {
	mock.Mock
}

func (m *MockProductMatcher) FindSimilar(ctx context.Context, description string, limit int) ([]ledger.ProductMatch, error) {
	args := m.Called(ctx, description, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.ProductMatch), args.Error(1)
}

// MockAttachmentStore is a mock implementation of ledger.AttachmentStore
type MockAttachmentStore struct {
	mock.Mock
}

func (m *MockAttachmentStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	args := m.Called(ctx, key, contentType, body, size)
	return args.String(0), args.Error(1)
}

func (m *MockAttachmentStore) URL(ctx context.Context, ref string) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}

// testFixture wires an EntryService and a RecurrenceService over mocks
type testFixture struct {
	entries      *MockEntryRepository
	items        *MockEntryItemRepository
	installments *MockInstallmentRepository
	splits       *MockPartnerSplitRepository
	definitions  *MockRecurringDefinitionRepository
	catalog      *MockCatalog
	splitConfigs *MockSplitConfigProvider
	products     *MockProductMatcher
	attachments  *MockAttachmentStore
	publisher    *MockEventPublisher
	entrySvc     *EntryService
	recurrence   *RecurrenceService
}

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestFixture() *testFixture {
	f := &testFixture{
		entries:      new(MockEntryRepository),
		items:        new(MockEntryItemRepository),
		installments: new(MockInstallmentRepository),
		splits:       new(MockPartnerSplitRepository),
		definitions:  new(MockRecurringDefinitionRepository),
		catalog:      new(MockCatalog),
		splitConfigs: new(MockSplitConfigProvider),
		products:     new(MockProductMatcher),
		attachments:  new(MockAttachmentStore),
		publisher:    NewMockEventPublisher(),
	}
	scope := NewNoOpTransactionScope(f.entries, f.items, f.installments, f.splits, f.definitions, f.publisher)
	collab := Collaborators{
		Categories:   f.catalog,
		Suppliers:    f.catalog,
		SplitConfigs: f.splitConfigs,
		Products:     f.products,
		Attachments:  f.attachments,
	}
	opts := Options{Clock: func() time.Time { return fixedNow }}
	f.entrySvc = NewEntryService(f.entries, f.items, f.installments, f.splits, scope, collab, opts, nil)
	f.recurrence = NewRecurrenceService(f.definitions, f.entries, scope, collab, opts, nil)
	return f
}

func (f *testFixture) assertExpectations(t mock.TestingT) {
	f.entries.AssertExpectations(t)
	f.items.AssertExpectations(t)
	f.installments.AssertExpectations(t)
	f.splits.AssertExpectations(t)
	f.definitions.AssertExpectations(t)
	f.catalog.AssertExpectations(t)
	f.splitConfigs.AssertExpectations(t)
}
