//go:build integration

// Package integration runs the ledger against real PostgreSQL and Redis
// containers started with testcontainers.
package integration

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clinic-ledger/backend/internal/infrastructure/config"
	"github.com/clinic-ledger/backend/internal/infrastructure/migration"
	"github.com/clinic-ledger/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ledgerTables are emptied before every test, children first
var ledgerTables = []string{
	"outbox_events",
	"partner_splits",
	"installments",
	"entry_items",
	"entries",
	"recurring_definitions",
	"partner_split_configs",
	"products",
	"suppliers",
	"categories",
}

// postgresHarness owns the single migrated container the package shares
type postgresHarness struct {
	mu        sync.Mutex
	container testcontainers.Container
	cfg       config.DatabaseConfig
}

var harness postgresHarness

func (h *postgresHarness) config(t *testing.T) config.DatabaseConfig {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.container != nil {
		return h.cfg
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("ledger_test"),
		tcpostgres.WithUsername("ledger"),
		tcpostgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err, "start postgres container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "ledger",
		Password:        "ledger",
		DBName:          "ledger_test",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: time.Minute,
	}

	m, err := migration.Open(cfg.DSN(), zap.NewNop())
	require.NoError(t, err, "open migrator")
	require.NoError(t, m.Up(), "apply migrations")
	require.NoError(t, m.Close())

	h.container, h.cfg = container, cfg
	return cfg
}

func (h *postgresHarness) terminate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = h.container.Terminate(ctx)
	h.container = nil
}

// CleanupSharedContainer terminates the shared container; TestMain calls it
func CleanupSharedContainer() { harness.terminate() }

// TestDB is a pool on the shared database, emptied for the calling test
type TestDB struct {
	DB *gorm.DB
	t  *testing.T
}

// NewTestDB opens a pool through persistence.NewDatabase, the same path the
// server takes, and truncates every ledger table
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}

	cfg := harness.config(t)
	database, err := persistence.NewDatabase(&cfg)
	require.NoError(t, err, "connect to test database")
	t.Cleanup(func() { _ = database.Close() })

	tdb := &TestDB{DB: database.DB, t: t}
	tdb.truncate()
	return tdb
}

func (tdb *TestDB) truncate() {
	tdb.t.Helper()
	stmt := "TRUNCATE TABLE " + strings.Join(ledgerTables, ", ") + " CASCADE"
	require.NoError(tdb.t, tdb.DB.Exec(stmt).Error, "truncate ledger tables")
}

func (tdb *TestDB) insert(table string, row map[string]any) {
	tdb.t.Helper()
	require.NoError(tdb.t, tdb.DB.Table(table).Create(row).Error, "seed %s", table)
}

// SeedCategory inserts an active category and returns its ID
func (tdb *TestDB) SeedCategory(name, kind string) uuid.UUID {
	id := uuid.New()
	tdb.insert("categories", map[string]any{"id": id, "name": name, "kind": kind})
	return id
}

func (tdb *TestDB) SeedSupplier(name string) uuid.UUID {
	id := uuid.New()
	tdb.insert("suppliers", map[string]any{"id": id, "name": name})
	return id
}

// SeedPartnerSplitConfig inserts an open-ended split config for a new
// partner and returns the partner ID
func (tdb *TestDB) SeedPartnerSplitConfig(percentage string, activeStart time.Time) uuid.UUID {
	partnerID := uuid.New()
	tdb.insert("partner_split_configs", map[string]any{
		"id":           uuid.New(),
		"partner_id":   partnerID,
		"percentage":   percentage,
		"active_start": activeStart.Format(time.DateOnly),
	})
	return partnerID
}

// Count returns the number of rows in table matching the optional condition
func (tdb *TestDB) Count(table, where string, args ...any) int64 {
	tdb.t.Helper()
	q := tdb.DB.Table(table)
	if where != "" {
		q = q.Where(where, args...)
	}
	var n int64
	require.NoError(tdb.t, q.Count(&n).Error)
	return n
}
