package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	appledger "github.com/clinic-ledger/backend/internal/application/ledger"
	"github.com/clinic-ledger/backend/internal/infrastructure/cache"
	"github.com/clinic-ledger/backend/internal/infrastructure/event"
	"github.com/clinic-ledger/backend/internal/infrastructure/persistence"
	"github.com/clinic-ledger/backend/internal/infrastructure/scheduler"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tickCmd, recurringCmd)
	recurringCmd.AddCommand(recurringListCmd)

	tickCmd.Flags().String("at", "", "Materialize occurrences due on or before this date (YYYY-MM-DD, default today)")
	tickCmd.Flags().Duration("timeout", 5*time.Minute, "Abort the tick after this long")

	recurringListCmd.Flags().String("kind", "", "Only list expense or revenue definitions")
	recurringListCmd.Flags().Bool("active", false, "Only list active definitions")
	recurringListCmd.Flags().Int("limit", 100, "Maximum number of definitions to print")
}

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run the recurrence generator once",
	Long: `Tick materializes every recurring occurrence due as of --at. It takes the
same distributed lock as the server's scheduler and fails when a tick is
already running elsewhere.`,
	Args: cobra.NoArgs,
	RunE: runTick,
}

func runTick(cmd *cobra.Command, args []string) error {
	at, _ := cmd.Flags().GetString("at")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	var asOf time.Time
	if at != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, at, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --at %q: %w", at, err)
		}
		asOf = parsed
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	db, err := e.openDatabase()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx := cmd.Context()
	lock, err := cache.NewLockFactory(e.cfg.Redis,
		cache.WithLogger(e.log),
		cache.WithInMemoryFallback(e.cfg.App.Env != "production"),
	).CreateLock(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Close() }()

	sched, err := scheduler.NewTickScheduler(newRecurrenceService(e, db), lock, scheduler.TickSchedulerConfig{
		Enabled:  false,
		Interval: time.Hour,
		Timeout:  timeout,
		LockTTL:  timeout + time.Minute,
	}, e.log)
	if err != nil {
		return err
	}

	result, err := sched.TriggerImmediate(ctx, asOf)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

var recurringCmd = &cobra.Command{
	Use:   "recurring",
	Short: "Inspect recurring definitions",
}

var recurringListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recurring definitions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		limit, _ := cmd.Flags().GetInt("limit")
		filter := appledger.RecurringDefinitionListFilter{Kind: kind, Page: 1, PageSize: limit}
		if cmd.Flags().Changed("active") {
			active, _ := cmd.Flags().GetBool("active")
			filter.Active = &active
		}

		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.close()

		db, err := e.openDatabase()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		defs, total, err := newRecurrenceService(e, db).ListRecurringDefinitions(cmd.Context(), filter)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tFREQUENCY\tAMOUNT\tNEXT\tACTIVE\tDESCRIPTION")
		for _, d := range defs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\t%s\n",
				d.ID, d.Kind, d.Frequency, d.Amount,
				d.NextOccurrenceDate.Format(time.DateOnly), d.Active, d.Description)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if int64(len(defs)) < total {
			fmt.Fprintf(cmd.OutOrStdout(), "(%d of %d shown)\n", len(defs), total)
		}
		return nil
	},
}

// newRecurrenceService wires the recurrence service the same way the server
// does. Events go to the outbox and are delivered by the server's processor.
func newRecurrenceService(e *env, db *persistence.Database) *appledger.RecurrenceService {
	serializer := event.NewEventSerializer()
	event.RegisterLedgerEvents(serializer)

	catalog := persistence.NewGormCatalog(db.DB)
	return appledger.NewRecurrenceService(
		persistence.NewGormRecurringDefinitionRepository(db.DB),
		persistence.NewGormEntryRepository(db.DB),
		persistence.NewGormTransactionScope(db.DB, event.NewOutboxPublisher(serializer)),
		appledger.Collaborators{
			Categories:   catalog,
			Suppliers:    catalog,
			SplitConfigs: persistence.NewGormPartnerSplitConfigProvider(db.DB),
			Products:     persistence.NewGormProductMatcher(db.DB),
		},
		appledger.Options{
			RemainderPolicy: e.cfg.Ledger.RemainderPolicy(),
			MaxCatchUp:      e.cfg.Ledger.MaxCatchUp,
		},
		e.log,
	)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
