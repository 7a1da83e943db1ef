package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	appevent "github.com/clinic-ledger/backend/internal/application/event"
	infraevent "github.com/clinic-ledger/backend/internal/infrastructure/event"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(outboxCmd)
	outboxCmd.AddCommand(outboxStatsCmd, outboxDeadCmd, outboxShowCmd, outboxRetryCmd)

	outboxDeadCmd.Flags().Int("page", 1, "Page number")
	outboxDeadCmd.Flags().Int("page-size", 20, "Entries per page (max 100)")
	outboxRetryCmd.Flags().Bool("all", false, "Retry every dead letter")
}

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect event delivery and replay dead letters",
}

// withOutboxService runs fn against the outbox of the configured database
func withOutboxService(fn func(svc *appevent.OutboxService) error) error {
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

	return fn(appevent.NewOutboxService(infraevent.NewGormOutboxRepository(db.DB), e.log))
}

var outboxStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count outbox entries by delivery status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOutboxService(func(svc *appevent.OutboxService) error {
			stats, err := svc.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		})
	},
}

var outboxDeadCmd = &cobra.Command{
	Use:   "dead",
	Short: "List events that exhausted their delivery retries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		pageSize, _ := cmd.Flags().GetInt("page-size")

		return withOutboxService(func(svc *appevent.OutboxService) error {
			result, err := svc.ListDead(cmd.Context(), page, pageSize)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEVENT\tAGGREGATE\tATTEMPTS\tUPDATED\tLAST ERROR")
			for _, e := range result.Entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					e.ID, e.EventType, e.AggregateID, e.Attempts, e.UpdatedAt.Format(time.RFC3339), e.LastError)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d, %d dead\n", result.Page, result.TotalPages, result.Total)
			return nil
		})
	},
}

var outboxShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print one outbox entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid entry id: %w", err)
		}
		return withOutboxService(func(svc *appevent.OutboxService) error {
			entry, err := svc.Show(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entry)
		})
	},
}

var outboxRetryCmd = &cobra.Command{
	Use:   "retry [ID]",
	Short: "Send dead letters back to the pending queue",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all == (len(args) == 1) {
			return fmt.Errorf("pass exactly one of ID or --all")
		}

		return withOutboxService(func(svc *appevent.OutboxService) error {
			if all {
				n, err := svc.ReplayAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "requeued %d entries\n", n)
				return nil
			}

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid entry id: %w", err)
			}
			entry, err := svc.Replay(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "requeued %s (%s)\n", entry.ID, entry.EventType)
			return nil
		})
	},
}
