package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(partnerCmd)
	partnerCmd.AddCommand(partnerAddCmd, partnerListCmd)

	partnerAddCmd.Flags().String("from", "", "First day the split applies (YYYY-MM-DD); today when empty")
	partnerAddCmd.Flags().String("until", "", "Last day the split applies (YYYY-MM-DD); open-ended when empty")
	partnerListCmd.Flags().String("as-of", "", "Issue date to list active splits for (YYYY-MM-DD); today when empty")
}

var partnerCmd = &cobra.Command{
	Use:   "partner",
	Short: "Maintain the partner split configs applied when entries are validated",
}

var partnerAddCmd = &cobra.Command{
	Use:   "add PARTNER_ID PERCENTAGE",
	Short: "Allocate a percentage of split-enabled entries to a partner",
	Long: `Adds a split config. Configs are independent allocations: their
percentages need not add up to 100, and several configs active for the
same partner are summed into one split.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		until, _ := cmd.Flags().GetString("until")
		cfg, err := parsePartnerSplitConfig(args[0], args[1], from, until, time.Now())
		if err != nil {
			return err
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

		if err := persistence.NewGormPartnerSplitConfigProvider(db.DB).Create(cmd.Context(), cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s: partner %s gets %s%% from %s\n",
			cfg.ID, cfg.PartnerID, cfg.Percentage, cfg.ActiveStart.Format(time.DateOnly))
		return nil
	},
}

var partnerListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the split configs active on a date",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asOfFlag, _ := cmd.Flags().GetString("as-of")
		asOf, err := parseDay(asOfFlag, time.Now())
		if err != nil {
			return fmt.Errorf("invalid --as-of: %w", err)
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

		configs, err := persistence.NewGormPartnerSplitConfigProvider(db.DB).Snapshot(cmd.Context(), asOf)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tPARTNER\tPERCENTAGE\tFROM\tUNTIL")
		for _, c := range configs {
			until := "-"
			if c.ActiveEnd != nil {
				until = c.ActiveEnd.Format(time.DateOnly)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				c.ID, c.PartnerID, c.Percentage, c.ActiveStart.Format(time.DateOnly), until)
		}
		return tw.Flush()
	},
}

// parsePartnerSplitConfig builds a validated config from command arguments.
// An empty from means today.
func parsePartnerSplitConfig(partner, percentage, from, until string, today time.Time) (ledger.PartnerSplitConfig, error) {
	partnerID, err := uuid.Parse(partner)
	if err != nil {
		return ledger.PartnerSplitConfig{}, fmt.Errorf("invalid partner ID: %w", err)
	}
	pct, err := decimal.NewFromString(percentage)
	if err != nil {
		return ledger.PartnerSplitConfig{}, fmt.Errorf("invalid percentage %q: %w", percentage, err)
	}
	start, err := parseDay(from, today)
	if err != nil {
		return ledger.PartnerSplitConfig{}, fmt.Errorf("invalid --from: %w", err)
	}

	cfg := ledger.PartnerSplitConfig{
		ID:          uuid.New(),
		PartnerID:   partnerID,
		Percentage:  pct,
		ActiveStart: start,
	}
	if until != "" {
		end, err := parseDay(until, today)
		if err != nil {
			return ledger.PartnerSplitConfig{}, fmt.Errorf("invalid --until: %w", err)
		}
		cfg.ActiveEnd = &end
	}
	if err := cfg.Validate(); err != nil {
		return ledger.PartnerSplitConfig{}, err
	}
	return cfg, nil
}

func parseDay(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return ledger.DateOf(fallback), nil
	}
	return time.Parse(time.DateOnly, value)
}
