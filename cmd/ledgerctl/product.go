package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	csvimport "github.com/clinic-ledger/backend/internal/infrastructure/import"
	"github.com/clinic-ledger/backend/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(productCmd)
	productCmd.AddCommand(productAddCmd, productImportCmd, productMatchCmd)

	productMatchCmd.Flags().Int("limit", 5, "Maximum number of matches")
	productImportCmd.Flags().Bool("dry-run", false, "Validate the file without saving")
	productImportCmd.Flags().String("delimiter", ",", "Field delimiter")
	productImportCmd.Flags().Int("max-rows", 10000, "Reject files with more data rows")
}

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Maintain the product catalog used for suggestions",
}

var productAddCmd = &cobra.Command{
	Use:   "add REF NAME...",
	Short: "Add a product or rename an existing one",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := strings.TrimSpace(args[0])
		name := strings.TrimSpace(strings.Join(args[1:], " "))
		if ref == "" || name == "" {
			return fmt.Errorf("product ref and name must not be blank")
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

		if err := persistence.NewGormProductMatcher(db.DB).SaveProduct(cmd.Context(), ref, name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", ref, persistence.Normalize(name))
		return nil
	},
}

var productMatchCmd = &cobra.Command{
	Use:   "match DESCRIPTION...",
	Short: "Show the products a description would be matched to",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

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

		matches, err := persistence.NewGormProductMatcher(db.DB).FindSimilar(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SCORE\tREF\tNAME")
		for _, m := range matches {
			fmt.Fprintf(w, "%d\t%s\t%s\n", m.Score, m.ProductRef, m.Name)
		}
		return w.Flush()
	},
}

var productImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load products from a CSV file with product_ref and name columns",
	Long: `Load products from a CSV file. The file needs a header row with
product_ref and name columns. Every row is validated first; if any row is
invalid nothing is saved and the row errors are printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		delimiter, _ := cmd.Flags().GetString("delimiter")
		maxRows, _ := cmd.Flags().GetInt("max-rows")
		if len([]rune(delimiter)) != 1 {
			return fmt.Errorf("--delimiter must be a single character")
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

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

		importer := csvimport.NewProductImporter(
			persistence.NewGormProductMatcher(db.DB),
			e.log,
			csvimport.WithDryRun(dryRun),
			csvimport.WithMaxRows(maxRows),
		)
		result, err := importer.Import(cmd.Context(), f, csvimport.WithDelimiter([]rune(delimiter)[0]))
		if err != nil {
			return err
		}
		if err := printJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
		if result.ErrorCount > 0 {
			return fmt.Errorf("%d rows rejected", result.ErrorCount)
		}
		return nil
	},
}
