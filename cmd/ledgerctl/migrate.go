package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/clinic-ledger/backend/internal/infrastructure/migration"
	"github.com/clinic-ledger/backend/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrationsPath string

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd, migrateForceCmd, migrateListCmd, migrateCreateCmd)

	migrateCmd.PersistentFlags().StringVar(&migrationsPath, "path", "",
		"Read migrations from this directory instead of the embedded set")
	migrateDownCmd.Flags().Int("steps", 1, "Number of migrations to roll back (0 rolls back all)")
	migrateCreateCmd.Flags().StringP("description", "d", "", "Description written into the migration header")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migration.Migrator) error {
			return m.Up()
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		return withMigrator(func(m *migration.Migrator) error {
			return m.Down(steps)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migration.Migrator) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dirty {
				fmt.Fprintf(out, "%d (dirty)\n", version)
				return nil
			}
			fmt.Fprintln(out, version)
			return nil
		})
	},
}

var migrateForceCmd = &cobra.Command{
	Use:   "force VERSION",
	Short: "Set the schema version without running migrations",
	Long:  `Force records VERSION as applied and clears the dirty flag. Use it after fixing a migration that failed halfway.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		return withMigrator(func(m *migration.Migrator) error {
			return m.Force(version)
		})
	},
}

var migrateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the known migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var fsys fs.FS = migrations.FS
		if migrationsPath != "" {
			fsys = os.DirFS(migrationsPath)
		}
		names, err := migration.ListMigrations(fsys)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var migrateCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an empty up/down migration pair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := migrationsPath
		if dir == "" {
			dir = "migrations"
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		description, _ := cmd.Flags().GetString("description")

		mf, err := migration.CreateMigration(abs, args[0], description)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\ncreated %s\n", mf.UpPath, mf.DownPath)
		return nil
	},
}

func withMigrator(fn func(m *migration.Migrator) error) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	var m *migration.Migrator
	if migrationsPath != "" {
		abs, absErr := filepath.Abs(migrationsPath)
		if absErr != nil {
			return absErr
		}
		m, err = migration.NewFromPath(e.cfg.Database.DSN(), abs, e.log)
	} else {
		m, err = migration.Open(e.cfg.Database.DSN(), e.log)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			e.log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()

	return fn(m)
}
