package main

import (
	"fmt"
	"time"

	"github.com/clinic-ledger/backend/internal/infrastructure/auth"
	"github.com/clinic-ledger/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)

	tokenIssueCmd.Flags().String("user", "", "User ID (UUID) the token authenticates; random when empty")
	tokenIssueCmd.Flags().String("username", "", "Display name carried in the token")
	tokenIssueCmd.Flags().StringSlice("role", nil, "Role to grant, repeatable (e.g. --role admin)")
	tokenIssueCmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint bearer tokens for service accounts and operators",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Sign an access token with the configured secret",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		userFlag, _ := cmd.Flags().GetString("user")
		username, _ := cmd.Flags().GetString("username")
		roles, _ := cmd.Flags().GetStringSlice("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		userID := uuid.New()
		if userFlag != "" {
			parsed, err := uuid.Parse(userFlag)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			userID = parsed
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		token, err := auth.NewJWTService(cfg.JWT).Issue(auth.IssueInput{
			UserID:   userID,
			Username: username,
			Roles:    roles,
			TTL:      ttl,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
