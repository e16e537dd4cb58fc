package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fuelflux/core/auth"
)

var tokenUserID int64

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a user token signed with the configured secret",
	Long: `Issue a user token for the given user ID without a password check.
Intended for operators bootstrapping an installation or scripting the API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenUserID <= 0 {
			return errors.New("--user-id must be positive")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		users, err := auth.NewUserAuthService(cfg.Secret, cfg.UserTokenLifetime())
		if err != nil {
			return err
		}
		token, err := users.GenerateToken(tokenUserID)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().Int64Var(&tokenUserID, "user-id", 0, "ID of the user the token is issued for")
}
