package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/seremi5/expense-server/internal/domain/profiles"
	"github.com/seremi5/expense-server/internal/storage/postgres"
)

var (
	createAdminEmail    string
	createAdminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create or promote an admin account",
	Long: `Create an admin account, or promote an existing account to admin.

If an account with the given email already exists its role is raised to
admin and the password is left untouched. Otherwise a new admin account
is created with the given password.

Example:
  server create-admin --email admin@example.org --password example`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if createAdminEmail == "" || createAdminPassword == "" {
			return fmt.Errorf("--email and --password are required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}

		pool, err := newPool(cfg.Database)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer pool.Close()

		repo, err := postgres.NewRepository(pool)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		profile, err := profiles.NewService(repo.Profiles()).EnsureAdmin(ctx, createAdminEmail, createAdminPassword)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "admin account ready: %s (%s)\n", profile.Email, profile.ID)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&createAdminEmail, "email", "", "admin email address")
	createAdminCmd.Flags().StringVar(&createAdminPassword, "password", "", "admin password")
}
