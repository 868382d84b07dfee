/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/startblog/apiserver/config"
	"github.com/startblog/apiserver/internal/db"
	"github.com/startblog/apiserver/internal/store"
	"github.com/startblog/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// seedCmd represents the seed command. It bootstraps the database with
// an initial administrator account so a fresh deployment can log in.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the initial admin user",
	Long: `Creates the initial admin user if it does not already exist.

Credentials default to admin/admin and can be overridden with the
SEED_ADMIN_USERNAME, SEED_ADMIN_PASSWORD and SEED_ADMIN_EMAIL
environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open database failed: %w", err)
		}
		defer conn.Close()

		username := envOr("SEED_ADMIN_USERNAME", "admin")
		password := envOr("SEED_ADMIN_PASSWORD", "admin")
		email := envOr("SEED_ADMIN_EMAIL", "admin@example.com")

		users := store.NewUserRepository(conn)
		ctx := cmd.Context()

		if _, err := users.GetByUsername(ctx, username); err == nil {
			fmt.Printf("user %q already exists, nothing to do\n", username)
			return nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("lookup user failed: %w", err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password failed: %w", err)
		}

		created, err := users.Create(ctx, types.User{
			Username:     username,
			Email:        email,
			Name:         "Administrator",
			Role:         types.RoleAdmin,
			PasswordHash: string(hash),
		})
		if err != nil {
			return fmt.Errorf("create admin user failed: %w", err)
		}

		fmt.Printf("created admin user %q (id %d)\n", created.Username, created.ID)
		return nil
	},
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
