package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bhis/bhis/internal/config"
	"github.com/bhis/bhis/internal/domain/account"
	"github.com/bhis/bhis/internal/platform/auth"
	"github.com/bhis/bhis/internal/platform/db"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")
			role, _ := cmd.Flags().GetString("role")
			password, _ := cmd.Flags().GetString("password")
			if email == "" || name == "" || password == "" {
				return fmt.Errorf("--email, --name and --password are required")
			}
			if !auth.ValidRole(role) {
				return fmt.Errorf("unknown role %q", role)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: 2})
			if err != nil {
				return err
			}
			defer pool.Close()

			// Tokens and revocations are not needed to create an account.
			svc := account.NewService(account.NewRepo(pool), nil, nil, zerolog.Nop())
			u, err := svc.CreateUser(ctx, strings.TrimSpace(email), strings.TrimSpace(name), role, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s) with id %s\n", u.Email, u.Role, u.ID)
			return nil
		},
	}
	createCmd.Flags().String("email", "", "Login email")
	createCmd.Flags().String("name", "", "Display name")
	createCmd.Flags().String("role", auth.RoleBHW, "One of admin, physician, nurse, midwife, bhw")
	createCmd.Flags().String("password", "", "Initial password (at least 8 characters)")

	cmd.AddCommand(createCmd)
	return cmd
}
