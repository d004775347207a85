// Package main is the back-office CLI: schema migrations, admin accounts and the price table.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stride-coaching/backend/config"
	"github.com/stride-coaching/backend/internal/auth"
	"github.com/stride-coaching/backend/internal/models"
	"github.com/stride-coaching/backend/internal/pricing"
	"github.com/stride-coaching/backend/pkg/database"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stride-admin",
		Short:         "Back-office tasks for the registration backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(migrateCmd(), createAdminCmd(), pricesCmd())
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
			if err != nil {
				return err
			}
			defer pool.Close()
			return database.Migrate(ctx, pool, logger)
		},
	}
}

func createAdminCmd() *cobra.Command {
	var email, password, name, role string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a back-office account",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := auth.ParseRole(role)
			if !ok {
				return fmt.Errorf("invalid role %q (admin or editor)", role)
			}
			logger := newLogger()
			defer logger.Sync()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			user, err := auth.CreateUser(ctx, auth.NewRepository(pool), email, password, name, r)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().StringVar(&password, "password", "", "Password (min 8 characters)")
	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "Role (admin, editor)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func pricesCmd() *cobra.Command {
	var promo string
	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Print the course price table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printPrices(cmd.OutOrStdout(), promo)
		},
	}
	cmd.Flags().StringVar(&promo, "promo", "", "Show final prices with this promo code")
	return cmd
}

func printPrices(out io.Writer, promo string) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USER TYPE\tPLAN\tPRICE\tFINAL")
	for _, row := range pricing.Table() {
		q := pricing.NewQuote(row.UserType, row.Plan, promo)
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", row.UserType, row.Plan, row.Price, q.FinalPrice)
	}
	return w.Flush()
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
