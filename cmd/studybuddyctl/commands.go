package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/bootstrap"
	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&SchemaCommand)
	RootCmd.AddCommand(&PromoteCommand)
	RootCmd.AddCommand(&SweepCommand)
	RootCmd.AddCommand(&SessionKeyCommand)

	SessionKeyCommand.Flags().IntVar(&keyLength, "length", 64, "key length in bytes")
}

var keyLength int

var SchemaCommand = cobra.Command{
	Use:   "schema",
	Short: "Create indexes, validators or DynamoDB tables for the configured group store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(ctx context.Context, appCfg bootstrap.AppConfig, deps bootstrap.DBDeps) error {
			appCfg.DynamoAutoProvision = true
			if err := bootstrap.EnsureSchema(ctx, nil, appCfg, deps, logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema ensured for %s\n", deps.Service.BackendName())
			return nil
		})
	},
}

var PromoteCommand = cobra.Command{
	Use:   "promote <email>",
	Short: "Grant super-admin rights to an existing account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(ctx context.Context, _ bootstrap.AppConfig, deps bootstrap.DBDeps) error {
			u, err := deps.Service.PromoteSuperAdmin(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is a super admin\n", u.Email, u.ID)
			return nil
		})
	},
}

var SweepCommand = cobra.Command{
	Use:   "sweep-invitations",
	Short: "Mark every overdue pending invitation expired",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(ctx context.Context, _ bootstrap.AppConfig, deps bootstrap.DBDeps) error {
			n, err := deps.Service.CleanupExpiredInvitations(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d invitation(s) expired\n", n)
			return nil
		})
	},
}

var SessionKeyCommand = cobra.Command{
	Use:   "gen-session-key",
	Short: "Print a random value for STUDYBUDDY_SESSION_KEY",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if keyLength < 32 {
			return fmt.Errorf("--length must be at least 32")
		}
		key := securecookie.GenerateRandomKey(keyLength)
		if key == nil {
			return fmt.Errorf("could not read random bytes")
		}
		fmt.Fprintln(cmd.OutOrStdout(), base64.RawURLEncoding.EncodeToString(key))
		return nil
	},
}
