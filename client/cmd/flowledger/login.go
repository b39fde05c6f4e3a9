package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	loginUser     string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Signs in and stores the session token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if loginPassword == "" {
			loginPassword = os.Getenv("FLOWLEDGER_PASSWORD")
		}
		if loginUser == "" || loginPassword == "" {
			return errors.New("username and password are required")
		}

		summary, err := signIn(cmd.Context(), deps, loginUser, loginPassword)
		if err != nil {
			return err
		}
		return printJSON(summary)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forgets the stored session token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return signOut(cmd.Context(), deps)
	},
}

// signIn logs in, keeps the session and loads the currency catalog for it.
// A catalog failure is logged and does not fail the sign-in.
func signIn(ctx context.Context, a *app, username, password string) (map[string]any, error) {
	resp, err := a.client.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if err := a.sessions.SetSession(ctx, resp); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	persisted := a.sessions.Persistent()
	if !persisted {
		a.logger.Warn("No token store configured, the session ends with this process. Set REDIS_ADDR to stay signed in")
	}

	if err := a.catalog.Refresh(ctx, false); err != nil {
		a.logger.Warn("Failed to load currencies", zap.Error(err))
	}

	a.logger.Info("Signed in", zap.String("username", username), zap.Bool("persisted", persisted))
	return map[string]any{
		"user":        resp.User,
		"preferences": resp.Preferences,
		"expires_in":  resp.ExpiresIn,
		"persisted":   persisted,
		"currencies":  len(a.catalog.List()),
	}, nil
}

func signOut(ctx context.Context, a *app) error {
	if !a.sessions.Persistent() {
		a.logger.Warn("No token store configured, there is no stored session to forget. Set REDIS_ADDR to persist sessions")
	}
	return a.sessions.Clear(ctx)
}

func init() {
	loginCmd.Flags().StringVarP(&loginUser, "username", "u", "", "account username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "account password (default $FLOWLEDGER_PASSWORD)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
