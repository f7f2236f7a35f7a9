// cmd/service/credentials.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"portfolio-sync/internal/githubapi"
)

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage stored GitHub credentials",
	}
	cmd.AddCommand(newCredentialsSetCmd(), newCredentialsShowCmd())
	return cmd
}

func newCredentialsSetCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Validate a token against GitHub and store it as the active credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCredentialsSet(token)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "GitHub personal access token (default: GITHUB_TOKEN)")
	return cmd
}

func runCredentialsSet(token string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if token == "" {
		token = a.cfg.GithubToken
	}
	if token == "" {
		return errors.New("no token given: pass --token or set GITHUB_TOKEN")
	}

	// Validate the token and discover its owner before storing anything.
	client := githubapi.NewClient(githubapi.StaticTokenSource{AccessToken: token}, a.cfg.PageSize, a.logger)
	account, err := client.AuthenticatedAccount(ctx)
	if err != nil {
		return fmt.Errorf("token validation failed: %w", err)
	}

	if !a.creds.Save(ctx, account.Login, token) {
		return errors.New("failed to store credentials (is ENCRYPTION_KEY configured?)")
	}

	fmt.Printf("Stored active credential for %s\n", account.Login)
	return nil
}

func newCredentialsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show whether an active credential exists for the configured account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if _, ok := a.creds.ActiveToken(ctx, a.cfg.GithubAccount); ok {
				fmt.Printf("Active credential present for %s\n", a.cfg.GithubAccount)
			} else {
				fmt.Printf("No usable credential for %s\n", a.cfg.GithubAccount)
			}
			return nil
		},
	}
}
