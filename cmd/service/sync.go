// cmd/service/sync.go
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	var (
		account string
		public  bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(account, public)
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "GitHub account to sync (default: GITHUB_ACCOUNT)")
	cmd.Flags().BoolVar(&public, "public", false, "sync without authentication (public repositories only)")
	return cmd
}

func runSync(account string, public bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if account == "" {
		account = a.cfg.GithubAccount
	}

	engine := a.newEngine(public)
	ok, message, synced := engine.SyncAccount(ctx, account)

	fmt.Printf("account:             %s\n", account)
	fmt.Printf("success:             %t\n", ok)
	fmt.Printf("repositories synced: %d\n", synced)
	fmt.Printf("message:             %s\n", message)

	if !ok {
		return fmt.Errorf("sync failed: %s", message)
	}
	return nil
}
