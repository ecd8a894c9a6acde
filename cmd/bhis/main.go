package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bhis/bhis/internal/client"
	"github.com/bhis/bhis/internal/config"
	"github.com/bhis/bhis/internal/session"
)

func main() {
	if err := rootCmd(&app{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app carries what every command needs. Fields are filled lazily so
// commands can be tested with an in-memory store and a fake server.
type app struct {
	cfg   *config.ClientConfig
	store session.Store
}

func (a *app) init() error {
	if a.cfg == nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("locate home directory: %w", err)
		}
		cfg, err := config.LoadClient(home)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if a.store == nil {
		a.store = session.NewFileStore(a.cfg.SessionFile)
	}
	return nil
}

// anonymous returns a client for calls that need no token.
func (a *app) anonymous() *client.Client {
	return client.New(a.cfg.APIURL, nil, client.WithTimeout(a.cfg.Timeout()))
}

// authed loads the saved session; it fails when nobody is logged in.
func (a *app) authed(ctx context.Context) (*client.Client, error) {
	sess, err := a.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return client.New(a.cfg.APIURL, sess, client.WithTimeout(a.cfg.Timeout())), nil
}

func rootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "bhis",
		Short:         "Command-line client for the Barangay Health Information System",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.AddCommand(loginCmd(a), logoutCmd(a), whoamiCmd(a))
	root.AddCommand(patientsCmd(a), queueCmd(a))
	root.AddCommand(previewCmd(a), exportCmd(a))
	return root
}
