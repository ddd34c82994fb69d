package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"comanda/pos/domain"
	"comanda/pos/internal/auth"
	"comanda/pos/internal/config"
	"comanda/pos/internal/database"
	"comanda/pos/internal/migrations"
	"comanda/pos/internal/realtime"
	"comanda/pos/internal/remote"
	"comanda/pos/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:           "pos",
	Short:         "Restaurant point-of-sale terminal backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is the wiring shared by every command.
type app struct {
	cfg      config.Config
	db       *sqlx.DB
	kv       *storage.SQLStore
	history  *storage.History
	client   *remote.Client
	realtime *realtime.Channel
	auth     *auth.Store
}

func newApp() (*app, error) {
	cfg := config.Load()
	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	opts := realtime.DefaultOptions()
	opts.MaxReconnectAttempts = cfg.MaxReconnectAttempts
	rt := realtime.New(cfg.RealtimeURL, opts)

	client := remote.New(cfg.APIBaseURL, cfg.RequestTimeout)
	kv := storage.NewSQLStore(db)
	return &app{
		cfg:      cfg,
		db:       db,
		kv:       kv,
		history:  storage.NewHistory(db),
		client:   client,
		realtime: rt,
		auth:     auth.New(client, kv, rt, cfg.SessionTTL),
	}, nil
}

func (a *app) Close() {
	a.realtime.Disconnect()
	_ = a.db.Close()
}

// identity returns the logged-in user, restoring a persisted session or
// logging in with the given credentials.
func (a *app) identity(ctx context.Context, username, password string) (domain.User, error) {
	if err := a.auth.Initialize(ctx); err != nil {
		return domain.User{}, fmt.Errorf("restoring session: %w", err)
	}
	if a.auth.ValidateSession(ctx) {
		if user, ok := a.auth.User(); ok {
			return user, nil
		}
	}
	if username == "" || password == "" {
		return domain.User{}, errors.New("no saved session: --username and --password are required")
	}
	user, ok, err := a.auth.Login(ctx, username, password)
	if err != nil {
		return domain.User{}, fmt.Errorf("logging in: %w", err)
	}
	if !ok {
		return domain.User{}, auth.ErrNotAuthenticated
	}
	return user, nil
}

// credentialFlags registers --username and --password on cmd.
func credentialFlags(cmd *cobra.Command, username, password *string) {
	cmd.Flags().StringVarP(username, "username", "u", os.Getenv("POS_USERNAME"), "login user name")
	cmd.Flags().StringVarP(password, "password", "p", os.Getenv("POS_PASSWORD"), "login password")
}
