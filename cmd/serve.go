package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"comanda/pos/internal/api"
	"comanda/pos/internal/restaurant"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the terminal HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.auth.Initialize(ctx); err != nil {
		log.Printf("unable to restore saved session: %v", err)
	}
	a.auth.ValidateSession(ctx)
	if err := a.realtime.Connect(ctx); err != nil {
		log.Printf("realtime unavailable, retrying in background: %v", err)
	}

	handler := api.New(api.Deps{
		Auth:     a.auth,
		Remote:   a.client,
		Mappings: restaurant.NewMappingStore(a.kv),
		History:  a.history,
		Realtime: a.realtime,
		Secret:   a.cfg.Secret,
		TokenTTL: a.cfg.SessionTTL,
	})
	srv := &http.Server{
		Addr:              ":" + a.cfg.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("POS server starting on :%s (API %s)", a.cfg.HTTPPort, a.client.BaseURL())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Printf("shutting down POS server")
	return srv.Shutdown(shutdownCtx)
}
