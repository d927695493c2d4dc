package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/rollcall/cmd/rollcall/internal/config"
	"github.com/terraconstructs/rollcall/pkg/sdk"
)

var (
	listenAddr  string
	corsOrigins []string
)

// ServeCmd runs a local kiosk whose screens are guarded by the session.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a guarded kiosk server for the stored session",
	Long: `Starts an HTTP server exposing the platform's screens behind route guards.
The stored session is restored optimistically and validated in the
background; guarded screens answer 503 until the session settles.

Send SIGHUP to re-validate the session against the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		logger := cfg.Logger

		manager, err := cfg.ClientProvider.Manager()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = sdk.WithManager(ctx, manager)

		manager.Start(ctx)

		origins := cfg.Settings.CORSAllowedOrigins
		if cmd.Flags().Changed("cors-origin") {
			origins = corsOrigins
		}
		g := NewHandler(manager, Options{Logger: logger, AllowedOrigins: origins})

		addr := cfg.Settings.ListenAddr
		if cmd.Flags().Changed("listen") {
			addr = listenAddr
		}
		srv := &http.Server{
			Addr:         addr,
			Handler:      g,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
			BaseContext:  func(_ net.Listener) context.Context { return ctx },
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting kiosk", "addr", addr, "server_url", cfg.Settings.ServerURL)
			serverErrors <- srv.ListenAndServe()
		}()

		revalidate := make(chan os.Signal, 1)
		signal.Notify(revalidate, syscall.SIGHUP)
		defer signal.Stop(revalidate)

		for {
			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)

			case sig := <-revalidate:
				logger.Info("revalidating session", "signal", sig.String())
				manager.Revalidate(ctx)

			case <-ctx.Done():
				logger.Info("shutting down kiosk")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					srv.Close()
					return fmt.Errorf("graceful shutdown failed: %w", err)
				}
				return nil
			}
		}
	},
}

func init() {
	ServeCmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:8080", "Address to listen on (also ROLLCALL_LISTEN_ADDR)")
	ServeCmd.Flags().StringSliceVar(&corsOrigins, "cors-origin", nil, "Allowed CORS origin, repeatable (also ROLLCALL_CORS_ALLOWED_ORIGINS)")
}
