package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/jmcleod/optiva/internal/devserver"
)

var (
	port      int
	accessTTL time.Duration
	tlsCert   string
	tlsKey    string
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run an in-memory Optiva backend for local development",
	Long: `Runs a fake Optiva backend with register, login, token refresh and the
tracker collections. State lives in memory and is lost on exit.
API docs are served at /docs and /redoc.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := devserver.New(
			devserver.WithLogger(logger),
			devserver.WithAccessTTL(accessTTL),
			devserver.WithAlertFunc(func(e devserver.AlertEvent) {
				logger.Warn("devserver alert",
					"type", e.Type,
					"count", e.Count,
					"threshold", e.Threshold,
					"message", e.Message,
				)
			}),
		)

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})
		r.Mount("/", s.Router())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			var err error
			if tlsCert != "" && tlsKey != "" {
				err = server.ListenAndServeTLS(tlsCert, tlsKey)
			} else {
				err = server.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner(cmd.OutOrStdout())
		fmt.Fprintf(cmd.OutOrStdout(), "Starting devserver on port %d (access tokens live %s)...\n", port, accessTTL)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(devserverCmd)
	devserverCmd.Flags().IntVar(&port, "port", 8080, "Port to listen on")
	devserverCmd.Flags().DurationVar(&accessTTL, "access-ttl", 15*time.Minute, "Lifetime of issued access tokens")
	devserverCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	devserverCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
}
