package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/unowned-ai/moodledger/pkg/httpapi"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the mood ledger over HTTP",
	Long: `Start the JSON HTTP API under /api/v1. Mood writes are published to Redis
when redis.addr is configured.

Example:
  moodledger serve --addr :8080
  MOODLEDGER_DRIVER=postgres MOODLEDGER_POSTGRES_DSN=postgres://... moodledger serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if strings.HasPrefix(strings.ToLower(a.cfg.Log.Mode), "prod") {
			gin.SetMode(gin.ReleaseMode)
		}

		router := httpapi.NewRouter(httpapi.RouterConfig{
			Ledger:         a.ledger,
			Log:            a.log,
			AllowedOrigins: a.cfg.HTTP.AllowedOrigins,
		})
		srv := &http.Server{
			Addr:              a.cfg.HTTP.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.log.Info("http server listening", "addr", srv.Addr, "driver", a.cfg.Driver)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case err, ok := <-errCh:
			if ok {
				return fmt.Errorf("http server failed: %w", err)
			}
			return nil
		case sig := <-quit:
			a.log.Info("shutting down http server", "signal", sig.String())
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		a.log.Info("http server stopped")
		return nil
	},
}

func initServeCmd() {
	serveCmd.Flags().String("addr", ":8080", "Listen address for the HTTP API")
	bindFlag("http.addr", serveCmd.Flags().Lookup("addr"))
}
