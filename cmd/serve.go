package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/faceid/internal/app"
	"github.com/kozaktomas/faceid/internal/constants"
	"github.com/kozaktomas/faceid/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the faceid HTTP API.

Endpoints:
  POST /api/recognize   multipart field "image"
  POST /api/ask         {"question": "...", "userInfo": {...}}
  GET  /api/health
  GET  /api/identities[?q=name]
  GET  /api/identities/{id}

On SIGINT/SIGTERM in-flight requests get 30 seconds to finish, queued
notifications are delivered and the database pool is closed.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides PORT, default 5000)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST, default 0.0.0.0)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, app.Options{Advisor: true})
	if err != nil {
		return err
	}
	defer a.Close()

	server, err := web.NewServer(a, cfg.Web.Addr())
	if err != nil {
		return err
	}

	// The notifier outlives the request context so that it can drain after the
	// HTTP server has stopped accepting work.
	notifyCtx, stopNotifier := context.WithCancel(context.Background())
	defer stopNotifier()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Notifier.Run(notifyCtx)
	})
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		stopNotifier()
		return err
	})

	a.Logger.Info("faceid listening", "addr", cfg.Web.Addr(), "provider", a.Advisor.Provider())
	return g.Wait()
}
