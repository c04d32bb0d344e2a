package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kayz/slidefit/internal/cron"
	"github.com/kayz/slidefit/internal/logger"
	"github.com/kayz/slidefit/internal/server"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the slidefit HTTP and websocket API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default: server.port from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}

	scheduler := cron.NewScheduler()
	if cfg.Maintenance.Enabled {
		if a.store != nil {
			if _, err := scheduler.AddJob("prune-history", cfg.Maintenance.Schedule,
				cron.PruneHistoryTask(a.store, cfg.Storage.RetentionDays, nil)); err != nil {
				return err
			}
		}
		if cfg.PromptBuild.AuditEnabled {
			if _, err := scheduler.AddJob("cleanup-prompt-audit", cfg.Maintenance.Schedule,
				cron.CleanupAuditTask(a.prompts)); err != nil {
				return err
			}
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	var history server.History
	if a.store != nil {
		history = a.store
	}
	srv := server.NewServer(a.orchestrator, a.variants, a.assembler, history)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("[Serve] listening on http://127.0.0.1:%d", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("[Serve] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}
