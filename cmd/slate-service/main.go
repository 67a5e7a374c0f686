package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-news-slate/internal/config"
	delivery "golang-news-slate/internal/delivery/http"
	"golang-news-slate/pkg/logger"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the HTTP API and the cron triggers",
	Run:   runServe,
}

// loadApp is shared by every command that needs the service graph.
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a, err := newApp(ctx, cfg, appLogger)
	if err != nil {
		_ = appLogger.Sync()
		return nil, err
	}
	a.closers = append([]func(){func() { _ = appLogger.Sync() }}, a.closers...)
	return a, nil
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()
	appLogger := a.logger

	appLogger.Info("Starting Slate Service",
		logger.Field("name", a.cfg.App.Name),
		logger.Field("dry_run", a.cfg.Publisher.DryRun),
		logger.Field("database", a.cfg.Database.Driver),
	)

	// Rebuild today's board from the logs so a restart mid-day keeps publishing.
	if ok, err := a.pipeline.EnsureBoard(ctx, time.Now()); err != nil {
		appLogger.Warn("Failed to restore board", logger.ErrorField(err))
	} else if ok {
		appLogger.Info("Board restored from logs")
	}

	e := delivery.NewRouter(a.handlers(), a.registry, appLogger)

	g, gctx := errgroup.WithContext(ctx)
	if a.cfg.Schedule.Enabled {
		sched := a.scheduler()
		g.Go(func() error { return sched.Start(gctx) })
	} else {
		appLogger.Info("Cron triggers disabled")
	}

	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", a.cfg.API.Host, a.cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Server stopped with error", logger.ErrorField(err))
		return
	}
	appLogger.Info("Server exiting")
}

// @title News Slate API
// @version 1.0
// @description Collects, ranks and publishes a daily slate of nine news posts.
// @contact.name API Support
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @BasePath /api/v1
func main() {
	rootCmd := &cobra.Command{
		Use:   "slate-service",
		Short: "Daily news slate collector and publisher",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd, runCmd, statusCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing slate-service CLI: %s\n", err)
		os.Exit(1)
	}
}
