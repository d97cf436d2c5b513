package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/victorcalife/TOIT-Nexus-sub010/internal/api"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/app"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/cli"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/config"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	db, err := database.Initialize(database.Options{
		Path:  cfg.DatabasePath,
		URL:   cfg.DatabaseURL,
		Quiet: len(os.Args) > 1,
	})
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, db, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer a.Close()

	// Check if running CLI command
	if len(os.Args) > 1 {
		if err := cli.Execute(ctx, a); err != nil {
			a.Close()
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, a); err != nil {
		log.Printf("Server error: %v", err)
	}
}

func serve(ctx context.Context, a *app.App) error {
	cfg := a.Config
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: api.SetupRouter(a),
	}

	if err := a.StartSchedulers(ctx); err != nil {
		return err
	}

	log.Printf("Starting TOIT NEXUS server on port %s", cfg.APIPort)
	log.Printf("Data directory: %s", cfg.DataDir)
	if cfg.DatabaseURL == "" {
		log.Printf("Database path: %s", cfg.DatabasePath)
	}
	log.Printf("Sync interval: %v", cfg.SyncInterval())
	log.Printf("API Key: %s", a.Auth.APIKeyManager.GetCurrentKey())

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace())
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
