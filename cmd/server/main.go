package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"searchvolume-go/internal/config"
	"searchvolume-go/internal/handler"
	"searchvolume-go/internal/service"
	"searchvolume-go/pkg/dataforseo"
	"searchvolume-go/pkg/export"
	"searchvolume-go/pkg/logger"
	"searchvolume-go/pkg/store"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config/config.yaml", "Configuration file path")
	flag.Parse()

	if err := run(configPath); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run(configPath string) error {
	cfg, err := config.NewManager().Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	appLog := logger.New(cfg.Logger)
	logger.SetLogger(appLog)

	login, password, err := cfg.Provider.Credentials()
	if err != nil {
		return err
	}

	client := dataforseo.NewClientWithConfig(login, password, dataforseo.ClientConfig{
		RateLimit: cfg.Provider.RateLimit,
		BaseURL:   cfg.Provider.BaseURL,
		Logger:    appLog,
	})
	if err := client.Open(); err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()

	var storage store.Storage = store.NewMemoryStorage()
	if !cfg.Sync.DryRun {
		fsStorage, err := store.NewFirestoreStorage(ctx, cfg.Store, appLog)
		if err != nil {
			return err
		}
		defer fsStorage.Close()
		storage = fsStorage
	}

	svc := service.NewSyncService(client, storage, cfg.Sync, appLog)
	if cfg.Export.BaseURL != "" {
		exporter, err := export.NewClient(cfg.Export, appLog)
		if err != nil {
			return err
		}
		svc.WithExporter(exporter)
	}

	app := fiber.New(fiber.Config{
		AppName:               "searchvolume-go",
		DisableStartupMessage: true,
	})
	handler.NewController(svc, storage, appLog).Register(app)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLog.Info("Shutdown signal received")
		if err := app.Shutdown(); err != nil {
			appLog.WithError(err).Error("Shutdown failed")
		}
	}()

	appLog.WithFields(map[string]interface{}{
		"addr":           addr,
		"provider_login": logger.MaskCredential(login),
	}).Info("Server starting")
	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}

	appLog.Info("Server stopped")
	return nil
}
