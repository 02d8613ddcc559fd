package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"startlist/cmd/buildCFG"
	"startlist/internal/api/api"
	"startlist/internal/notify"
	"startlist/internal/service"
	"startlist/internal/store"
	"startlist/internal/uploads"

	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	zlog.Init()
	log := zlog.Logger

	cfg := config.New()
	if err := cfg.Load("config.yaml", "", "'"); err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}
	serverCfg := buildCFG.BuildServerConfig(cfg, &log)
	storageCfg := buildCFG.BuildStorageConfig(cfg, &log)

	st, err := store.New(storageCfg.SnapshotPath, &log)
	if err != nil {
		log.Fatal().Msgf("failed to initialize store: %v", err)
	}

	files, err := uploads.New(storageCfg.UploadsDir, "/uploads")
	if err != nil {
		log.Fatal().Msgf("failed to initialize uploads storage: %v", err)
	}

	var notifier service.Notifier
	rabbitCfg := buildCFG.BuildRabbitConfig(cfg, &log)
	if rabbitCfg.Url != "" {
		client, err := notify.NewClient(rabbitCfg.Url, rabbitCfg.Exchange)
		if err != nil {
			log.Fatal().Msgf("failed to connect to RabbitMQ: %v", err)
		}
		defer client.Close()
		notifier = client
	} else {
		log.Info().Msg("registration change feed disabled, no rabbit url configured")
	}

	serviceInstance := service.NewService(st, files, &log, notifier)
	app := api.NewRouters(&api.Routers{Service: serviceInstance, UploadsDir: files.Dir()})

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", serverCfg.Port)
		if err := app.Run(":" + serverCfg.Port); err != nil {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Msgf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if closer, ok := interface{}(app).(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(shutdownCtx); err != nil {
			log.Error().Msgf("Error shutting down server: %v", err)
		}
	}

	log.Info().Msg("Shutdown complete")
}
