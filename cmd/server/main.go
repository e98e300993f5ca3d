package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damon-houk/fintrack/internal/app"
	"github.com/damon-houk/fintrack/internal/config"
	"github.com/damon-houk/fintrack/internal/infrastructure/logger"
)

func main() {
	bootLog := logger.NewJSONLogger(os.Stdout, logger.InfoLevel)

	if err := config.LoadDotEnv(); err != nil {
		bootLog.Fatal("Failed to load .env", map[string]interface{}{"error": err.Error()})
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		bootLog.Fatal("Failed to load configuration", map[string]interface{}{"error": err.Error()})
	}
	if err := cfg.Validate(); err != nil {
		bootLog.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log := logger.NewJSONLogger(os.Stdout, logger.ParseLevel(cfg.LogLevel))
	logger.SetDefaultLogger(log)
	defer log.Sync()

	log.Info("Starting fintrack server", map[string]interface{}{
		"port": cfg.Port,
	})

	application, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", map[string]interface{}{"error": err.Error()})
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Error("Error closing stores", map[string]interface{}{"error": err.Error()})
		}
	}()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           application.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", map[string]interface{}{"addr": server.Addr})
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", map[string]interface{}{"error": err.Error()})
		}
	case <-ctx.Done():
		log.Info("Shutting down", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
