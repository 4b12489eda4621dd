// File: cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/iyunix/oni-chat/internal/config"
	"github.com/iyunix/oni-chat/internal/domain"
	"github.com/iyunix/oni-chat/internal/services"
	"github.com/iyunix/oni-chat/internal/services/ai"
)

func openDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&domain.Thread{}, &domain.Message{}); err != nil {
		return nil, err
	}
	return db, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config Error: %v", err)
	}

	logger := services.NewLogger("oni-server")

	db, err := openDatabase(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("DB Error: %v", err)
	}

	aiCfg := ai.DefaultConfig()
	aiCfg.APIKey = cfg.GroqAPIKey
	aiCfg.BaseURL = cfg.GroqBaseURL
	aiCfg.Model = cfg.GroqModel
	aiCfg.Timeout = cfg.UpstreamTimeout
	if err := aiCfg.Validate(); err != nil {
		log.Fatalf("Upstream Config Error: %v", err)
	}
	upstream := ai.NewOpenAIProvider(aiCfg, logger)

	app, err := newApplication(cfg, db, upstream, logger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize application: %v", err)
	}
	defer app.close()

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("server starting",
		"port", cfg.ServerPort,
		"model", upstream.Model(),
		"upstream_configured", upstream.CheckConfigured() == nil,
		"auth_enabled", cfg.AuthEnabled(),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server startup failed: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		return
	}
	logger.Info("server stopped")
}
