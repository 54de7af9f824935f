package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/noah-isme/campus-records-api/api/swagger"
	"github.com/noah-isme/campus-records-api/internal/repository"
	"github.com/noah-isme/campus-records-api/internal/service"
	"github.com/noah-isme/campus-records-api/pkg/cache"
	"github.com/noah-isme/campus-records-api/pkg/config"
	"github.com/noah-isme/campus-records-api/pkg/database"
	"github.com/noah-isme/campus-records-api/pkg/logger"
)

// @title Campus Records API
// @version 1.0.0
// @description Student records, two-tier change requests and tutor assignment
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	metrics := service.NewMetricsService()

	var remote *repository.PostgresStore
	if cfg.Database.Configured() {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Warn("remote store unreachable, running on fallback cache", zap.Error(err))
		} else {
			remote = repository.NewPostgresStore(db)
			defer remote.Close() //nolint:errcheck
		}
	} else {
		logr.Info("remote store not configured, running on fallback cache")
	}

	var kv repository.KeyValueStore
	switch cfg.Cache.Driver {
	case config.CacheDriverMemory:
		logr.Warn("using in-process cache, data is lost on restart")
		kv = repository.NewMemoryStore()
	default:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("fallback cache unavailable", zap.Error(err))
		}
		store := repository.NewRedisStore(client, cfg.Cache.MaxTxRetries, logr.Named("cache"))
		defer store.Close() //nolint:errcheck
		kv = store
	}

	gw := repository.NewGateway(remote, kv, repository.GatewayConfig{
		RemoteEnabled: remote != nil,
		RemoteRetries: cfg.Gateway.RemoteRetries,
		RetryBackoff:  cfg.Gateway.RetryBackoff,
		RemoteTimeout: cfg.Gateway.RemoteTimeout,
	}, logr.Named("gateway"), metrics)
	metrics.SetBreakerOpen(false)

	collections := repository.NewCollections(gw, remote, kv, cfg.Cache.KeyPrefix)
	svc, err := buildServices(cfg, logr, collections, metrics, bcrypt.DefaultCost)
	if err != nil {
		logr.Fatal("failed to build services", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, logr, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "remote", remote != nil, "workflow", cfg.Workflow.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
	logr.Info("server exited")
}
