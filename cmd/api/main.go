package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commerce3d/api/internal/app"
	"commerce3d/api/internal/config"
	"commerce3d/api/internal/install"
	"commerce3d/api/internal/session"
	"commerce3d/api/internal/store"

	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	ctx := context.Background()

	backend, db, err := openConfigBackend(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("config backend unavailable")
	}
	if db != nil {
		defer db.Close()
	}
	registry := install.NewRegistry(backend, log)

	var sessions session.Store
	if cfg.SessionBackend == "redis" {
		log.Info("using redis for session storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("redis connection failed")
		}
		defer redisStore.Close()
		sessions = redisStore
	} else {
		log.Info("using process memory for session storage")
		sessions = session.NewMemoryStore()
	}

	service := app.New(registry, sessions, log)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	mode := "installer"
	if registry.IsInstalled(ctx) {
		mode = "dashboard"
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":           cfg.Addr,
			"mode":           mode,
			"config_backend": cfg.ConfigBackend,
		}).Info("commerce api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown error")
	}
}

func openConfigBackend(ctx context.Context, cfg config.Config) (install.Backend, *sql.DB, error) {
	switch cfg.ConfigBackend {
	case "postgres":
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return install.NewPostgresBackend(db), db, nil
	case "s3":
		backend, err := install.NewObjectBackend(ctx, install.ObjectConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Secure:    cfg.S3Secure,
			Bucket:    cfg.S3Bucket,
			Object:    cfg.S3Object,
		})
		if err != nil {
			return nil, nil, err
		}
		return backend, nil, nil
	default:
		return install.NewFileBackend(cfg.ConfigPath), nil, nil
	}
}
