// Package main runs the TaskHub server: a small marketplace where users post
// tasks, collect applicants, and drive each post through its lifecycle.
package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	app "github.com/taskhub-io/taskhub/internal/app"
	"github.com/taskhub-io/taskhub/internal/app/httpapi"
	"github.com/taskhub-io/taskhub/internal/app/metrics"
	"github.com/taskhub-io/taskhub/internal/app/storage/postgres"
	"github.com/taskhub-io/taskhub/internal/app/storage/rediscache"
	"github.com/taskhub-io/taskhub/internal/config"
	"github.com/taskhub-io/taskhub/pkg/logger"
)

func main() {
	addrFlag := flag.String("addr", "", "listen address (overrides HTTP_HOST/HTTP_PORT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault("taskhub").Fatalf("load configuration: %v", err)
	}

	log := logger.New(cfg.Log.Logging()).WithField("component", "taskhub")

	addr := cfg.HTTP.Addr()
	if *addrFlag != "" {
		addr = *addrFlag
	}

	stores := app.Stores{}
	if cfg.Database.Driver == "postgres" && cfg.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

		store := postgres.New(db)
		schemaCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := store.EnsureSchema(schemaCtx); err != nil {
			cancel()
			log.Fatalf("ensure schema: %v", err)
		}
		cancel()

		stores.Users = store
		stores.Posts = store
		stores.Messages = store
		log.Info("using postgres storage")
	} else {
		log.Warn("no database configured; using in-memory storage")
	}

	if cfg.Redis.Addr != "" && stores.Posts != nil {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		stores.Posts = rediscache.NewPostCache(stores.Posts, client, cfg.Redis.PostTTL, log)
		log.WithField("addr", cfg.Redis.Addr).Info("post cache enabled")
	}

	application, err := app.New(stores, app.Options{
		AnnounceURL:     cfg.Announce.URL,
		AnnounceKey:     cfg.Announce.APIKey,
		AnnounceTimeout: cfg.Announce.Timeout,
		SweepSchedule:   cfg.Sweep.Schedule,
	}, log)
	if err != nil {
		log.Fatalf("build application: %v", err)
	}

	sink, err := httpapi.NewFileAuditSink(cfg.Audit.LogPath)
	if err != nil {
		log.Fatalf("open audit log: %v", err)
	}
	var auditSink httpapi.Sink
	if sink != nil {
		auditSink = sink
	}
	audit := httpapi.NewAuditLog(cfg.Audit.MaxEntries, auditSink)

	handler := httpapi.NewHandler(application, audit)
	handler = httpapi.WithAuth(handler, cfg.Auth.TokenList(), audit)
	handler = metrics.InstrumentHandler(handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.Fatalf("start application: %v", err)
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("application stop")
	}

	log.Info("server stopped")
}
