// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the pressroom content server.
// It loads configuration, connects to services, wires the content engine,
// starts the maintenance sweep and serves HTTP with graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pressroom/internal/cache"
	"pressroom/internal/config"
	"pressroom/internal/database"
	"pressroom/internal/handlers"
	"pressroom/internal/lifecycle"
	"pressroom/internal/memstore"
	"pressroom/internal/revalidate"
	"pressroom/internal/router"
	"pressroom/internal/store"
	"pressroom/internal/sweep"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Text logs in development, JSON everywhere else.
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"sweep_interval", cfg.SweepInterval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// System pages and setting rows are idempotent, so seed on every start.
	if err := database.Seed(ctx, db); err != nil {
		slog.Error("failed to seed database", "error", err)
		os.Exit(1)
	}

	// Connect to Valkey. The server keeps working on a process-local
	// cache when it is unreachable.
	var contentCache lifecycle.Cache
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Warn("valkey unavailable, using in-process cache", "error", err)
		contentCache = memstore.NewCache()
	} else {
		defer valkeyClient.Close()
		contentCache = cache.NewContentCache(valkeyClient, cache.DefaultPrefix)
	}

	// Initialize data stores.
	contentStore := store.NewContentStore(db)
	revisionStore := store.NewRevisionStore(db)
	termStore := store.NewTermStore(db)
	settingStore := store.NewSiteSettingStore(db)
	cacheLogStore := store.NewCacheLogStore(db)

	// Runtime tunables: environment defaults overlaid with site_settings.
	live := config.NewLive(cfg.Runtime)
	settings := config.NewSettingsSource(cfg.Runtime, settingStore, live)
	if err := settings.Refresh(ctx); err != nil {
		slog.Warn("using environment tunables", "error", err)
	}

	var revalidator lifecycle.Revalidator = revalidate.Noop{}
	if cfg.RevalidateURL != "" {
		revalidator = revalidate.NewWebhook(cfg.RevalidateURL, cfg.RevalidateSecret)
	}

	eng := lifecycle.New(contentStore, revisionStore, live,
		lifecycle.WithCache(contentCache),
		lifecycle.WithRevalidator(revalidator),
		lifecycle.WithTerms(termStore),
		lifecycle.WithAuditLog(cacheLogStore),
	)

	// Scheduled publishing, stale locks and settings refresh.
	runner := sweep.New(eng,
		sweep.WithSettings(settings),
		sweep.WithLogPruning(cacheLogStore, sweep.DefaultLogRetention),
	)
	if cfg.SweepInterval > 0 {
		go runner.Loop(ctx, cfg.SweepInterval)
	} else {
		slog.Warn("sweep disabled, scheduled items publish only through POST /admin/api/sweep")
	}

	// Create handler groups and the router.
	adminHandlers := handlers.NewAdmin(eng, live, cfg.Runtime, settingStore, settings, cacheLogStore, runner)
	publicHandlers := handlers.NewPublic(eng)
	r := router.New(adminHandlers, publicHandlers)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
