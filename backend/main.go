package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"pharmacy/m/internal/access"
	"pharmacy/m/internal/api"
	"pharmacy/m/internal/auth"
	"pharmacy/m/internal/config"
	"pharmacy/m/internal/database"
	"pharmacy/m/internal/logging"
	"pharmacy/m/internal/metrics"
	"pharmacy/m/internal/migrations"
	"pharmacy/m/internal/seed"
	"pharmacy/m/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.Env, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("database connection failed")
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	users := store.NewUserStore(db, log)
	if err := seed.EnsureAdmin(ctx, users, cfg.Seed.AdminUsername, cfg.Seed.AdminPassword, log); err != nil {
		log.Fatal().Err(err).Msg("admin seed failed")
	}
	if _, err := seed.LoadMedicinesFile(ctx, db, cfg.Seed.MedicineCSV, log); err != nil {
		log.Warn().Err(err).Msg("medicine catalog not seeded")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler := api.New(api.Deps{
		DB:          db,
		Users:       users,
		Medicines:   store.NewMedicineStore(db, log),
		Sales:       store.NewSaleStore(db, log),
		Gate:        access.NewGate(users),
		Tokens:      auth.NewTokens(cfg.Secret, cfg.TokenTTL),
		Metrics:     metrics.New(reg),
		Gatherer:    reg,
		Logger:      log,
		CORSOrigins: cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: handler.Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("env", cfg.Env).Msg("pharmacy server starting")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return
	}
	log.Info().Msg("server stopped")
}
