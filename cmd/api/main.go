package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"endlessessentials.app/internal/auth"
	"endlessessentials.app/internal/config"
	"endlessessentials.app/internal/events"
	"endlessessentials.app/internal/httpapi"
	"endlessessentials.app/internal/market"
	"endlessessentials.app/internal/obs"
	"endlessessentials.app/internal/payments"
	"endlessessentials.app/internal/payments/stripegw"
	"endlessessentials.app/internal/store/mongodb"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		obs.Logger().Error("load config", obs.Err(err))
		os.Exit(1)
	}
	log := obs.NewLogger(cfg.Env, os.Stdout)
	obs.SetLogger(log)

	obs.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.OTLPEndpoint, "essentials-api", version, cfg.Env)
	if err != nil {
		log.Warn("tracing disabled", obs.Err(err))
		shutdownTracer = func(context.Context) error { return nil }
	}

	var store market.Store
	var mongo *mongodb.Store
	if uri := cfg.DatabaseURI(); uri != "" {
		openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		mongo, err = mongodb.Open(openCtx, uri, cfg.DBName)
		cancel()
		if err != nil {
			log.Error("connect mongodb", obs.Err(err))
			os.Exit(1)
		}
		store = mongo
		obs.InitBuildInfo(version, commit, obs.StoreMongo)
		log.Info("connected to mongodb", "db", cfg.DBName)
	} else {
		log.Warn("no database credentials configured, using in-memory store")
		store = market.NewInMemory()
		obs.InitBuildInfo(version, commit, obs.StoreMemory)
	}

	tokens, err := auth.NewTokenService(store.Users(), cfg.TokenSecret)
	if err != nil {
		log.Error("token service", obs.Err(err))
		os.Exit(1)
	}

	var gateway payments.IntentGateway = payments.DisabledGateway()
	if cfg.StripeSecretKey != "" {
		gw, err := stripegw.New(cfg.StripeSecretKey)
		if err != nil {
			log.Error("payment gateway", obs.Err(err))
			os.Exit(1)
		}
		gateway = gw
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, payment intents disabled")
	}

	hub := events.NewHub()
	coordOpts := []payments.Option{payments.WithPublisher(hub)}
	var publisher *events.Publisher
	if cfg.AMQPURL != "" {
		publisher, err = events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Warn("event publishing disabled", obs.Err(err))
		} else {
			coordOpts = append(coordOpts, payments.WithPublisher(publisher))
		}
	}
	coordinator := payments.NewCoordinator(store, gateway, coordOpts...)

	api := httpapi.New(store, tokens, coordinator, version,
		httpapi.WithRateLimit(cfg.RateBurst, cfg.RatePerSec),
		httpapi.WithAllowedOrigins(cfg.AllowedOrigins),
		httpapi.WithEventHub(hub),
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	// Shutdown does not cancel handler contexts; close the hub so open streams return.
	srv.RegisterOnShutdown(hub.Close)

	go func() {
		log.Info("starting essentials-api", "version", version, "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", obs.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", obs.Err(err))
	}
	if publisher != nil {
		_ = publisher.Close()
	}
	if mongo != nil {
		if err := mongo.Close(shutdownCtx); err != nil {
			log.Error("mongodb disconnect", obs.Err(err))
		}
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("tracer shutdown", obs.Err(err))
	}
	log.Info("stopped")
}
