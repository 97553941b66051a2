package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/Cryptverse/routing-server/internal/analytics"
	"github.com/Cryptverse/routing-server/internal/config"
	"github.com/Cryptverse/routing-server/internal/filter"
	"github.com/Cryptverse/routing-server/internal/handlers"
	"github.com/Cryptverse/routing-server/internal/identity"
	"github.com/Cryptverse/routing-server/internal/lobby"
	"github.com/Cryptverse/routing-server/internal/ratelimit"
)

const issuanceDecayInterval = time.Minute

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if !config.EnvReady() {
		if err := config.WriteTemplate(".env"); err != nil {
			logger.Fatalf("failed to write .env template: %v", err)
		}
		logger.Warn("Please fill out the .env file with the correct values. Set ENV_DONE to 'true' when done.")
		return
	}

	cfg := config.Load(logger)

	store := identity.NewStore(cfg.IdentityStoreFile)
	cache, err := identity.NewCache(store, logger)
	if err != nil {
		logger.Fatalf("failed to load identity store: %v", err)
	}

	var queue *analytics.Queue
	if cfg.AnalyticsRedisAddr != "" {
		queue, err = analytics.NewQueue(cfg.AnalyticsRedisAddr, cfg.AnalyticsQueueName)
		if err != nil {
			logger.Warnf("analytics queue unavailable, keeping records in memory: %v", err)
			queue = nil
		}
	}

	issuance := ratelimit.NewTable(cfg.IdentityRateLimit, issuanceDecayInterval)
	clients := ratelimit.NewTable(cfg.ClientIPLimit, 0)

	srv := handlers.NewServer(
		cfg,
		lobby.NewRegistry(),
		cache,
		issuance,
		clients,
		analytics.NewService(queue, logger),
		filter.New(),
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cache.Run(ctx)
	go issuance.Run(ctx)

	server := &http.Server{
		Handler:      srv.Routes(),
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
	}

	l, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Port))
	if err != nil {
		logger.Fatalf("failed to listen: %v", err)
	}

	logger.Infof("listening on %s", l.Addr())

	errc := make(chan error, 1)
	go func() {
		if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
			errc <- server.ServeTLS(l, cfg.TLSCertFile, cfg.TLSKeyFile)
			return
		}
		errc <- server.Serve(l)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Errorf("failed to serve: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("shutdown: %v", err)
	}
}
