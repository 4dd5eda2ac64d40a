package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/congo_wallet/internal/config"
	"github.com/congo-pay/congo_wallet/internal/funding"
	"github.com/congo-pay/congo_wallet/internal/infra"
	"github.com/congo-pay/congo_wallet/internal/logging"
	"github.com/congo-pay/congo_wallet/internal/routes"
	"github.com/congo-pay/congo_wallet/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	var gateway funding.Gateway
	if cfg.IsDevelopment() && applyDevelopmentDefaults(&cfg, logger.Warn) {
		gateway = &funding.StaticGateway{CheckoutURL: cfg.AppURL + "/checkout/"}
	}

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := infra.Migrate(ctx, db); err != nil {
			logger.Error("apply schema", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL, infra.WithClientName(cfg.AppName))
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Warn("REDIS_URL not set, idempotency keys and login rate limiting are disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv, err := server.New(routes.Deps{
		Cfg:       cfg,
		DB:        db,
		Cache:     cache,
		Logger:    logger,
		Registry:  registry,
		Gateway:   gateway,
		AccessLog: cfg.IsDevelopment(),
	})
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "address", cfg.Address(), "env", cfg.AppEnv)
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, logger); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}

// applyDevelopmentDefaults fills missing secrets with per-process random
// values so a local instance boots without any configuration. Tokens do not
// survive a restart. It reports whether the payment gateway must run
// offline because no gateway key was provided.
func applyDevelopmentDefaults(cfg *config.Config, warn func(msg string, args ...any)) bool {
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = randomSecret()
		warn("JWT_ACCESS_SECRET not set, using a random development secret")
	}
	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = randomSecret()
		warn("JWT_REFRESH_SECRET not set, using a random development secret")
	}
	if cfg.PaystackSecretKey == "" {
		cfg.PaystackSecretKey = "sk_test_" + randomSecret()
		warn("PAYSTACK_SECRET_KEY not set, using the offline payment gateway; set it to exercise signed webhooks")
		return true
	}
	return false
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
