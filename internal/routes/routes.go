package routes

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/congo_wallet/internal/apikey"
	"github.com/congo-pay/congo_wallet/internal/apperr"
	"github.com/congo-pay/congo_wallet/internal/auth"
	"github.com/congo-pay/congo_wallet/internal/config"
	"github.com/congo-pay/congo_wallet/internal/funding"
	"github.com/congo-pay/congo_wallet/internal/identity"
	"github.com/congo-pay/congo_wallet/internal/logging"
	"github.com/congo-pay/congo_wallet/internal/metrics"
	"github.com/congo-pay/congo_wallet/internal/middleware"
	"github.com/congo-pay/congo_wallet/internal/notification"
	"github.com/congo-pay/congo_wallet/internal/payments"
	"github.com/congo-pay/congo_wallet/internal/paystack"
	"github.com/congo-pay/congo_wallet/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes. DB, Cache,
// Registry, Gateway and Notifier are optional; in-memory or no-op
// fallbacks are used when they are nil.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Gateway  funding.Gateway
	Notifier notification.Notifier
	// AccessLog enables the plain text fiber access log.
	AccessLog bool
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
		d.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	if d.Notifier == nil {
		d.Notifier = notification.NewLoggerNotifier(d.Logger)
	}
	if d.Gateway == nil {
		d.Gateway = defaultGateway(d.Cfg, d.Logger)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.AccessLog {
		// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(logging.Component(d.Logger, "http")))

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	m := metrics.New(d.Registry)

	var (
		walletRepo   wallet.Repository
		identityRepo identity.Repository
		keyRepo      apikey.Repository
	)
	if d.DB != nil {
		walletRepo = wallet.NewPostgresRepository(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
		keyRepo = apikey.NewPostgresRepository(d.DB)
	} else {
		walletRepo = wallet.NewMemoryRepository()
		identityRepo = identity.NewMemoryRepository(walletRepo)
		keyRepo = apikey.NewMemoryRepository()
	}

	walletSvc := wallet.NewService(walletRepo,
		wallet.WithNumberAttempts(d.Cfg.WalletNumberAttempts),
		wallet.WithMetrics(m),
		wallet.WithLogger(d.Logger),
	)
	identitySvc := identity.NewService(identityRepo, walletSvc, identity.WithLogger(d.Logger))
	tokens, err := auth.NewTokenService(auth.Config{
		AccessSecret:  d.Cfg.JWTSecret,
		RefreshSecret: d.Cfg.RefreshSecret,
		AccessTTL:     d.Cfg.AccessTokenTTL,
		RefreshTTL:    d.Cfg.RefreshTokenTTL,
	}, identitySvc)
	if err != nil {
		return err
	}
	keySvc := apikey.NewService(keyRepo, apikey.WithLogger(d.Logger))
	fundingSvc, err := funding.NewService(walletRepo, d.Gateway, identitySvc, funding.Config{
		WebhookSecret: d.Cfg.PaystackSecretKey,
		CallbackURL:   d.Cfg.PaystackCallbackURL(),
	},
		funding.WithNotifier(d.Notifier),
		funding.WithMetrics(m),
		funding.WithLogger(d.Logger),
	)
	if err != nil {
		return err
	}
	paymentSvc := payments.NewService(walletRepo, d.Notifier, payments.WithMetrics(m), payments.WithLogger(d.Logger))

	authn := middleware.Authenticate(tokens, keySvc)
	idempotent := func(c *fiber.Ctx) error { return c.Next() }
	if d.Cache != nil {
		idempotent = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterAuthRoutes(api, auth.NewHandler(identitySvc, tokens, walletSvc),
		middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRatePerMinute, d.Logger), authn)
	RegisterWalletRoutes(api, WalletHandlers{
		Wallet:   wallet.NewHandler(walletSvc),
		Funding:  funding.NewHandler(fundingSvc),
		Payments: payments.NewHandler(paymentSvc),
	}, authn, idempotent)
	RegisterKeyRoutes(api, apikey.NewHandler(keySvc), authn, idempotent)
	RegisterWalletMeRoute(api, walletSvc, identitySvc, authn)

	return nil
}

func defaultGateway(cfg config.Config, logger *slog.Logger) funding.Gateway {
	if cfg.IsDevelopment() && cfg.PaystackSecretKey == "" {
		logger.Warn("PAYSTACK_SECRET_KEY not set, using the offline payment gateway")
		return &funding.StaticGateway{CheckoutURL: cfg.AppURL + "/checkout/"}
	}
	return paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey, &http.Client{Timeout: 15 * time.Second})
}

// ErrorHandler renders errors as {"error": message}. Internal failures are
// logged with the request id and never expose their cause.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = logging.Discard()
	}
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		status := apperr.Status(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				slog.String("request_id", middleware.RequestIDFrom(c)),
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.Any("error", err),
			)
		}
		return c.Status(status).JSON(fiber.Map{"error": apperr.PublicMessage(err)})
	}
}
