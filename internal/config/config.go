package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName         = "CongoWallet"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultAppURL          = "http://localhost:8080"
	defaultPaystackBaseURL = "https://api.paystack.co"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	defaultWalletAttempts  = 5
	defaultLoginRatePerMin = 5
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	accessTTLEnvVar        = "ACCESS_TOKEN_TTL"
	refreshTTLEnvVar       = "REFRESH_TOKEN_TTL"
	walletAttemptsEnvVar   = "WALLET_NUMBER_ATTEMPTS"
	loginRateLimitEnvVar   = "LOGIN_RATE_LIMIT_PER_MINUTE"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName              string
	AppEnv               string
	Port                 string
	LogLevel             string
	AppURL               string
	DatabaseURL          string
	RedisURL             string
	PaystackSecretKey    string
	PaystackBaseURL      string
	JWTSecret            string
	RefreshSecret        string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	ShutdownPeriod       time.Duration
	IdempotencyTTL       time.Duration
	WalletNumberAttempts int
	LoginRatePerMinute   int
}

// Load reads configuration values from the environment and populates a Config instance.
// A .env file in the working directory is honoured when present; real
// environment variables win over it.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:              getEnv("APP_NAME", defaultAppName),
		AppEnv:               getEnv("APP_ENV", defaultAppEnv),
		Port:                 getEnv("PORT", defaultPort),
		LogLevel:             strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		AppURL:               strings.TrimRight(getEnv("APP_URL", defaultAppURL), "/"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisURL:             os.Getenv("REDIS_URL"),
		PaystackSecretKey:    os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackBaseURL:      strings.TrimRight(getEnv("PAYSTACK_BASE_URL", defaultPaystackBaseURL), "/"),
		JWTSecret:            os.Getenv("JWT_ACCESS_SECRET"),
		RefreshSecret:        os.Getenv("JWT_REFRESH_SECRET"),
		AccessTokenTTL:       defaultAccessTokenTTL,
		RefreshTokenTTL:      defaultRefreshTokenTTL,
		ShutdownPeriod:       defaultShutdownDelay,
		IdempotencyTTL:       defaultIdempotencyTTL,
		WalletNumberAttempts: defaultWalletAttempts,
		LoginRatePerMinute:   defaultLoginRatePerMin,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = durationFromEnv("", accessTTLEnvVar, cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = durationFromEnv("", refreshTTLEnvVar, cfg.RefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.WalletNumberAttempts, err = intFromEnv(walletAttemptsEnvVar, cfg.WalletNumberAttempts); err != nil {
		return Config{}, err
	}
	if cfg.LoginRatePerMinute, err = intFromEnv(loginRateLimitEnvVar, cfg.LoginRatePerMinute); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.WalletNumberAttempts < 1 {
		return fmt.Errorf("%s must be at least 1", walletAttemptsEnvVar)
	}
	if c.IsDevelopment() {
		return nil
	}

	var missing []string
	for key, value := range map[string]string{
		"DATABASE_URL":        c.DatabaseURL,
		"REDIS_URL":           c.RedisURL,
		"PAYSTACK_SECRET_KEY": c.PaystackSecretKey,
		"JWT_ACCESS_SECRET":   c.JWTSecret,
		"JWT_REFRESH_SECRET":  c.RefreshSecret,
	} {
		if value == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return errors.New(strings.Join(missing, ", ") + " must be set")
	}
	return nil
}

// IsDevelopment reports whether the service runs with development fallbacks.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// PaystackCallbackURL is where the gateway redirects a payer after checkout.
func (c Config) PaystackCallbackURL() string {
	return c.AppURL + "/api/v1/wallet/paystack/callback"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
