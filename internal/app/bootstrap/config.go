// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/alcancia/internal/app/invitations"
	"github.com/dalemusser/alcancia/internal/app/system/codegen"
	"github.com/dalemusser/alcancia/internal/domain/money"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for Alcancía.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, invitation_ttl, etc.
//   - Environment variables: ALCANCIA_MONGO_URI, ALCANCIA_INVITATION_TTL, etc.
//   - Command-line flags: --mongo_uri, --invitation_ttl, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "alcancia", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Ledger rules
	{Name: "max_transaction_amount", Default: "4000.00", Desc: "Largest amount a single income/expense may carry"},
	{Name: "conflict_retries", Default: 3, Desc: "Retries after a concurrent update conflict (total attempts = 1 + retries)"},
	{Name: "default_currency", Default: "MXN", Desc: "ISO currency code for accounts opened without one"},

	// Invitations and tags
	{Name: "invitation_ttl", Default: "168h", Desc: "How long a group invitation stays pending (e.g., 168h, 72h)"},
	{Name: "code_max_attempts", Default: codegen.DefaultMaxAttempts, Desc: "Tag candidates tried before giving up"},

	// HTTP surface
	{Name: "metrics_enabled", Default: true, Desc: "Serve Prometheus metrics at /metrics"},
	{Name: "rate_limit_per_minute", Default: 120, Desc: "Write requests allowed per caller per minute (0 disables)"},

	// Timeouts
	{Name: "timeout_read", Default: "5s", Desc: "Deadline for read requests against MongoDB"},
	{Name: "timeout_write", Default: "15s", Desc: "Deadline for ledger writes, retries included"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges, in order of precedence:
// flags > env (WAFFLE_* for core, ALCANCIA_* for app) > config files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "ALCANCIA", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	maxTx, err := money.Parse(appValues.String("max_transaction_amount"))
	if err != nil {
		return nil, AppConfig{}, fmt.Errorf("max_transaction_amount: %w", err)
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		MaxTransactionAmount: maxTx,
		ConflictRetries:      appValues.Int("conflict_retries"),
		DefaultCurrency:      strings.ToUpper(strings.TrimSpace(appValues.String("default_currency"))),

		InvitationTTL:   appValues.Duration("invitation_ttl", invitations.DefaultTTL),
		CodeMaxAttempts: appValues.Int("code_max_attempts"),

		MetricsEnabled:     appValues.Bool("metrics_enabled"),
		RateLimitPerMinute: appValues.Int("rate_limit_per_minute"),

		ReadTimeout:  appValues.Duration("timeout_read", 5*time.Second),
		WriteTimeout: appValues.Duration("timeout_write", 15*time.Second),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI is checked here so a typo fails startup before any
// connection attempt.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateAppConfig(appCfg)
}

func validateAppConfig(appCfg AppConfig) error {
	var problems []string
	if strings.TrimSpace(appCfg.MongoDatabase) == "" {
		problems = append(problems, "mongo_database is required")
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		problems = append(problems, "mongo_min_pool_size exceeds mongo_max_pool_size")
	}
	if !appCfg.MaxTransactionAmount.IsPositive() {
		problems = append(problems, "max_transaction_amount must be greater than zero")
	}
	if appCfg.ConflictRetries < 0 {
		problems = append(problems, "conflict_retries cannot be negative")
	}
	if len(appCfg.DefaultCurrency) != 3 {
		problems = append(problems, "default_currency must be a 3-letter code")
	}
	if appCfg.InvitationTTL <= 0 {
		problems = append(problems, "invitation_ttl must be positive")
	}
	if appCfg.CodeMaxAttempts < 1 {
		problems = append(problems, "code_max_attempts must be at least 1")
	}
	if appCfg.RateLimitPerMinute < 0 {
		problems = append(problems, "rate_limit_per_minute cannot be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
