// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/alcancia/internal/domain/money"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig covers ports, TLS, logging and CORS. Everything
// about the ledger itself lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Ledger rules
	MaxTransactionAmount money.Amount // ceiling for one income/expense record
	ConflictRetries      int          // extra attempts after a version conflict
	DefaultCurrency      string       // used when an account is opened without one

	// Invitations and tags
	InvitationTTL   time.Duration // how long an invitation stays pending
	CodeMaxAttempts int           // candidates tried per generated tag

	// HTTP surface
	MetricsEnabled     bool // serve /metrics
	RateLimitPerMinute int  // writes per caller per minute; 0 disables

	// Store round-trip deadlines
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}
