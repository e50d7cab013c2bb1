// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	accountsfeature "github.com/dalemusser/alcancia/internal/app/features/accounts"
	goalsfeature "github.com/dalemusser/alcancia/internal/app/features/goals"
	groupgoalsfeature "github.com/dalemusser/alcancia/internal/app/features/groupgoals"
	groupsfeature "github.com/dalemusser/alcancia/internal/app/features/groups"
	healthfeature "github.com/dalemusser/alcancia/internal/app/features/health"
	invitationsfeature "github.com/dalemusser/alcancia/internal/app/features/invitations"
	usersfeature "github.com/dalemusser/alcancia/internal/app/features/users"
	"github.com/dalemusser/alcancia/internal/app/system/auth"
	"github.com/dalemusser/alcancia/internal/app/system/metrics"
	"github.com/dalemusser/alcancia/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewLedger(reg)
	if err != nil {
		logger.Error("metrics registration failed", zap.Error(err))
		return nil, err
	}

	svcs := newServices(mongoStores(deps.MongoDatabase), appCfg, m, logger)
	return newRouter(routerDeps{
		Services: svcs,
		DB:       deps.MongoClient,
		Gatherer: reg,
	}, appCfg, logger), nil
}

type routerDeps struct {
	Services services
	DB       healthfeature.Pinger
	Gatherer prometheus.Gatherer
}

func newRouter(d routerDeps, appCfg AppConfig, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	// Loads the gateway-supplied caller id into the request context.
	r.Use(auth.LoadCaller)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(d.DB, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	if appCfg.MetricsEnabled && d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireCaller)
		if appCfg.RateLimitPerMinute > 0 {
			limiter := ratelimit.New(appCfg.RateLimitPerMinute, time.Minute)
			r.Use(ratelimit.Middleware(limiter, callerKey, logger))
		}

		usersfeature.MountRoutes(r, usersfeature.NewHandler(d.Services.Onboarding, logger))
		accountsfeature.MountRoutes(r, accountsfeature.NewHandler(d.Services.Ledger, logger))
		goalsfeature.MountRoutes(r, goalsfeature.NewHandler(d.Services.Ledger, logger))
		groupsfeature.MountRoutes(r, groupsfeature.NewHandler(d.Services.Onboarding, logger))
		groupgoalsfeature.MountRoutes(r, groupgoalsfeature.NewHandler(d.Services.Ledger, logger))
		invitationsfeature.MountRoutes(r, invitationsfeature.NewHandler(d.Services.Invitations, logger))
	})

	return r
}

// callerKey buckets writes per caller, falling back to the client IP.
func callerKey(r *http.Request) string {
	if id, ok := auth.Caller(r); ok {
		return "user:" + id
	}
	return "ip:" + ratelimit.ClientIP(r)
}
