package api

import (
	"context"
	_ "embed"
	"log/slog"
	"net/http"
	"net/netip"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/fuelflux/core/auth"
	"github.com/fuelflux/core/catalog"
)

// DefaultFuelPrice is the per-litre price reported to customers at a pump
// when no other price is configured.
const DefaultFuelPrice = 63.09

// UserAuthenticator issues and checks long-lived user tokens.
type UserAuthenticator interface {
	GenerateToken(userID int64) (string, error)
	ValidateToken(token string) (int64, bool)
}

// DeviceAuthenticator manages the short-lived sessions pump controllers open
// on behalf of a user.
type DeviceAuthenticator interface {
	Authorize(ctx context.Context, pumpUID, userUID string) (string, error)
	Validate(ctx context.Context, token string) (auth.DeviceBinding, bool)
	Deauthorize(ctx context.Context, token string) error
}

// API holds the dependencies needed by the REST handlers.
type API struct {
	catalog *catalog.Catalog
	users   UserAuthenticator
	devices DeviceAuthenticator

	logger         *slog.Logger
	audit          *auditLogger
	metrics        *metricsCollector
	rateLimiter    *loginRateLimiter
	ipRateLimiter  *ipRateLimiter
	trustedProxies []netip.Prefix
	fuelPrice      float64
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for request and audit logging.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// WithAlertFunc installs a callback for anomaly alerts such as login failure
// spikes or bursts of rejected requests.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *API) {
		a.metrics = newMetricsCollector(fn)
	}
}

// WithFuelPrice overrides the price reported to customers.
func WithFuelPrice(price float64) Option {
	return func(a *API) {
		a.fuelPrice = price
	}
}

// WithTrustedProxies sets the CIDR ranges whose forwarding headers are
// honored when determining the client IP.
func WithTrustedProxies(prefixes []netip.Prefix) Option {
	return func(a *API) {
		a.trustedProxies = prefixes
	}
}

// New creates a new API instance.
func New(cat *catalog.Catalog, users UserAuthenticator, devices DeviceAuthenticator, opts ...Option) *API {
	a := &API{
		catalog:       cat,
		users:         users,
		devices:       devices,
		rateLimiter:   newLoginRateLimiter(),
		ipRateLimiter: newIPRateLimiter(),
		fuelPrice:     DefaultFuelPrice,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	a.logger = a.logger.With("component", "api")
	a.audit = newAuditLogger(a.logger)
	a.audit.metrics = a.metrics
	return a
}

// Router returns a chi.Router with all API routes mounted. It is meant to be
// mounted under /api.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(a.ResolveIdentity)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/openapi.yaml",
		Path:    "api/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/openapi.yaml",
		Path:    "api/redoc",
	}, nil))

	r.Post("/auth/login", a.Login)
	r.With(a.Require(ModeUser)).Get("/users/me", a.CurrentUser)

	r.Route("/pump", func(r chi.Router) {
		r.With(a.Require(ModeDevice, AllowAnonymous())).Post("/authorize", a.AuthorizePump)

		r.Group(func(r chi.Router) {
			r.Use(a.Require(ModeDevice))
			r.Post("/deauthorize", a.DeauthorizePump)
			r.Post("/fuelintake", a.FuelIntake)
			r.Post("/refuel", a.Refuel)
			r.Get("/users", a.PumpUsers)
		})
	})

	r.Route("/fuelstation", func(r chi.Router) {
		r.Use(a.Require(ModeUser))
		r.Use(a.requireAdministrator)

		r.Get("/stations", a.ListStations)
		r.Post("/stations", a.CreateStation)
		r.Get("/stations/{id}", a.GetStation)
		r.Put("/stations/{id}", a.UpdateStation)
		r.Delete("/stations/{id}", a.DeleteStation)

		r.Get("/tanks", a.ListTanks)
		r.Post("/tanks", a.CreateTank)
		r.Get("/tanks/{id}", a.GetTank)
		r.Put("/tanks/{id}", a.UpdateTank)
		r.Delete("/tanks/{id}", a.DeleteTank)

		r.Get("/pumps", a.ListPumps)
		r.Post("/pumps", a.CreatePump)
		r.Get("/pumps/{id}", a.GetPump)
		r.Put("/pumps/{id}", a.UpdatePump)
		r.Delete("/pumps/{id}", a.DeletePump)
	})

	return r
}
