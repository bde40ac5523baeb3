// Package panel serves the admin panel over HTTP: the login flow, the
// gated pages of the route table, a same-origin proxy to the backend API,
// and the operational endpoints.
package panel

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmcleod/visaexpress/apiclient"
	"github.com/jmcleod/visaexpress/controller"
	"github.com/jmcleod/visaexpress/gate"
	"github.com/jmcleod/visaexpress/route"
	"github.com/jmcleod/visaexpress/web"
)

//go:embed openapi.yaml
var openapiSpec []byte

// DefaultSessionMaxAge is how long a login lasts.
const DefaultSessionMaxAge = 12 * time.Hour

// Panel holds the dependencies of the HTTP handlers.
type Panel struct {
	backend  *apiclient.Client
	sealer   *sealer
	routes   *route.Table
	renderer *web.Renderer
	assets   http.Handler

	logger   *slog.Logger
	audit    *auditLogger
	metrics  *metricsCollector
	registry *prometheus.Registry
	alertFn  AlertFunc

	userLimiter    *failureLimiter
	ipLimiter      *failureLimiter
	trustedProxies []netip.Prefix

	policy           gate.Policy
	exemptPaths      []string
	loginPath        string
	authPath         string
	maxAge           time.Duration
	activationNotice bool
}

// Option configures the Panel.
type Option func(*Panel)

// WithLogger sets the structured logger. If not set, a JSON logger writing
// to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Panel) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPolicy selects the gate policy for logged-out navigations.
func WithPolicy(policy gate.Policy) Option {
	return func(p *Panel) {
		p.policy = policy
	}
}

// WithExemptPaths adds gated pages that logged-out users may reach under
// gate.PolicyExemptLogin.
func WithExemptPaths(paths ...string) Option {
	return func(p *Panel) {
		p.exemptPaths = append(p.exemptPaths, paths...)
	}
}

// WithLoginPath sets where logged-out navigations are redirected.
func WithLoginPath(path string) Option {
	return func(p *Panel) {
		if path != "" {
			p.loginPath = path
		}
	}
}

// WithAuthPath sets the backend endpoint that verifies logins. An empty
// path disables verification.
func WithAuthPath(path string) Option {
	return func(p *Panel) {
		p.authPath = path
	}
}

// WithSessionMaxAge sets how long a login lasts.
func WithSessionMaxAge(d time.Duration) Option {
	return func(p *Panel) {
		if d > 0 {
			p.maxAge = d
		}
	}
}

// WithActivationNotice makes listing pages announce a successful load.
func WithActivationNotice(enabled bool) Option {
	return func(p *Panel) {
		p.activationNotice = enabled
	}
}

// WithAlertFunc registers a callback for anomaly alerts.
func WithAlertFunc(fn AlertFunc) Option {
	return func(p *Panel) {
		p.alertFn = fn
	}
}

// WithTrustedProxies sets the proxies whose forwarding headers are honored
// when rate limiting by client address.
func WithTrustedProxies(prefixes []netip.Prefix) Option {
	return func(p *Panel) {
		p.trustedProxies = prefixes
	}
}

// WithRoutes replaces the default route table.
func WithRoutes(t *route.Table) Option {
	return func(p *Panel) {
		if t != nil {
			p.routes = t
		}
	}
}

// New creates the panel. secret seeds the key that seals session cookies.
func New(backend *apiclient.Client, secret []byte, opts ...Option) (*Panel, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	s, err := newSealer(secret)
	if err != nil {
		return nil, err
	}
	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}
	assets, err := web.Handler()
	if err != nil {
		return nil, err
	}

	p := &Panel{
		backend:     backend,
		sealer:      s,
		routes:      route.Default(),
		renderer:    renderer,
		assets:      assets,
		registry:    prometheus.NewRegistry(),
		userLimiter: newFailureLimiter(maxFailures, baseLockout, maxLockout),
		ipLimiter:   newFailureLimiter(ipMaxFailures, ipBaseLockout, ipMaxLockout),
		policy:      gate.PolicyLiteral,
		loginPath:   gate.DefaultLoginPath,
		authPath:    controller.DefaultAuthPath,
		maxAge:      DefaultSessionMaxAge,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	p.metrics = newMetricsCollector(p.registry, p.alertFn)
	p.audit = newAuditLogger(p.logger, p.metrics)
	return p, nil
}

// Router returns a chi.Router with every panel route mounted.
func (p *Panel) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(SecurityHeaders)

	r.Get("/health", p.Health)
	r.Handle("/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})
	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/openapi.yaml",
		Path:    "docs",
	}, nil))
	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/openapi.yaml",
		Path:    "redoc",
	}, nil))

	r.Handle("/assets/*", http.StripPrefix("/assets", p.assets))

	r.Get(p.loginPath, p.LoginPage)
	r.Post(p.loginPath, p.Login)

	r.With(p.APIAuthMiddleware, p.CSRFMiddleware).Handle("/api/*", p.newBackendProxy())

	r.Group(func(r chi.Router) {
		r.Use(p.GateMiddleware)
		r.Use(FormLimitMiddleware)
		r.Use(p.CSRFMiddleware)
		for _, rt := range p.routes.Routes() {
			r.Get(rt.Path, p.page(rt))
		}
		r.Post("/edit", p.CreateUser)
		r.Post("/send", p.Send)
	})

	r.NotFound(p.GateMiddleware(http.HandlerFunc(p.NotFound)).ServeHTTP)

	return r
}

// Sweep drops expired login-failure records. Call it periodically.
func (p *Panel) Sweep() {
	p.userLimiter.sweep()
	p.ipLimiter.sweep()
}
