package gate

import (
	"errors"
	"log/slog"

	"github.com/jmcleod/visaexpress/apiclient"
	"github.com/jmcleod/visaexpress/session"
	"github.com/jmcleod/visaexpress/storage"
)

const (
	// DefaultLoginPath is where logged-out navigations are sent.
	DefaultLoginPath = "/login"

	// AuthorizationHeader is the default header installed on the client.
	AuthorizationHeader = "Authorization"
	// AuthorizationScheme prefixes the credential's authdata.
	AuthorizationScheme = "Basic"
)

// ObserverFunc is told about every decision Check makes.
type ObserverFunc func(Intent, Decision)

// Option configures a Gate.
type Option func(*Gate)

// WithLoginPath sets the redirect target for logged-out navigations. The
// login path is always exempt.
func WithLoginPath(path string) Option {
	return func(g *Gate) {
		if path != "" {
			g.loginPath = path
		}
	}
}

// WithExemptPaths adds paths that PolicyExemptLogin lets through while
// logged out.
func WithExemptPaths(paths ...string) Option {
	return func(g *Gate) {
		for _, p := range paths {
			g.exempt[p] = struct{}{}
		}
	}
}

// WithPolicy selects the policy for logged-out navigations.
func WithPolicy(p Policy) Option {
	return func(g *Gate) {
		g.policy = p
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithObserver registers fn to be told about every decision.
func WithObserver(fn ObserverFunc) Option {
	return func(g *Gate) {
		g.observer = fn
	}
}

// Gate decides whether navigations may proceed based on the persisted
// session, and keeps the outbound client's Authorization default in sync
// with it.
type Gate struct {
	store     storage.Store
	client    *apiclient.Client
	loginPath string
	exempt    map[string]struct{}
	policy    Policy
	logger    *slog.Logger
	observer  ObserverFunc

	session session.Session
}

// New creates a Gate reading the session from store. client may be nil when
// no outbound pipeline needs the Authorization default.
func New(store storage.Store, client *apiclient.Client, opts ...Option) *Gate {
	g := &Gate{
		store:     store,
		client:    client,
		loginPath: DefaultLoginPath,
		exempt:    make(map[string]struct{}),
		policy:    PolicyLiteral,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.exempt[g.loginPath] = struct{}{}
	g.logger = g.logger.With("component", "gate")
	return g
}

// AuthorizationValue returns the Authorization header value for cred.
func AuthorizationValue(cred session.Credential) string {
	return AuthorizationScheme + cred.Authdata
}

// Initialize loads the session record and installs or removes the
// Authorization default on the client. A missing or unreadable record
// leaves the gate logged out; Initialize never fails.
func (g *Gate) Initialize() {
	s, err := session.Read(g.store)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			g.logger.Debug("session record unreadable, treating as logged out", "error", err)
		}
		s = session.Session{}
	}
	g.session = s

	if g.client == nil {
		return
	}
	if s.CurrentUser != nil {
		g.client.Defaults().Set(AuthorizationHeader, AuthorizationValue(*s.CurrentUser))
		return
	}
	g.client.Defaults().Del(AuthorizationHeader)
}

// Refresh re-reads the session record. The login and logout flows call it so
// the next Check sees their change.
func (g *Gate) Refresh() {
	g.Initialize()
}

// Check decides whether the navigation described by intent may proceed.
func (g *Gate) Check(intent Intent) Decision {
	target := intent.TargetPath
	if target == "" {
		target = "/"
	}
	_, exempt := g.exempt[target]
	restricted := !exempt
	loggedIn := g.session.LoggedIn()

	var d Decision
	switch {
	case loggedIn:
		d = Allow()
	case g.policy == PolicyExemptLogin && !restricted:
		d = Allow()
	default:
		d = RedirectTo(g.loginPath)
	}

	if d.IsRedirect() {
		g.logger.Debug("navigation redirected", "target", target, "location", d.Location, "restricted", restricted)
	}
	if g.observer != nil {
		g.observer(Intent{TargetPath: target}, d)
	}
	return d
}

// Session returns the record loaded by the last Initialize.
func (g *Gate) Session() session.Session {
	return g.session
}

// LoggedIn reports whether the loaded record carries a credential.
func (g *Gate) LoggedIn() bool {
	return g.session.LoggedIn()
}

// LoginPath returns the redirect target for logged-out navigations.
func (g *Gate) LoginPath() string {
	return g.loginPath
}

// Policy returns the configured policy.
func (g *Gate) Policy() Policy {
	return g.policy
}
