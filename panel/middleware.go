package panel

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmcleod/visaexpress/apiclient"
	"github.com/jmcleod/visaexpress/gate"
	"github.com/jmcleod/visaexpress/notify"
)

type contextKey int

const stateKey contextKey = iota

// requestState is the per-request session context: the cookie-backed
// store, a clone of the backend client carrying this browser's
// Authorization default, the gate that installed it, and the notifications
// raised while handling the request.
type requestState struct {
	store    *cookieStore
	client   *apiclient.Client
	gate     *gate.Gate
	notes    *notify.Queue
	notifier notify.Notifier
}

// username returns the logged-in user's name, or "".
func (s *requestState) username() string {
	if u := s.gate.Session().CurrentUser; u != nil {
		if u.Username != "" {
			return u.Username
		}
		return "admin"
	}
	return ""
}

// newRequestState builds and initializes the session context for r.
func (p *Panel) newRequestState(w http.ResponseWriter, r *http.Request) *requestState {
	store := newCookieStore(w, r, p.sealer, p.maxAge)
	client := p.backend.Clone(apiclient.WithObserver(p.metrics.observeBackend))
	g := gate.New(store, client,
		gate.WithLoginPath(p.loginPath),
		gate.WithPolicy(p.policy),
		gate.WithExemptPaths(p.exemptPaths...),
		gate.WithLogger(p.logger),
		gate.WithObserver(p.metrics.observeDecision),
	)
	g.Initialize()

	notes := &notify.Queue{}
	return &requestState{
		store:    store,
		client:   client,
		gate:     g,
		notes:    notes,
		notifier: notify.Multi(notes, notify.LogNotifier{Logger: p.logger.With("component", "notify")}),
	}
}

// FormLimitMiddleware caps and parses the body of mutating requests so the
// CSRF check and the handler read the same bounded form.
func FormLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		if err := r.ParseForm(); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "form too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid form submission")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GateMiddleware checks every navigation against the session before the
// page handler runs. Logged-out navigations are answered with 303 See Other
// to the login path so the blocked page never enters browser history.
func (p *Panel) GateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := p.newRequestState(w, r)
		d := st.gate.Check(gate.Intent{TargetPath: r.URL.Path})
		if d.IsRedirect() {
			p.audit.log(AuditNavigationRedirected, r, slog.String("target", r.URL.Path))
			http.Redirect(w, r, d.Location, http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), stateKey, st)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// APIAuthMiddleware is the gate for proxied backend calls: a logged-out
// caller gets a JSON 401 instead of a redirect.
func (p *Panel) APIAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := p.newRequestState(w, r)
		if !st.gate.LoggedIn() {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), stateKey, st)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func stateFromContext(ctx context.Context) *requestState {
	st, _ := ctx.Value(stateKey).(*requestState)
	return st
}

func clearCookie(w http.ResponseWriter, r *http.Request, name string, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

func requestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Forwarded")), "proto=https")
}
