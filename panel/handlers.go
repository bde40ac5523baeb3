package panel

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmcleod/visaexpress/controller"
	"github.com/jmcleod/visaexpress/route"
	"github.com/jmcleod/visaexpress/web"
)

// maxFormBytes bounds form bodies.
const maxFormBytes = 64 << 10

// newUserFields are the edit form fields forwarded to the backend.
var newUserFields = []string{"name", "email", "username", "password"}

func (p *Panel) render(w http.ResponseWriter, r *http.Request, status int, view string, page web.Page) {
	if st := stateFromContext(r.Context()); st != nil {
		page.Username = st.username()
		page.Notifications = append(page.Notifications, st.notes.Drain()...)
	}
	if page.CSRFToken == "" {
		page.CSRFToken = ensureCSRFToken(w, r)
	}
	if err := p.renderer.Render(w, status, view, page); err != nil {
		p.logger.Error("rendering view failed", "view", view, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// LoginPage serves GET /login.
func (p *Panel) LoginPage(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "login", web.Page{Title: "Sign in"})
}

// Login serves POST /login.
func (p *Panel) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		p.render(w, r, http.StatusBadRequest, "login", web.Page{Title: "Sign in", Flash: "Invalid form submission."})
		return
	}
	if !validCSRF(r) {
		p.audit.log(AuditCSRFRejected, r)
		p.render(w, r, http.StatusForbidden, "login", web.Page{Title: "Sign in", Flash: "Your form expired. Please try again."})
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	ip := clientIP(r, p.trustedProxies)

	if blocked, retry := p.ipLimiter.check(ip); blocked {
		p.rateLimited(w, r, username, retry)
		return
	}
	if blocked, retry := p.userLimiter.check(username); blocked {
		p.rateLimited(w, r, username, retry)
		return
	}

	st := p.newRequestState(w, r)
	login := controller.NewLogin(st.store, st.client,
		controller.WithAuthPath(p.authPath),
		controller.WithLoginLogger(p.logger),
	)
	cred, err := login.Login(r.Context(), username, password)
	if err != nil {
		status := statusFor(err)
		flash := "Login is unavailable right now."
		switch {
		case errors.Is(err, controller.ErrInvalidCredentials):
			p.userLimiter.recordFailure(username)
			p.ipLimiter.recordFailure(ip)
			flash = "Invalid username or password."
		case status == http.StatusBadRequest:
			flash = "Username is required."
		}
		p.audit.logFailure(AuditLoginFailure, r, err.Error(), slog.String("username", username))
		p.render(w, r, status, "login", web.Page{Title: "Sign in", Flash: flash})
		return
	}

	p.userLimiter.recordSuccess(username)
	p.ipLimiter.recordSuccess(ip)
	p.audit.logUser(AuditLoginSuccess, r, cred.Username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (p *Panel) rateLimited(w http.ResponseWriter, r *http.Request, username string, retry time.Duration) {
	p.audit.logUser(AuditLoginRateLimited, r, username)
	w.Header().Set("Retry-After", retryAfterString(retry))
	p.render(w, r, http.StatusTooManyRequests, "login", web.Page{
		Title: "Sign in",
		Flash: "Too many failed login attempts. Try again later.",
	})
}

// page returns the handler for a gated route of the route table.
func (p *Panel) page(rt route.Route) http.HandlerFunc {
	title := strings.ToUpper(rt.View[:1]) + rt.View[1:]
	return func(w http.ResponseWriter, r *http.Request) {
		st := stateFromContext(r.Context())
		page := web.Page{Title: title, Inline: rt.Template}

		switch rt.Controller {
		case route.CtrlMain, route.CtrlDash:
			l := p.listing(st)
			_ = l.Activate(r.Context())
			page.Data = listingView{Loaded: l.Loaded(), Records: l.Records(), Raw: l.Result()}

		case route.CtrlResult:
			m, _ := p.routes.Match(r.URL.EscapedPath())
			id := m.Param("id")
			l := p.listing(st)
			view := resultView{ID: id}
			if l.Activate(r.Context()) == nil {
				view.Record, view.Found = l.Find(id)
			}
			page.Data = view

		case route.CtrlLog:
			username := st.username()
			if err := controller.NewLogout(st.store, st.client).Run(); err != nil {
				p.logger.Error("logout failed", "error", err)
			}
			clearCSRFCookie(w, r)
			p.audit.logUser(AuditLogout, r, username)
			// The page is rendered logged out.
			st.gate.Refresh()
		}

		p.render(w, r, http.StatusOK, rt.View, page)
	}
}

// CreateUser serves POST /edit.
func (p *Panel) CreateUser(w http.ResponseWriter, r *http.Request) {
	st := stateFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		p.render(w, r, http.StatusBadRequest, route.ViewEdit, web.Page{Title: "Edit", Flash: "Invalid form submission."})
		return
	}

	record := controller.Record{}
	for _, f := range newUserFields {
		if v := strings.TrimSpace(r.PostFormValue(f)); v != "" {
			record[f] = v
		}
	}

	status := http.StatusOK
	if err := p.listing(st).Add(r.Context(), record); err != nil {
		status = statusFor(err)
		p.audit.logFailure(AuditUserCreateFailed, r, err.Error(), slog.String("admin", st.username()))
	} else {
		p.audit.logUser(AuditUserCreated, r, st.username(), slog.String("name", record.String()))
	}
	p.render(w, r, status, route.ViewEdit, web.Page{Title: "Edit"})
}

// Send serves POST /send: it moves the browser to the result view of the
// submitted id.
func (p *Panel) Send(w http.ResponseWriter, r *http.Request) {
	st := stateFromContext(r.Context())
	id := strings.TrimSpace(r.PostFormValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	nav := controller.NavigatorFunc(func(path string) {
		http.Redirect(w, r, path, http.StatusSeeOther)
	})
	p.listing(st, controller.WithNavigator(nav)).Send(id)
}

// NotFound renders the notfound view. It is only reached once the gate has
// allowed the navigation.
func (p *Panel) NotFound(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusNotFound, route.ViewNotFound, web.Page{Title: "Not found", Data: r.URL.Path})
}

// Health serves GET /health.
func (p *Panel) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Backend: p.backend.BaseURL().String()})
}

func (p *Panel) listing(st *requestState, opts ...controller.ListingOption) *controller.Listing {
	base := []controller.ListingOption{
		controller.WithActivationNotice(p.activationNotice),
		controller.WithListingLogger(p.logger),
	}
	return controller.NewListing(st.client, st.notifier, append(base, opts...)...)
}
