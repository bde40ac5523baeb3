// Package route holds the admin panel's client-side route table: which view
// and controller each navigable path maps to.
package route

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

// View names.
const (
	ViewUsers     = "users"
	ViewDashboard = "dashboard"
	ViewEdit      = "edit"
	ViewMail      = "mail"
	ViewLogout    = "logout"
	ViewResult    = "result"
	ViewNotFound  = "notfound"
)

// Controller names.
const (
	CtrlMain     = "MainCtrl"
	CtrlDash     = "DashCtrl"
	CtrlEditDash = "EditDashCtrl"
	CtrlLog      = "LogCtrl"
	CtrlResult   = "ResultCtrl"
)

// Route maps a path pattern to a view and optional controller. Template is
// inline view content used instead of a named view template.
type Route struct {
	Path       string
	View       string
	Controller string
	Template   string
}

// HasController reports whether a controller is bound to the route.
func (r Route) HasController() bool {
	return r.Controller != ""
}

// Match is a matched route and its path parameters.
type Match struct {
	Route  Route
	Params map[string]string
}

// Param returns the named path parameter, or "".
func (m Match) Param(name string) string {
	return m.Params[name]
}

// Table is an ordered, immutable route table. Paths are matched by a chi
// router holding the table's patterns, so static segments take precedence
// over {name} parameters the same way they do in the panel's HTTP router.
type Table struct {
	routes    []Route
	byPattern map[string]Route
	mux       *chi.Mux
}

// New builds a table from routes. A later route with the same pattern as an
// earlier one is ignored.
func New(routes ...Route) *Table {
	t := &Table{
		routes:    make([]Route, len(routes)),
		byPattern: make(map[string]Route, len(routes)),
		mux:       chi.NewRouter(),
	}
	copy(t.routes, routes)
	for _, r := range routes {
		if _, dup := t.byPattern[r.Path]; dup {
			continue
		}
		t.byPattern[r.Path] = r
		t.mux.Get(r.Path, func(http.ResponseWriter, *http.Request) {})
	}
	return t
}

// Default returns the panel's route table.
func Default() *Table {
	return New(
		Route{Path: "/", View: ViewUsers, Controller: CtrlMain},
		Route{Path: "/dashboard", View: ViewDashboard, Controller: CtrlDash},
		Route{Path: "/edit", View: ViewEdit, Controller: CtrlEditDash},
		Route{Path: "/mail", View: ViewMail},
		Route{Path: "/logout", View: ViewLogout, Controller: CtrlLog, Template: "Logging out"},
		Route{Path: "/result/{id}", View: ViewResult, Controller: CtrlResult},
	)
}

// Routes returns a copy of the table's routes in order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Match finds the route for an escaped URL path. Query and fragment are
// ignored, as is a trailing slash except on the root. Parameter values are
// returned unescaped.
func (t *Table) Match(path string) (Match, bool) {
	rctx := chi.NewRouteContext()
	pattern := t.mux.Find(rctx, http.MethodGet, cleanPath(path))
	r, ok := t.byPattern[pattern]
	if !ok {
		return Match{}, false
	}

	var params map[string]string
	for i, key := range rctx.URLParams.Keys {
		if key == "" || key == "*" {
			continue
		}
		v := rctx.URLParams.Values[i]
		if unescaped, err := url.PathUnescape(v); err == nil {
			v = unescaped
		}
		if params == nil {
			params = make(map[string]string)
		}
		params[key] = v
	}
	return Match{Route: r, Params: params}, true
}

// Resolve expands a pattern with params, e.g. "/result/{id}" with id=7
// gives "/result/7". Each value is escaped into exactly one path segment.
func Resolve(pattern string, params map[string]string) string {
	segs := strings.Split(pattern, "/")
	for i, s := range segs {
		if len(s) > 2 && s[0] == '{' && s[len(s)-1] == '}' {
			segs[i] = escapeSegment(params[s[1:len(s)-1]])
		}
	}
	return strings.Join(segs, "/")
}

// escapeSegment path-escapes v. Dot segments are escaped as well since
// clients collapse a literal "." or ".." while following a redirect.
func escapeSegment(v string) string {
	e := url.PathEscape(v)
	if e == "." || e == ".." {
		return strings.ReplaceAll(e, ".", "%2E")
	}
	return e
}

func cleanPath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
