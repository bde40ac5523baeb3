package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/visaexpress/notify"
)

func TestAnchorSuppressDefault(t *testing.T) {
	tests := []struct {
		name     string
		anchor   Anchor
		suppress bool
	}{
		{"hash without action", Anchor{Href: "#"}, true},
		{"empty href", Anchor{Href: ""}, true},
		{"bound action", Anchor{Href: "/dashboard", Action: "toggle-nav"}, true},
		{"real link", Anchor{Href: "/dashboard"}, false},
		{"absolute link", Anchor{Href: "https://example.com/"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.suppress, tc.anchor.SuppressDefault())
		})
	}
}

func TestAnchorHTML(t *testing.T) {
	h, err := Anchor{Href: "#", Label: "Menu"}.HTML()
	require.NoError(t, err)
	assert.Equal(t, `<a href="#" data-suppress="true">Menu</a>`, string(h))

	h, err = Anchor{Href: "/mail", Label: "Mail", Class: "nav"}.HTML()
	require.NoError(t, err)
	assert.Equal(t, `<a href="/mail" class="nav">Mail</a>`, string(h))

	h, err = Anchor{Href: "#", Label: "x", Action: "dismiss"}.HTML()
	require.NoError(t, err)
	assert.Contains(t, string(h), `data-suppress="true"`)
	assert.Contains(t, string(h), `data-action="dismiss"`)
}

func TestAnchorEscapes(t *testing.T) {
	h, err := Anchor{Href: "javascript:alert(1)", Label: "<b>hi</b>"}.HTML()
	require.NoError(t, err)
	assert.NotContains(t, string(h), "javascript:")
	assert.NotContains(t, string(h), "<b>")
}

func TestRendererViews(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	for _, v := range []string{"login", "users", "dashboard", "edit", "mail", "logout", "result", "notfound"} {
		assert.True(t, r.Has(v), "view %s", v)
	}
	assert.False(t, r.Has("base"))
}

type listingData struct {
	Loaded  bool
	Records []map[string]any
	Raw     json.RawMessage
}

func TestRenderLogin(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, r.Render(rec, http.StatusOK, "login", Page{Title: "Sign in", CSRFToken: "tok"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `action="/login"`)
	assert.Contains(t, body, `value="tok"`)
	assert.Contains(t, body, `/assets/panel.js`)
	assert.NotContains(t, body, "data-nav")
}

func TestRenderNavigationAndToasts(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = r.Render(rec, http.StatusOK, "mail", Page{
		Title:         "Mail",
		Username:      "admin",
		Notifications: []notify.Notification{notify.New(notify.LevelError, "", "Error Getting Data")},
	})
	require.NoError(t, err)

	body := rec.Body.String()
	assert.Contains(t, body, `<a href="#" data-suppress="true" data-action="toggle-nav">Menu</a>`)
	assert.Contains(t, body, `<a href="/dashboard">Dashboard</a>`)
	assert.Contains(t, body, "Error Getting Data")
	assert.Contains(t, body, `class="toast error"`)
}

func TestRenderRawListing(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = r.Render(rec, http.StatusOK, "users", Page{
		Title: "Users",
		Data:  listingData{Loaded: true, Raw: json.RawMessage(`{"count":3}`)},
	})
	require.NoError(t, err)
	assert.Contains(t, rec.Body.String(), "&#34;count&#34;: 3")
}

func TestRenderUnknownView(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	assert.Error(t, r.Render(rec, http.StatusOK, "missing", Page{}))
}

func TestRenderNotFound(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, r.Render(rec, http.StatusNotFound, "notfound", Page{Data: "/nowhere"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "/nowhere")
}

func TestHandlerServesAssets(t *testing.T) {
	h, err := Handler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/panel.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "a[data-suppress]")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/missing.js", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
