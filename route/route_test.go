package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	tbl := Default()

	tests := []struct {
		path       string
		view       string
		controller string
	}{
		{"/", ViewUsers, CtrlMain},
		{"/dashboard", ViewDashboard, CtrlDash},
		{"/edit", ViewEdit, CtrlEditDash},
		{"/mail", ViewMail, ""},
		{"/logout", ViewLogout, CtrlLog},
		{"/result/abc", ViewResult, CtrlResult},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			m, ok := tbl.Match(tc.path)
			require.True(t, ok)
			assert.Equal(t, tc.view, m.Route.View)
			assert.Equal(t, tc.controller, m.Route.Controller)
		})
	}
}

func TestLogoutInlineTemplate(t *testing.T) {
	m, ok := Default().Match("/logout")
	require.True(t, ok)
	assert.Equal(t, "Logging out", m.Route.Template)
}

func TestMatchParams(t *testing.T) {
	m, ok := Default().Match("/result/42?tab=1")
	require.True(t, ok)
	assert.Equal(t, "42", m.Param("id"))
	assert.Empty(t, m.Param("missing"))
}

func TestMatchTrailingSlash(t *testing.T) {
	m, ok := Default().Match("/dashboard/")
	require.True(t, ok)
	assert.Equal(t, ViewDashboard, m.Route.View)
	assert.Nil(t, m.Params)
}

func TestNoMatch(t *testing.T) {
	tbl := Default()
	for _, p := range []string{"/result", "/result/1/2", "/users", "/login", "/dashboardx"} {
		_, ok := tbl.Match(p)
		assert.False(t, ok, "path %s", p)
	}
}

func TestMailHasNoController(t *testing.T) {
	m, ok := Default().Match("/mail")
	require.True(t, ok)
	assert.False(t, m.Route.HasController())
}

func TestRoutesIsCopy(t *testing.T) {
	tbl := Default()
	rs := tbl.Routes()
	require.Len(t, rs, 6)
	rs[0].View = "changed"
	assert.Equal(t, ViewUsers, tbl.Routes()[0].View)
}

func TestStaticSegmentBeatsParam(t *testing.T) {
	tbl := New(
		Route{Path: "/result/{id}", View: ViewResult},
		Route{Path: "/result/latest", View: "latest"},
	)
	m, ok := tbl.Match("/result/latest")
	require.True(t, ok)
	assert.Equal(t, "latest", m.Route.View)

	m, ok = tbl.Match("/result/7")
	require.True(t, ok)
	assert.Equal(t, ViewResult, m.Route.View)
	assert.Equal(t, "7", m.Param("id"))
}

func TestDuplicatePatternKeepsFirst(t *testing.T) {
	tbl := New(
		Route{Path: "/mail", View: "first"},
		Route{Path: "/mail", View: "second"},
	)
	m, ok := tbl.Match("/mail")
	require.True(t, ok)
	assert.Equal(t, "first", m.Route.View)
	assert.Len(t, tbl.Routes(), 2)
}

func TestMatchUnescapesParams(t *testing.T) {
	tbl := Default()
	tests := map[string]string{
		"/result/a%20b":       "a b",
		"/result/x%3Fy":       "x?y",
		"/result/..%2Flogout": "../logout",
		"/result/50%25":       "50%",
		"/result/%2E%2E":      "..",
	}
	for path, want := range tests {
		m, ok := tbl.Match(path)
		require.True(t, ok, "path %s", path)
		assert.Equal(t, ViewResult, m.Route.View, "path %s", path)
		assert.Equal(t, want, m.Param("id"), "path %s", path)
	}
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "/result/7", Resolve("/result/{id}", map[string]string{"id": "7"}))
	assert.Equal(t, "/", Resolve("/", nil))
}

func TestResolveEscapesParams(t *testing.T) {
	tests := map[string]string{
		"a b":       "/result/a%20b",
		"x?y":       "/result/x%3Fy",
		"../logout": "/result/..%2Flogout",
		"a#b":       "/result/a%23b",
		"50%":       "/result/50%25",
		"..":        "/result/%2E%2E",
		".":         "/result/%2E",
	}
	for id, want := range tests {
		assert.Equal(t, want, Resolve("/result/{id}", map[string]string{"id": id}), "id %q", id)
	}
}

func TestResolveMatchRoundTrip(t *testing.T) {
	tbl := Default()
	for _, id := range []string{"42", "a b", "x?y", "../logout", "a/b/c", "..", "ü", "50%"} {
		path := Resolve("/result/{id}", map[string]string{"id": id})
		m, ok := tbl.Match(path)
		require.True(t, ok, "id %q resolved to %s", id, path)
		assert.Equal(t, CtrlResult, m.Route.Controller, "id %q", id)
		assert.Equal(t, id, m.Param("id"))
	}
}
