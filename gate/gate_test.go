package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/visaexpress/apiclient"
	"github.com/jmcleod/visaexpress/session"
	"github.com/jmcleod/visaexpress/storage/memory"
)

var allPaths = []string{"/", "/dashboard", "/edit", "/mail", "/logout", "/result/42", "/login", "/nowhere"}

func newClient(t *testing.T) *apiclient.Client {
	t.Helper()
	c, err := apiclient.New("http://backend.test")
	require.NoError(t, err)
	return c
}

func storeWith(t *testing.T, raw string) *memory.Store {
	t.Helper()
	s := memory.NewStore()
	if raw != "" {
		require.NoError(t, s.Set(session.StorageKey, []byte(raw)))
	}
	return s
}

func TestLoggedOutRedirectsEveryPath(t *testing.T) {
	g := New(storeWith(t, ""), newClient(t))
	g.Initialize()
	require.False(t, g.LoggedIn())

	for _, p := range allPaths {
		d := g.Check(Intent{TargetPath: p})
		assert.Equal(t, RedirectTo("/login"), d, "path %s", p)
	}
}

func TestLoggedInAllowsEveryPath(t *testing.T) {
	g := New(storeWith(t, `{"currentUser":{"username":"admin","authdata":"abc123"}}`), newClient(t))
	g.Initialize()
	require.True(t, g.LoggedIn())

	for _, p := range allPaths {
		assert.Equal(t, Allow(), g.Check(Intent{TargetPath: p}), "path %s", p)
	}
}

func TestEmptyRecordRedirectsDashboard(t *testing.T) {
	g := New(storeWith(t, `{}`), newClient(t))
	g.Initialize()

	d := g.Check(Intent{TargetPath: "/dashboard"})
	assert.True(t, d.IsRedirect())
	assert.Equal(t, "/login", d.Location)
}

func TestInitializeSetsLiteralAuthorization(t *testing.T) {
	client := newClient(t)
	g := New(storeWith(t, `{"currentUser":{"authdata":"abc123"}}`), client)
	g.Initialize()

	assert.Equal(t, "Basicabc123", client.Defaults().Get("Authorization"))
}

func TestInitializeRemovesStaleAuthorization(t *testing.T) {
	client := newClient(t)
	client.Defaults().Set("Authorization", "Basicstale")

	g := New(storeWith(t, ""), client)
	g.Initialize()

	assert.Empty(t, client.Defaults().Get("Authorization"))
}

func TestMalformedRecordIsLoggedOut(t *testing.T) {
	for _, raw := range []string{"not json", `{"currentUser":`, `[1,2,3]`, `"globals"`} {
		client := newClient(t)
		g := New(storeWith(t, raw), client)
		assert.NotPanics(t, g.Initialize, "record %q", raw)
		assert.False(t, g.LoggedIn(), "record %q", raw)
		assert.Empty(t, client.Defaults().Get("Authorization"))
		assert.True(t, g.Check(Intent{TargetPath: "/"}).IsRedirect())
	}
}

func TestNilStoreAndClient(t *testing.T) {
	g := New(nil, nil)
	assert.NotPanics(t, g.Initialize)
	assert.True(t, g.Check(Intent{TargetPath: "/mail"}).IsRedirect())
}

func TestExemptLoginPolicy(t *testing.T) {
	g := New(storeWith(t, ""), newClient(t), WithPolicy(PolicyExemptLogin))
	g.Initialize()

	assert.Equal(t, Allow(), g.Check(Intent{TargetPath: "/login"}))
	assert.Equal(t, RedirectTo("/login"), g.Check(Intent{TargetPath: "/dashboard"}))
}

func TestExemptPathsAndLoginPath(t *testing.T) {
	g := New(storeWith(t, ""), nil,
		WithPolicy(PolicyExemptLogin),
		WithLoginPath("/signin"),
		WithExemptPaths("/health"),
	)
	g.Initialize()

	assert.Equal(t, "/signin", g.LoginPath())
	assert.True(t, g.Check(Intent{TargetPath: "/signin"}).Allowed())
	assert.True(t, g.Check(Intent{TargetPath: "/health"}).Allowed())
	assert.Equal(t, RedirectTo("/signin"), g.Check(Intent{TargetPath: "/login"}))
}

func TestRefreshSeesLogin(t *testing.T) {
	store := storeWith(t, "")
	client := newClient(t)
	g := New(store, client)
	g.Initialize()
	require.False(t, g.LoggedIn())

	cred, err := session.NewCredential("admin", "hunter2")
	require.NoError(t, err)
	require.NoError(t, session.Save(store, session.Session{CurrentUser: &cred}))

	g.Refresh()
	assert.True(t, g.LoggedIn())
	assert.Equal(t, "admin", g.Session().CurrentUser.Username)
	assert.Equal(t, AuthorizationValue(cred), client.Defaults().Get("Authorization"))
	assert.True(t, g.Check(Intent{TargetPath: "/dashboard"}).Allowed())

	require.NoError(t, session.Clear(store))
	g.Refresh()
	assert.False(t, g.LoggedIn())
	assert.Empty(t, client.Defaults().Get("Authorization"))
}

func TestObserverSeesDecisions(t *testing.T) {
	var got []Decision
	var targets []string
	g := New(storeWith(t, ""), nil, WithObserver(func(i Intent, d Decision) {
		targets = append(targets, i.TargetPath)
		got = append(got, d)
	}))
	g.Initialize()

	g.Check(Intent{TargetPath: ""})
	g.Check(Intent{TargetPath: "/edit"})

	assert.Equal(t, []string{"/", "/edit"}, targets)
	assert.Len(t, got, 2)
	assert.True(t, got[1].IsRedirect())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyLiteral, p)

	p, err = ParsePolicy("Exempt-Login")
	require.NoError(t, err)
	assert.Equal(t, PolicyExemptLogin, p)
	assert.Equal(t, "exempt-login", p.String())

	_, err = ParsePolicy("open")
	assert.Error(t, err)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "allow", Allow().String())
	assert.Equal(t, "redirect(/login)", RedirectTo("/login").String())
}
