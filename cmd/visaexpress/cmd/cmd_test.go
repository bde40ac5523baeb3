package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/visaexpress/config"
	"github.com/jmcleod/visaexpress/session"
	bboltstorage "github.com/jmcleod/visaexpress/storage/bbolt"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// adminAuth is "Basic" followed by base64("admin:secret").
const adminAuth = "BasicYWRtaW46c2VjcmV0"

type fakeBackend struct {
	mu       sync.Mutex
	created  []map[string]any
	failList bool
}

func (b *fakeBackend) createdUsers() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.created...)
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != adminAuth {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/authAdmin":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && r.URL.Path == "/api/adminList":
		b.mu.Lock()
		fail := b.failList
		b.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":"u1","name":"Ada","email":"ada@example.com"}]`)
	case r.Method == http.MethodPost && r.URL.Path == "/api/newuser":
		var rec map[string]any
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.created = append(b.created, rec)
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type cli struct {
	t       *testing.T
	backend string
	dataDir string
}

func newCLI(t *testing.T, h http.Handler) *cli {
	t.Helper()
	t.Setenv("VISAEXPRESS_CONFIG", "")
	t.Setenv("PORT", "")
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &cli{t: t, backend: srv.URL, dataDir: t.TempDir()}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--data-dir", c.dataDir, "--backend", c.backend, "--log-level", "error"}, args...))
	err := root.ExecuteContext(c.t.Context())
	return out.String(), err
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCLI_SessionFlow(t *testing.T) {
	backend := &fakeBackend{}
	c := newCLI(t, backend)

	out, err := c.run("", "session")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in.")

	out, err = c.run("", "login", "-u", "admin", "-p", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as admin")

	out, err = c.run("", "session", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as admin")
	assert.NotContains(t, out, "YWRtaW46c2VjcmV0")

	out, err = c.run("", "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "u1")
	assert.Contains(t, out, "Ada")

	out, err = c.run("", "open", "/dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "1 registered users")

	out, err = c.run("", "users", "send", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "ada@example.com")

	out, err = c.run("", "users", "send", "nobody")
	require.NoError(t, err)
	assert.Contains(t, out, "No user with id nobody")

	out, err = c.run("", "users", "add", "--name", "Bob", "--email", "bob@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Success")
	created := backend.createdUsers()
	require.Len(t, created, 1)
	assert.Equal(t, "Bob", created[0]["name"])
	assert.Equal(t, "bob@example.com", created[0]["email"])
	assert.NotContains(t, created[0], "password")

	out, err = c.run("", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out.")

	_, err = c.run("", "open", "/dashboard")
	var redirected *ErrRedirected
	require.ErrorAs(t, err, &redirected)
	assert.Equal(t, "/dashboard", redirected.Target)
	assert.Equal(t, "/login", redirected.Location)
}

func TestCLI_SessionRecordIsSealed(t *testing.T) {
	c := newCLI(t, &fakeBackend{})

	_, err := c.run("", "login", "-u", "admin", "-p", "secret")
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(c.dataDir, sessionKeyFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.EqualValues(t, 32, info.Size())

	db, err := bboltstorage.NewStoreFromFile(filepath.Join(c.dataDir, sessionFile), nil)
	require.NoError(t, err)
	raw, err := db.Get(session.StorageKey)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	assert.NotContains(t, string(raw), "YWRtaW46c2VjcmV0")
	assert.NotContains(t, string(raw), "authdata")

	// A different key cannot open the record.
	other := bytes.Repeat([]byte{7}, 32)
	require.NoError(t, os.WriteFile(filepath.Join(c.dataDir, sessionKeyFile), other, 0o600))
	out, err := c.run("", "session")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in.")
}

func TestCLI_LoginPrompts(t *testing.T) {
	c := newCLI(t, &fakeBackend{})

	out, err := c.run("admin\nsecret\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Username: ")
	assert.Contains(t, out, "Password: ")
	assert.Contains(t, out, "Signed in as admin")
}

func TestCLI_LoginRejected(t *testing.T) {
	c := newCLI(t, &fakeBackend{})

	_, err := c.run("", "login", "-u", "admin", "-p", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed")

	out, err := c.run("", "session")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in.")
}

func TestCLI_LogoutRoute(t *testing.T) {
	c := newCLI(t, &fakeBackend{})

	_, err := c.run("", "login", "-u", "admin", "-p", "secret")
	require.NoError(t, err)

	out, err := c.run("", "open", "/logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logging out")

	out, err = c.run("", "session")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in.")
}

func TestCLI_ListFailureReported(t *testing.T) {
	backend := &fakeBackend{failList: true}
	c := newCLI(t, backend)

	_, err := c.run("", "login", "-u", "admin", "-p", "secret")
	require.NoError(t, err)

	out, err := c.run("", "users", "list")
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "Error Getting Data")
}

func TestCLI_AddRequiresSession(t *testing.T) {
	backend := &fakeBackend{}
	c := newCLI(t, backend)

	_, err := c.run("", "users", "add", "--name", "Eve")
	var redirected *ErrRedirected
	require.ErrorAs(t, err, &redirected)
	assert.Equal(t, "/edit", redirected.Target)
	assert.Empty(t, backend.createdUsers())
}

func TestCLI_ExemptPathsFromConfig(t *testing.T) {
	c := newCLI(t, &fakeBackend{})
	cfgPath := filepath.Join(t.TempDir(), "visaexpress.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("gate:\n  policy: exempt-login\n  exempt_paths: [/mail]\n"), 0o600))

	out, err := c.run("", "--config", cfgPath, "open", "/mail")
	require.NoError(t, err)
	assert.Contains(t, out, "Mail")

	_, err = c.run("", "--config", cfgPath, "open", "/dashboard")
	var redirected *ErrRedirected
	require.ErrorAs(t, err, &redirected)
	assert.Equal(t, "/login", redirected.Location)
}

func TestCLI_Version(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "visaexpress dev\n", out.String())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "parseLevel(%q)", in)
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "path", "/edit")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "/edit", rec["path"])
}

func TestColorHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "debug"}, &buf)

	logger.With("component", "gate").WithGroup("req").Debug("checked", "path", "/")

	out := buf.String()
	assert.Contains(t, out, "DBG ")
	assert.Contains(t, out, "checked")
	assert.Contains(t, out, " component=gate")
	assert.NotContains(t, out, "req.component")
	assert.Contains(t, out, "req.path=/")
}

func TestErrRedirected(t *testing.T) {
	err := error(&ErrRedirected{Target: "/mail", Location: "/login"})
	assert.Contains(t, err.Error(), "/mail redirected to /login")
	assert.False(t, errors.Is(err, errReported))
}
