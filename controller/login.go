package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmcleod/visaexpress/apiclient"
	"github.com/jmcleod/visaexpress/gate"
	"github.com/jmcleod/visaexpress/session"
	"github.com/jmcleod/visaexpress/storage"
)

// DefaultAuthPath is the backend endpoint that verifies admin credentials.
const DefaultAuthPath = "/api/authAdmin"

// ErrInvalidCredentials is returned when the backend rejects a login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// LoginOption configures a Login.
type LoginOption func(*Login)

// WithAuthPath sets the verification endpoint. An empty path disables
// verification and every well-formed credential is accepted.
func WithAuthPath(path string) LoginOption {
	return func(l *Login) {
		l.authPath = path
	}
}

// WithLoginLogger sets the structured logger.
func WithLoginLogger(logger *slog.Logger) LoginOption {
	return func(l *Login) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Login authenticates an admin and persists the session record.
type Login struct {
	store    storage.Store
	client   *apiclient.Client
	authPath string
	logger   *slog.Logger
}

// NewLogin creates a login controller. client may be nil, which disables
// verification.
func NewLogin(store storage.Store, client *apiclient.Client, opts ...LoginOption) *Login {
	l := &Login{
		store:    store,
		client:   client,
		authPath: DefaultAuthPath,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "login")
	return l
}

// Login builds the credential for username and password, verifies it with
// the backend when configured, and saves it as the current user.
func (l *Login) Login(ctx context.Context, username, password string) (session.Credential, error) {
	cred, err := session.NewCredential(username, password)
	if err != nil {
		return session.Credential{}, err
	}

	if err := l.verify(ctx, cred); err != nil {
		return session.Credential{}, err
	}

	if err := session.Save(l.store, session.Session{CurrentUser: &cred}); err != nil {
		return session.Credential{}, err
	}
	l.logger.Info("admin logged in", "username", cred.Username)
	return cred, nil
}

func (l *Login) verify(ctx context.Context, cred session.Credential) error {
	if l.client == nil || l.authPath == "" {
		return nil
	}
	req, err := l.client.NewRequest(ctx, http.MethodPost, l.authPath, nil)
	if err != nil {
		return err
	}
	req.Header.Set(gate.AuthorizationHeader, gate.AuthorizationValue(cred))

	err = l.client.Do(req, nil)
	var se *apiclient.StatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("verifying credentials: %w", err)
	}
	return nil
}

// Logout clears the session record and the client's Authorization default.
type Logout struct {
	store  storage.Store
	client *apiclient.Client
}

// NewLogout creates a logout controller. client may be nil.
func NewLogout(store storage.Store, client *apiclient.Client) *Logout {
	return &Logout{store: store, client: client}
}

// Run logs the current user out.
func (l *Logout) Run() error {
	if l.client != nil {
		l.client.Defaults().Del(gate.AuthorizationHeader)
	}
	return session.Clear(l.store)
}
