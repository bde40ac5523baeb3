// Package session models the persisted login state of the admin panel: a
// single JSON record that either holds the current user's credential or is
// empty.
package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmcleod/visaexpress/internal/util"
	"github.com/jmcleod/visaexpress/storage"
)

// StorageKey is the storage slot the session record lives under.
const StorageKey = "globals"

// ErrEmptyUsername is returned by NewCredential for a blank username.
var ErrEmptyUsername = errors.New("username is required")

// Credential is the authenticated user's opaque authorization material.
// Authdata is already encoded for use in an Authorization header.
type Credential struct {
	Username string `json:"username,omitempty"`
	Authdata string `json:"authdata"`
}

// Session is the persisted session record. A nil CurrentUser means nobody
// is logged in.
type Session struct {
	CurrentUser *Credential `json:"currentUser,omitempty"`
}

// LoggedIn reports whether the record carries a credential. Presence is all
// that matters; an empty Authdata still counts.
func (s Session) LoggedIn() bool {
	return s.CurrentUser != nil
}

// NewCredential encodes username:password the way the backend expects it
// in the Authorization header. The username is normalized first.
func NewCredential(username, password string) (Credential, error) {
	username = util.NormalizeUsername(username)
	if username == "" {
		return Credential{}, ErrEmptyUsername
	}
	authdata := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return Credential{Username: username, Authdata: authdata}, nil
}

// Read loads the session record from store. It reports storage and decoding
// failures; callers that only need a usable record should use Load.
func Read(store storage.Store) (Session, error) {
	if store == nil {
		return Session{}, storage.ErrNotFound
	}
	data, err := store.Get(StorageKey)
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("decoding session record: %w", err)
	}
	return s, nil
}

// Load returns the session record from store, or an empty record when it is
// absent or unreadable. It never fails.
func Load(store storage.Store) Session {
	s, err := Read(store)
	if err != nil {
		return Session{}
	}
	return s
}

// Save persists s under StorageKey.
func Save(store storage.Store, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session record: %w", err)
	}
	if err := store.Set(StorageKey, data); err != nil {
		return fmt.Errorf("saving session record: %w", err)
	}
	return nil
}

// Clear removes the session record. Clearing an absent record is not an error.
func Clear(store storage.Store) error {
	if err := store.Delete(StorageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("clearing session record: %w", err)
	}
	return nil
}
