package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/jmcleod/visaexpress/apiclient"
	"github.com/jmcleod/visaexpress/notify"
	"github.com/jmcleod/visaexpress/route"
)

// Backend endpoints used by the listing controller.
const (
	ListPath = "/api/adminList"
	AddPath  = "/api/newuser"
)

// Notification text shown by the listing controller.
const (
	TitleListing = "Listing Management"
	MsgSuccess   = "Success"
	MsgGetError  = "Error Getting Data"
	MsgAddError  = "Error Adding Data"
)

const resultPattern = "/result/{id}"

// Navigator moves the user to path.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Record is one entry of the listing payload.
type Record map[string]any

// ID returns the record's identifier from its "id", "_id" or "ID" field.
func (r Record) ID() string {
	for _, k := range []string{"id", "_id", "ID"} {
		switch v := r[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// String returns the record's "name", "username" or "email", whichever is
// set first.
func (r Record) String() string {
	for _, k := range []string{"name", "username", "email"} {
		if v, ok := r[k].(string); ok && v != "" {
			return v
		}
	}
	return r.ID()
}

// ListingOption configures a Listing.
type ListingOption func(*Listing)

// WithActivationNotice makes Activate announce a successful load.
func WithActivationNotice(enabled bool) ListingOption {
	return func(l *Listing) {
		l.activationNotice = enabled
	}
}

// WithNavigator sets where Send moves the user.
func WithNavigator(n Navigator) ListingOption {
	return func(l *Listing) {
		l.navigator = n
	}
}

// WithListingLogger sets the structured logger.
func WithListingLogger(logger *slog.Logger) ListingOption {
	return func(l *Listing) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Listing backs the users, dashboard, edit and result views.
type Listing struct {
	client           *apiclient.Client
	notifier         notify.Notifier
	navigator        Navigator
	activationNotice bool
	logger           *slog.Logger

	mu     sync.RWMutex
	result json.RawMessage
	loaded bool
}

// NewListing creates a listing controller. It does not contact the backend
// until Activate.
func NewListing(client *apiclient.Client, notifier notify.Notifier, opts ...ListingOption) *Listing {
	l := &Listing{
		client:   client,
		notifier: notifier,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "listing")
	return l
}

// Activate fetches the admin list. On failure the result stays unset and a
// single error notification is sent.
func (l *Listing) Activate(ctx context.Context) error {
	var raw json.RawMessage
	if err := l.client.Get(ctx, ListPath, &raw); err != nil {
		l.logger.Warn("loading listing failed", "error", err)
		l.mu.Lock()
		l.result, l.loaded = nil, false
		l.mu.Unlock()
		notify.Error(l.notifier, MsgGetError)
		return fmt.Errorf("loading listing: %w", err)
	}

	l.mu.Lock()
	l.result, l.loaded = raw, true
	l.mu.Unlock()

	if l.activationNotice {
		notify.Success(l.notifier, TitleListing, MsgSuccess)
	}
	return nil
}

// Loaded reports whether the last Activate succeeded.
func (l *Listing) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// Result returns the raw listing payload, or nil when not loaded.
func (l *Listing) Result() json.RawMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.result == nil {
		return nil
	}
	out := make(json.RawMessage, len(l.result))
	copy(out, l.result)
	return out
}

// Records decodes the payload for display. It accepts an array of objects
// or an object holding one under "users" or "data". Any other shape yields
// nil; the raw payload is still available from Result.
func (l *Listing) Records() []Record {
	raw := l.Result()
	if raw == nil {
		return nil
	}
	var list []Record
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil
	}
	for _, k := range []string{"users", "data"} {
		inner, ok := wrapped[k]
		if !ok {
			continue
		}
		if err := json.Unmarshal(inner, &list); err == nil {
			return list
		}
	}
	return nil
}

// Find returns the record whose ID is id.
func (l *Listing) Find(id string) (Record, bool) {
	for _, r := range l.Records() {
		if r.ID() == id {
			return r, true
		}
	}
	return nil, false
}

// ResultPath returns the result view path for id.
func ResultPath(id string) string {
	return route.Resolve(resultPattern, map[string]string{"id": id})
}

// Send navigates to the result view for id and returns its path.
func (l *Listing) Send(id string) string {
	path := ResultPath(id)
	if l.navigator != nil {
		l.navigator.Navigate(path)
	}
	return path
}

// Add creates a user on the backend and reports the outcome.
func (l *Listing) Add(ctx context.Context, record any) error {
	if err := l.client.Post(ctx, AddPath, record, nil); err != nil {
		l.logger.Warn("adding user failed", "error", err)
		notify.Error(l.notifier, MsgAddError)
		return fmt.Errorf("adding user: %w", err)
	}
	notify.Success(l.notifier, TitleListing, MsgSuccess)
	return nil
}
