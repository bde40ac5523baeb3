// Package notify carries user-visible toast notifications from controllers
// to whatever surface displays them.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is a single toast.
type Notification struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Title   string    `json:"title,omitempty"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notifier receives notifications.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// New builds a notification with a fresh ID and timestamp.
func New(level Level, title, message string) Notification {
	return Notification{
		ID:      uuid.NewString(),
		Level:   level,
		Title:   title,
		Message: message,
		Time:    time.Now().UTC(),
	}
}

// Success sends a success notification to n. A nil n is ignored.
func Success(n Notifier, title, message string) {
	if n != nil {
		n.Notify(New(LevelSuccess, title, message))
	}
}

// Error sends an error notification to n. A nil n is ignored.
func Error(n Notifier, message string) {
	if n != nil {
		n.Notify(New(LevelError, "", message))
	}
}

// Queue buffers notifications until they are drained.
type Queue struct {
	mu    sync.Mutex
	items []Notification
}

// Notify appends n.
func (q *Queue) Notify(n Notification) {
	q.mu.Lock()
	q.items = append(q.items, n)
	q.mu.Unlock()
}

// Drain returns and removes all buffered notifications.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Len returns the number of buffered notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if n.Level == LevelError {
		level = slog.LevelWarn
	}
	logger.LogAttrs(context.Background(), level, "notification",
		slog.String("id", n.ID),
		slog.String("kind", string(n.Level)),
		slog.String("title", n.Title),
		slog.String("message", n.Message),
	)
}

// Multi fans a notification out to every non-nil notifier.
func Multi(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(n Notification) {
		for _, nt := range notifiers {
			if nt != nil {
				nt.Notify(n)
			}
		}
	})
}
