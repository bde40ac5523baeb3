// Package storage provides the key-value abstraction the panel persists its
// session record through, plus helpers for sealing records at rest.
package storage

import "errors"

// ErrNotFound is returned by Get and Delete when no value exists for a key.
var ErrNotFound = errors.New("record not found")

// Store is a flat key-value store. Implementations must be safe for use by
// a single goroutine at a time; the shared implementations in this module
// (memory, bbolt) are additionally safe for concurrent use.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(key string) ([]byte, error)
	// Set creates or replaces the value stored under key.
	Set(key string, value []byte) error
	// Delete removes key. It returns ErrNotFound when key is absent.
	Delete(key string) error
}
