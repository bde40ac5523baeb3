package storage

import (
	"errors"
	"fmt"

	"github.com/jmcleod/visaexpress/internal/util"
)

// ErrInvalidKey is returned when a sealing key is not util.AESKeySize bytes.
var ErrInvalidKey = errors.New("sealing key must be 32 bytes")

// SealedStore seals every value written to an underlying Store as an
// AES-256-GCM envelope. The record key is bound as additional data, so a
// value copied under another key does not open.
type SealedStore struct {
	inner  Store
	key    []byte
	prefix string
}

var _ Store = (*SealedStore)(nil)

// NewSealedStore wraps inner. aadPrefix namespaces the additional data, e.g.
// "visaexpress:cli:".
func NewSealedStore(inner Store, key []byte, aadPrefix string) (*SealedStore, error) {
	if len(key) != util.AESKeySize {
		return nil, ErrInvalidKey
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &SealedStore{inner: inner, key: k, prefix: aadPrefix}, nil
}

func (s *SealedStore) aad(key string) []byte {
	return []byte(s.prefix + key)
}

func (s *SealedStore) Get(key string) ([]byte, error) {
	raw, err := s.inner.Get(key)
	if err != nil {
		return nil, err
	}
	env, err := DecodeEnvelope(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	plain, err := OpenRecord(s.key, env, s.aad(key))
	if err != nil {
		return nil, fmt.Errorf("%s: opening sealed record: %w", key, err)
	}
	return plain, nil
}

func (s *SealedStore) Set(key string, value []byte) error {
	env, err := SealRecord(s.key, value, s.aad(key))
	if err != nil {
		return fmt.Errorf("%s: sealing record: %w", key, err)
	}
	encoded, err := EncodeEnvelope(env)
	if err != nil {
		return err
	}
	return s.inner.Set(key, []byte(encoded))
}

func (s *SealedStore) Delete(key string) error {
	return s.inner.Delete(key)
}

// Wipe zeroes the sealing key. The store is unusable afterwards.
func (s *SealedStore) Wipe() {
	util.WipeBytes(s.key)
}
