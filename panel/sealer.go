package panel

import (
	"errors"
	"fmt"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/visaexpress/internal/util"
	"github.com/jmcleod/visaexpress/storage"
)

var (
	sealSalt = []byte("visaexpress-session-cookie")
	sealInfo = []byte("visaexpress:cookie-seal:v1")
)

// ErrEmptySecret is returned by New when no session secret is configured.
var ErrEmptySecret = errors.New("session secret is required")

// sealer encrypts cookie payloads with a key derived from the configured
// session secret. The derived key lives in a memguard enclave and is only
// decrypted for the duration of a single seal or open.
type sealer struct {
	key *memguard.Enclave
}

func newSealer(secret []byte) (*sealer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	key, err := util.HKDF(secret, sealSalt, sealInfo)
	if err != nil {
		return nil, fmt.Errorf("deriving cookie key: %w", err)
	}
	// NewEnclave wipes key.
	return &sealer{key: memguard.NewEnclave(key)}, nil
}

func (s *sealer) seal(plaintext, aad []byte) (string, error) {
	buf, err := s.key.Open()
	if err != nil {
		return "", fmt.Errorf("opening cookie key: %w", err)
	}
	defer buf.Destroy()

	env, err := storage.SealRecord(buf.Bytes(), plaintext, aad)
	if err != nil {
		return "", err
	}
	return storage.EncodeEnvelope(env)
}

func (s *sealer) open(value string, aad []byte) ([]byte, error) {
	env, err := storage.DecodeEnvelope(value)
	if err != nil {
		return nil, err
	}
	buf, err := s.key.Open()
	if err != nil {
		return nil, fmt.Errorf("opening cookie key: %w", err)
	}
	defer buf.Destroy()

	return storage.OpenRecord(buf.Bytes(), env, aad)
}
