package panel

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/jmcleod/visaexpress/storage"
)

// cookiePayload is the sealed content of a store cookie.
type cookiePayload struct {
	Expires int64  `json:"exp"`
	Value   []byte `json:"v"`
}

// cookieStore is a storage.Store scoped to one request: each key is a
// sealed, HttpOnly cookie. Writes are sent as Set-Cookie headers and are
// visible to later reads within the same request.
type cookieStore struct {
	w      http.ResponseWriter
	r      *http.Request
	sealer *sealer
	maxAge time.Duration
	now    func() time.Time

	mu      sync.Mutex
	pending map[string][]byte // nil value marks a deletion
}

var _ storage.Store = (*cookieStore)(nil)

func newCookieStore(w http.ResponseWriter, r *http.Request, s *sealer, maxAge time.Duration) *cookieStore {
	return &cookieStore{
		w:       w,
		r:       r,
		sealer:  s,
		maxAge:  maxAge,
		now:     time.Now,
		pending: make(map[string][]byte),
	}
}

func cookieAAD(key string) []byte {
	return []byte("visaexpress:session:" + key)
}

func (c *cookieStore) Get(key string) ([]byte, error) {
	c.mu.Lock()
	v, ok := c.pending[key]
	c.mu.Unlock()
	if ok {
		if v == nil {
			return nil, storage.ErrNotFound
		}
		return append([]byte(nil), v...), nil
	}

	cookie, err := c.r.Cookie(key)
	if err != nil || cookie.Value == "" {
		return nil, storage.ErrNotFound
	}
	plain, err := c.sealer.open(cookie.Value, cookieAAD(key))
	if err != nil {
		// Tampered, foreign or stale-key cookies read as absent.
		return nil, storage.ErrNotFound
	}
	var p cookiePayload
	if err := json.Unmarshal(plain, &p); err != nil {
		return nil, storage.ErrNotFound
	}
	if p.Expires > 0 && c.now().Unix() >= p.Expires {
		return nil, storage.ErrNotFound
	}
	return p.Value, nil
}

func (c *cookieStore) Set(key string, value []byte) error {
	p := cookiePayload{Value: value}
	expires := time.Time{}
	if c.maxAge > 0 {
		expires = c.now().Add(c.maxAge)
		p.Expires = expires.Unix()
	}
	plain, err := json.Marshal(p)
	if err != nil {
		return err
	}
	sealed, err := c.sealer.seal(plain, cookieAAD(key))
	if err != nil {
		return err
	}

	cookie := &http.Cookie{
		Name:     key,
		Value:    sealed,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestIsSecure(c.r),
		SameSite: http.SameSiteLaxMode,
	}
	if c.maxAge > 0 {
		cookie.Expires = expires
		cookie.MaxAge = int(c.maxAge.Seconds())
	}
	http.SetCookie(c.w, cookie)

	c.mu.Lock()
	c.pending[key] = append([]byte{}, value...)
	c.mu.Unlock()
	return nil
}

func (c *cookieStore) Delete(key string) error {
	if _, err := c.Get(key); err != nil {
		return err
	}
	clearCookie(c.w, c.r, key, true)

	c.mu.Lock()
	c.pending[key] = nil
	c.mu.Unlock()
	return nil
}
