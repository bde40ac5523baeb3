package panel

import (
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter() (*failureLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := newFailureLimiter(maxFailures, baseLockout, maxLockout)
	rl.now = clock.now
	return rl, clock
}

func TestLimiterLocksAfterMaxFailures(t *testing.T) {
	rl, _ := newTestLimiter()
	for i := 0; i < maxFailures-1; i++ {
		rl.recordFailure("admin")
		blocked, _ := rl.check("admin")
		assert.False(t, blocked, "attempt %d", i+1)
	}
	rl.recordFailure("admin")
	blocked, retry := rl.check("admin")
	assert.True(t, blocked)
	assert.Equal(t, baseLockout, retry)

	other, _ := rl.check("someone-else")
	assert.False(t, other)
}

func TestLimiterBackoffDoublesAndCaps(t *testing.T) {
	rl, _ := newTestLimiter()
	for range maxFailures + 1 {
		rl.recordFailure("admin")
	}
	_, retry := rl.check("admin")
	assert.Equal(t, 2*baseLockout, retry)

	for range 10 {
		rl.recordFailure("admin")
	}
	_, retry = rl.check("admin")
	assert.Equal(t, maxLockout, retry)
}

func TestLimiterUnlocksAndResets(t *testing.T) {
	rl, clock := newTestLimiter()
	for range maxFailures {
		rl.recordFailure("admin")
	}
	clock.advance(baseLockout + time.Second)
	blocked, _ := rl.check("admin")
	assert.False(t, blocked)

	rl.recordSuccess("admin")
	rl.recordFailure("admin")
	blocked, _ = rl.check("admin")
	assert.False(t, blocked)
}

func TestLimiterSweep(t *testing.T) {
	rl, clock := newTestLimiter()
	rl.recordFailure("a")
	clock.advance(attemptExpiry + time.Minute)
	rl.recordFailure("b")
	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.attempts, "a")
	assert.Contains(t, rl.attempts, "b")
}

func TestRetryAfterString(t *testing.T) {
	assert.Equal(t, "1", retryAfterString(0))
	assert.Equal(t, "90", retryAfterString(90*time.Second))
}

func TestClientIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.168.1.1"})
	require.NoError(t, err)
	require.Len(t, trusted, 2)

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		proxies []netip.Prefix
		want    string
	}{
		{"remote only", "203.0.113.7:5555", nil, nil, "203.0.113.7"},
		{"untrusted xff ignored", "203.0.113.7:5555", map[string]string{"X-Forwarded-For": "1.2.3.4"}, trusted, "203.0.113.7"},
		{"trusted xff", "10.1.2.3:80", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.1.2.3"}, trusted, "1.2.3.4"},
		{"trusted forwarded", "192.168.1.1:80", map[string]string{"Forwarded": `for="[2001:db8::1]:443";proto=https`}, trusted, "2001:db8::1"},
		{"trusted real ip", "10.0.0.1:80", map[string]string{"X-Real-IP": "5.6.7.8"}, trusted, "5.6.7.8"},
		{"ipv6 remote", "[::1]:1234", nil, nil, "::1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, clientIP(r, tc.proxies))
		})
	}
}

func TestParseTrustedProxiesInvalid(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}
