package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_SlidingWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(10*time.Minute, 2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("ip:1"))
	assert.True(t, rl.Allow("ip:1"))
	assert.False(t, rl.Allow("ip:1"))
	assert.True(t, rl.Allow("ip:2"), "keys are independent")

	now = now.Add(10*time.Minute + time.Second)
	assert.True(t, rl.Allow("ip:1"), "window has slid past earlier requests")
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(time.Minute, 1)
	h := RateLimitMiddleware(rl, GetIPKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "request %d", i+1)
	}
}

func TestGetIPKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "ip:10.0.0.1", GetIPKey(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "ip:10.0.0.1", GetIPKey(req), "forwarding headers are not read directly")

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "ip:2001:db8::1", GetIPKey(req))
}

func TestParseTrustedProxies(t *testing.T) {
	got, err := ParseTrustedProxies(" 10.0.0.0/8, 192.0.2.7 ,,")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "10.0.0.0/8", got[0].String())
	assert.Equal(t, "192.0.2.7/32", got[1].String())

	got, err = ParseTrustedProxies("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ParseTrustedProxies("10.0.0.0/99")
	assert.Error(t, err)
	_, err = ParseTrustedProxies("proxy.local")
	assert.Error(t, err)
}

func TestRealIP(t *testing.T) {
	trusted, err := ParseTrustedProxies("10.0.0.0/8")
	require.NoError(t, err)

	cases := []struct {
		name    string
		remote  string
		trusted bool
		xff     []string
		want    string
	}{
		{"untrusted peer keeps its address", "198.51.100.1:5000", true, []string{"203.0.113.7"}, "ip:198.51.100.1"},
		{"no trusted proxies ignores header", "10.0.0.2:5000", false, []string{"203.0.113.7"}, "ip:10.0.0.2"},
		{"trusted peer forwards client", "10.0.0.2:5000", true, []string{"203.0.113.7"}, "ip:203.0.113.7"},
		{"rightmost untrusted hop wins", "10.0.0.2:5000", true, []string{"192.0.2.66, 203.0.113.7, 10.0.0.3"}, "ip:203.0.113.7"},
		{"repeated headers are joined", "10.0.0.2:5000", true, []string{"192.0.2.66", "203.0.113.7"}, "ip:203.0.113.7"},
		{"garbage hop keeps peer", "10.0.0.2:5000", true, []string{"not-an-ip"}, "ip:10.0.0.2"},
		{"all hops trusted keeps peer", "10.0.0.2:5000", true, []string{"10.0.0.9"}, "ip:10.0.0.2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			proxies := trusted
			if !tc.trusted {
				proxies = nil
			}
			var got string
			h := RealIP(proxies)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = GetIPKey(r)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for _, v := range tc.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInternalAuthMiddleware(t *testing.T) {
	h := InternalAuthMiddleware("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := map[string]int{"": http.StatusUnauthorized, "wrong": http.StatusUnauthorized, "secret": http.StatusNoContent}
	for key, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/internal/customers/x", nil)
		if key != "" {
			req.Header.Set(InternalAPIKeyHeader, key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "key %q", key)
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	assert.Equal(t, "", BearerToken(req))

	req.Header.Set("Authorization", "abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", BearerToken(req))

	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", BearerToken(req))
}

func TestNewPhoneLimiter_DisabledWithoutRedis(t *testing.T) {
	l, closeFn, err := NewPhoneLimiter("", "", 5)
	assert.NoError(t, err)
	defer closeFn()
	ok, _, err := l.Allow(context.Background(), "994501234567")
	assert.NoError(t, err)
	assert.True(t, ok)

	_, _, err = NewPhoneLimiter("not-a-redis-url", "", 5)
	assert.Error(t, err)
}
