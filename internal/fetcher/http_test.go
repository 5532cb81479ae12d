package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/one-labs/streets-cli/internal/resilience"
)

func TestGetReturnsBody(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(HTTPOptions{})
	body, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, "streets-cli/1.0", gotUA)
}

func TestGetClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(HTTPOptions{})
	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, resilience.IsPermanent(err))
	assert.Contains(t, err.Error(), "status 404")
}

func TestGetServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(HTTPOptions{})
	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.False(t, resilience.IsPermanent(err))
}

func TestGetTooManyRequestsIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(HTTPOptions{})
	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.False(t, resilience.IsPermanent(err))
}

func TestGetAppliesHostRateLimiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	c := NewClient(HTTPOptions{
		RateLimiters: map[string]*rate.Limiter{
			u.Host: rate.NewLimiter(rate.Inf, 1),
		},
	})
	_, err = c.Get(context.Background(), srv.URL)
	require.NoError(t, err)

	// An exhausted limiter with a cancelled context aborts before the request.
	blocked := NewClient(HTTPOptions{
		RateLimiters: map[string]*rate.Limiter{
			u.Host: rate.NewLimiter(0, 0),
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = blocked.Get(ctx, srv.URL)
	assert.Error(t, err)
}

func TestDefaultRateLimiters(t *testing.T) {
	limiters := DefaultRateLimiters()
	assert.Contains(t, limiters, "tigerweb.geo.census.gov")
	assert.Contains(t, limiters, "api.census.gov")
}
