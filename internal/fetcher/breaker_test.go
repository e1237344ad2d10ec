package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker("example.com", BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Minute})
	boom := errors.New("boom")

	require.NoError(t, b.Allow())
	b.Record(boom)
	assert.Equal(t, BreakerClosed, b.State())

	require.NoError(t, b.Allow())
	b.Record(boom)
	assert.Equal(t, BreakerOpen, b.State())

	err := b.Allow()
	assert.True(t, eris.Is(err, ErrCircuitOpen))
}

func TestBreaker_HalfOpenTrial(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker("example.com", BreakerConfig{FailureThreshold: 1, ResetTimeout: 10 * time.Second})
	b.now = func() time.Time { return now }

	b.Record(errors.New("down"))
	require.Equal(t, BreakerOpen, b.State())

	now = now.Add(11 * time.Second)
	require.NoError(t, b.Allow())
	assert.Equal(t, BreakerHalfOpen, b.State())

	// A failed trial reopens immediately.
	b.Record(errors.New("still down"))
	assert.Equal(t, BreakerOpen, b.State())
	assert.Error(t, b.Allow())

	now = now.Add(11 * time.Second)
	require.NoError(t, b.Allow())
	b.Record(nil)
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", BreakerClosed.String())
	assert.Equal(t, "open", BreakerOpen.String())
	assert.Equal(t, "half-open", BreakerHalfOpen.String())
	assert.Equal(t, "unknown", BreakerState(9).String())
}

func TestOpener_CircuitOpensForFailingHost(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	o := NewOpener(HTTPOptions{Timeout: 5 * time.Second, MaxRetries: 1}, FTPOptions{})
	o.Breaker = BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Minute}

	for range 2 {
		_, err := o.Open(context.Background(), srv.URL+"/missing.geojson")
		require.Error(t, err)
	}
	_, err := o.Open(context.Background(), srv.URL+"/other.geojson")
	assert.True(t, eris.Is(err, ErrCircuitOpen))
	assert.Equal(t, int32(2), hits.Load())
}

func TestOpener_SuccessKeepsCircuitClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	o := NewOpener(HTTPOptions{Timeout: 5 * time.Second, MaxRetries: 1}, FTPOptions{})
	for range 5 {
		rc, err := o.Open(context.Background(), srv.URL)
		require.NoError(t, err)
		data, _ := io.ReadAll(rc)
		rc.Close()
		assert.Equal(t, "ok", strings.TrimSpace(string(data)))
	}
	assert.Equal(t, BreakerClosed, o.breakerFor(srv.URL).State())
}
