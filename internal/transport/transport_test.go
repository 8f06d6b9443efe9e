package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPostsMessageWithAuth(t *testing.T) {
	var got Message
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(sendResult{Success: true})
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, "/send", "secret-token", 1000, 5, 1000)
	err := tr.Send(context.Background(), Message{Phone: "+962700000001", Text: "Hello Ali"})

	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", auth)
	assert.Equal(t, "+962700000001", got.Phone)
	assert.Equal(t, "Hello Ali", got.Text)
}

func TestSendSurfacesBridgeRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(sendResult{Success: false, Error: "number not on whatsapp"})
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, "/send", "", 1000, 5, 1000)
	err := tr.Send(context.Background(), Message{Phone: "+962700000001", Text: "hi"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "number not on whatsapp")
}

func TestSendFailsOnHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, "/send", "", 1000, 5, 1000)
	err := tr.Send(context.Background(), Message{Phone: "+962700000001", Text: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=502")
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, "/send", "", 1000, 3, 60000)
	for i := 0; i < 3; i++ {
		require.Error(t, tr.Send(context.Background(), Message{Phone: "+962700000001", Text: "hi"}))
	}

	// breaker is open: no more requests reach the bridge
	err := tr.Send(context.Background(), Message{Phone: "+962700000001", Text: "hi"})
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, int64(3), calls.Load())
}

func TestBreakerProbeRecovers(t *testing.T) {
	b := NewBreaker(2, 10*time.Millisecond)

	require.True(t, b.TryAcquire())
	b.OnFailure()
	require.True(t, b.TryAcquire())
	b.OnFailure()

	// tripped
	assert.False(t, b.TryAcquire())

	time.Sleep(20 * time.Millisecond)

	// single probe allowed, concurrent acquire denied
	require.True(t, b.TryAcquire())
	assert.False(t, b.TryAcquire())

	b.OnSuccess()
	assert.True(t, b.TryAcquire())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond)

	require.True(t, b.TryAcquire())
	b.OnFailure()
	assert.False(t, b.TryAcquire())

	time.Sleep(20 * time.Millisecond)
	require.True(t, b.TryAcquire())
	b.OnFailure()

	// open again for a fresh window
	assert.False(t, b.TryAcquire())
}
