package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWebhook(url, authorization string) *AlertWebhook {
	w := NewAlertWebhook(url, authorization, slog.New(slog.DiscardHandler))
	w.retryDelay = time.Millisecond
	return w
}

func TestAlertWebhook_Delivery(t *testing.T) {
	var mu sync.Mutex
	var received AlertEvent
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := newTestWebhook(srv.URL, "Bearer hook-secret")
	wh.Notify(AlertEvent{Type: AlertLoginFailureSpike, Count: 50, Threshold: 50})
	wh.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, AlertLoginFailureSpike, received.Type)
	assert.Equal(t, 50, received.Count)
	assert.Equal(t, "Bearer hook-secret", auth)
}

func TestAlertWebhook_RetryOn500(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := newTestWebhook(srv.URL, "")
	wh.Notify(AlertEvent{Type: AlertAccessDeniedSpike})
	wh.Close()

	assert.Equal(t, int32(2), attempts.Load())
}

func TestAlertWebhook_NoRetryOn400(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	wh := newTestWebhook(srv.URL, "")
	wh.Notify(AlertEvent{Type: AlertAccessDeniedSpike})
	wh.Close()

	assert.Equal(t, int32(1), attempts.Load())
}

func TestAlertWebhook_DropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := newTestWebhook(srv.URL, "")
	for i := 0; i < alertQueueSize+10; i++ {
		wh.Notify(AlertEvent{Type: AlertLoginFailureSpike, Count: i})
	}
	close(release)
	wh.Close()

	got := int(attempts.Load())
	require.Positive(t, got)
	assert.LessOrEqual(t, got, alertQueueSize+1)
}

func TestAlertWebhook_AuthorizationSentVerbatim(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := newTestWebhook(srv.URL, "Basic YWxlcnRzOnMzY3JldA==:x")
	wh.Notify(AlertEvent{Type: AlertAccessDeniedSpike})
	wh.Close()

	assert.Equal(t, "Basic YWxlcnRzOnMzY3JldA==:x", <-got)
}

func TestAlertWebhook_NotifyAfterClose(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := newTestWebhook(srv.URL, "")
	wh.Close()

	assert.NotPanics(t, func() {
		wh.Notify(AlertEvent{Type: AlertLoginFailureSpike})
		wh.Close()
	})
	assert.Zero(t, attempts.Load())
}
