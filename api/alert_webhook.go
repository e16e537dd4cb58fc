package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// alertQueueSize is the bounded channel capacity for outbound alerts.
const alertQueueSize = 256

// AlertWebhook posts anomaly alerts to an external HTTP endpoint. Alerts
// are queued without blocking and sent by a background goroutine; when the
// queue is full, or after Close, they are dropped.
type AlertWebhook struct {
	url           string
	authorization string // sent verbatim, e.g. "Bearer xxx"
	client        *http.Client
	logger        *slog.Logger
	retryDelay    time.Duration
	wg            sync.WaitGroup

	// mu guards closed and the send side of events.
	mu     sync.RWMutex
	closed bool
	events chan AlertEvent
}

// NewAlertWebhook starts a dispatcher posting to url. authorization is the
// optional Authorization header value.
func NewAlertWebhook(url, authorization string, logger *slog.Logger) *AlertWebhook {
	w := &AlertWebhook{
		url:           url,
		authorization: authorization,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With("component", "alert_webhook"),
		retryDelay: time.Second,
		events:     make(chan AlertEvent, alertQueueSize),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

// Notify queues an alert. It has the AlertFunc signature and never blocks.
func (w *AlertWebhook) Notify(evt AlertEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.logger.Warn("webhook closed, dropping alert", "type", evt.Type)
		return
	}
	select {
	case w.events <- evt:
	default:
		w.logger.Warn("queue full, dropping alert", "type", evt.Type)
	}
}

// Close stops the dispatcher after draining queued alerts. Later calls to
// Notify drop their alert; Close may be called more than once.
func (w *AlertWebhook) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.events)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *AlertWebhook) loop() {
	defer w.wg.Done()
	for evt := range w.events {
		w.send(evt)
	}
}

// send POSTs the alert with one retry on transport errors and 5xx.
func (w *AlertWebhook) send(evt AlertEvent) {
	body, err := json.Marshal(evt)
	if err != nil {
		w.logger.Warn("marshal failed", "error", err)
		return
	}

	for attempt := 1; attempt <= 2; attempt++ {
		if attempt > 1 {
			time.Sleep(w.retryDelay)
		}

		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			w.logger.Warn("request creation failed", "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "Fuelflux-Alert-Webhook/1.0")
		if w.authorization != "" {
			req.Header.Set("Authorization", w.authorization)
		}

		resp, err := w.client.Do(req)
		if err != nil {
			w.logger.Warn("request failed", "error", err, "attempt", attempt)
			continue
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return
		case resp.StatusCode >= 500:
			w.logger.Warn("server error", "status", resp.StatusCode, "attempt", attempt)
		default:
			w.logger.Warn("client error", "status", resp.StatusCode)
			return
		}
	}
}
