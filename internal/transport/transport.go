package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Message is one outbound WhatsApp message.
type Message struct {
	Phone     string `json:"phone"`
	Text      string `json:"text"`
	MediaURL  string `json:"media_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// Transport sends a single message. Any non-nil error is treated by the
// dispatch worker as a per-recipient failure, never a worker fault.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

var (
	ErrNotReady = fmt.Errorf("transport not ready")
)

// HTTPTransport posts messages to the WhatsApp bridge over HTTP. A small
// circuit breaker keeps the worker from hammering a provider that is
// rejecting everything.
type HTTPTransport struct {
	baseURL  string
	sendPath string
	token    string
	client   *http.Client
	br       *Breaker
}

func NewHTTPTransport(baseURL, sendPath, token string, timeoutMs, failThreshold, openForMs int) *HTTPTransport {
	if timeoutMs <= 0 {
		timeoutMs = 30000
	}

	if failThreshold <= 0 {
		failThreshold = 5
	}

	if openForMs <= 0 {
		openForMs = 15000
	}

	return &HTTPTransport{
		baseURL:  baseURL,
		sendPath: sendPath,
		token:    token,
		client:   &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:       NewBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

var _ Transport = (*HTTPTransport)(nil)

func (t *HTTPTransport) Send(ctx context.Context, msg Message) error {
	if !t.br.TryAcquire() {
		return ErrNotReady
	}

	if err := t.post(ctx, msg); err != nil {
		t.br.OnFailure()
		return err
	}

	t.br.OnSuccess()

	return nil
}

type sendResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (t *HTTPTransport) post(ctx context.Context, msg Message) error {
	b, _ := json.Marshal(msg)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+t.sendPath, bytes.NewReader(b))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	res, err := t.client.Do(req)
	if err != nil {
		return err
	}

	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("bridge path=%s status=%d", t.sendPath, res.StatusCode)
	}

	var out sendResult
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return fmt.Errorf("bridge decode: %w", err)
	}
	if !out.Success {
		if out.Error == "" {
			out.Error = "send rejected"
		}
		return fmt.Errorf("bridge: %s", out.Error)
	}

	return nil
}
