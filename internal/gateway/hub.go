// Package gateway pushes notification events to connected dashboard
// sessions over WebSocket. It is the live, best-effort half of the event
// bus: the hub subscribes to the Redis notify channels and fans each event
// out to the matching local sessions. Durability lives in the store; a
// session that misses events reconciles through the notifications REST
// surface.
package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/clinicdesk/campaign-gateway/internal/bus"
	"github.com/clinicdesk/campaign-gateway/internal/logger"
	"github.com/clinicdesk/campaign-gateway/internal/metrics"
	"github.com/clinicdesk/campaign-gateway/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Hub struct {
	rdb *redis.Client

	sessionBuffer int
	pingInterval  time.Duration
	writeTimeout  time.Duration

	mu       sync.RWMutex
	sessions map[*Session]struct{}
}

func NewHub(rdb *redis.Client, sessionBuffer int, pingInterval, writeTimeout time.Duration) *Hub {
	if sessionBuffer <= 0 {
		sessionBuffer = 32
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Hub{
		rdb:           rdb,
		sessionBuffer: sessionBuffer,
		pingInterval:  pingInterval,
		writeTimeout:  writeTimeout,
		sessions:      make(map[*Session]struct{}),
	}
}

// Run subscribes to the clinic notify channels and routes incoming events
// until ctx is cancelled. go-redis reconnects the subscription itself.
func (h *Hub) Run(ctx context.Context) error {
	sub := h.rdb.PSubscribe(ctx, bus.ChannelPattern)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var n model.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				logger.Log.Warn("gateway: bad event payload", zap.Error(err))
				continue
			}
			h.Route(n)
		}
	}
}

// Route fans the event out to every connected matching session. Delivery is
// independent per session: a slow or stuck session is disconnected, never
// allowed to block the rest.
func (h *Hub) Route(n model.Notification) {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		if s.matches(n) {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.Notify(n)
	}
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
	metrics.GatewaySessions.Inc()
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s]
	delete(h.sessions, s)
	h.mu.Unlock()
	if ok {
		metrics.GatewaySessions.Dec()
	}
}

// SessionCount is exposed for tests and the health endpoint.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
