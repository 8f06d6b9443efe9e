// Package bus is the notification event bus. Publish writes the event to
// the durable store first, then fans it out as a best-effort side effect
// over a Redis channel per clinic. Disconnected subscribers catch up via
// the notifications read model, not via the live push.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/clinicdesk/campaign-gateway/internal/logger"
	"github.com/clinicdesk/campaign-gateway/internal/metrics"
	"github.com/clinicdesk/campaign-gateway/internal/model"
	"github.com/clinicdesk/campaign-gateway/internal/repository"
	"github.com/clinicdesk/campaign-gateway/internal/util"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "notify:"

// Channel returns the Redis pub/sub channel for a clinic.
func Channel(clinicID int64) string {
	return channelPrefix + strconv.FormatInt(clinicID, 10)
}

// ChannelPattern matches every clinic channel (hub-side PSubscribe).
const ChannelPattern = channelPrefix + "*"

var ErrInvalidEvent = errors.New("invalid notification event")

// Publisher is the producer-facing half of the bus.
type Publisher interface {
	Publish(ctx context.Context, n model.Notification) error
}

type Bus struct {
	store repository.NotificationsRepository
	rdb   *redis.Client // nil disables live fan-out (tests, single-node dev)
}

func New(store repository.NotificationsRepository, rdb *redis.Client) *Bus {
	return &Bus{store: store, rdb: rdb}
}

var _ Publisher = (*Bus)(nil)

// Publish validates, persists, then fans out. A malformed event is rejected
// before anything is written; a fan-out failure is logged and swallowed
// because the durable record is the source of truth.
func (b *Bus) Publish(ctx context.Context, n model.Notification) error {
	if n.ID == "" {
		n.ID = util.NewID()
	}
	if n.Priority == "" {
		n.Priority = model.PriorityMedium
	}
	if err := validate(n); err != nil {
		return err
	}

	if err := b.store.Insert(ctx, n); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}

	metrics.NotificationsTotal.WithLabelValues(n.Type.String()).Inc()

	if b.rdb == nil {
		return nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		// cannot happen for a validated event; keep the durable write
		logger.Log.Error("bus: marshal notification", zap.Error(err))
		return nil
	}
	if err := b.rdb.Publish(ctx, Channel(n.ClinicID), payload).Err(); err != nil {
		logger.Log.Warn("bus: redis publish", zap.String("id", n.ID), zap.Error(err))
	}
	return nil
}

func validate(n model.Notification) error {
	if n.ClinicID <= 0 {
		return fmt.Errorf("%w: missing clinic id", ErrInvalidEvent)
	}
	if !n.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, n.Type)
	}
	if !n.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidEvent, n.Priority)
	}
	if n.Title == "" {
		return fmt.Errorf("%w: empty title", ErrInvalidEvent)
	}
	return nil
}
