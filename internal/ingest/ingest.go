// Package ingest consumes domain events produced by the rest of the clinic
// platform (appointment workflow, inbound WhatsApp handler) off Kafka and
// turns them into durable notifications on the bus.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/clinicdesk/campaign-gateway/internal/bus"
	"github.com/clinicdesk/campaign-gateway/internal/kafka"
	"github.com/clinicdesk/campaign-gateway/internal/logger"
	"github.com/clinicdesk/campaign-gateway/internal/metrics"
	"github.com/clinicdesk/campaign-gateway/internal/model"
	"go.uber.org/zap"
)

// Consumer is the slice of the Kafka consumer the ingester needs.
type Consumer interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

type Ingester struct {
	Consumer Consumer
	Bus      bus.Publisher
}

// Run fetches events and publishes them until ctx is cancelled.
// At-least-once: commit happens after the durable write, so a crash between
// the two replays the event (notification ids come from the producer, the
// duplicate insert fails and is skipped).
func (ig *Ingester) Run(ctx context.Context) error {
	for {
		m, err := ig.Consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Log.Warn("ingest: kafka fetch", zap.Error(err))
			time.Sleep(200 * time.Millisecond)
			continue
		}

		ig.processOne(ctx, m)
	}
}

func (ig *Ingester) processOne(ctx context.Context, m kafka.Message) {
	var env model.EventEnvelope
	if err := json.Unmarshal(m.Value, &env); err != nil || env.ID == "" || env.ClinicID <= 0 {
		// poison message: commit and skip
		metrics.EventsIngested.WithLabelValues("poison").Inc()
		if err != nil {
			logger.Log.Warn("ingest: bad event json", zap.Error(err))
		} else {
			logger.Log.Warn("ingest: event missing id or clinic")
		}
		_ = ig.Consumer.Commit(ctx, m)
		return
	}

	n, err := toNotification(env)
	if err != nil {
		metrics.EventsIngested.WithLabelValues("poison").Inc()
		logger.Log.Warn("ingest: unroutable event", zap.String("id", env.ID), zap.Error(err))
		_ = ig.Consumer.Commit(ctx, m)
		return
	}

	if err := ig.Bus.Publish(ctx, n); err != nil {
		if errors.Is(err, bus.ErrInvalidEvent) {
			metrics.EventsIngested.WithLabelValues("poison").Inc()
			_ = ig.Consumer.Commit(ctx, m)
			return
		}
		// store unreachable: leave uncommitted, it will be refetched
		metrics.EventsIngested.WithLabelValues("error").Inc()
		logger.Log.Error("ingest: publish", zap.String("id", env.ID), zap.Error(err))
		return
	}

	metrics.EventsIngested.WithLabelValues("ok").Inc()
	if err := ig.Consumer.Commit(ctx, m); err != nil {
		logger.Log.Warn("ingest: commit", zap.Error(err))
	}
}

func toNotification(env model.EventEnvelope) (model.Notification, error) {
	typ := model.NotificationType(env.Type)
	if !typ.Valid() {
		return model.Notification{}, errors.New("unknown event type " + env.Type)
	}
	prio, _ := model.ParseNotificationPriority(env.Priority)

	return model.Notification{
		ID:       env.ID,
		ClinicID: env.ClinicID,
		UserID:   env.UserID,
		Type:     typ,
		Title:    env.Title,
		Message:  env.Message,
		Priority: prio,
		Metadata: env.Metadata,
	}, nil
}
