package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/clinicdesk/campaign-gateway/internal/bus"
	"github.com/clinicdesk/campaign-gateway/internal/logger"
	"github.com/clinicdesk/campaign-gateway/internal/metrics"
	"github.com/clinicdesk/campaign-gateway/internal/model"
	"github.com/clinicdesk/campaign-gateway/internal/repository"
	"github.com/clinicdesk/campaign-gateway/internal/transport"
	"go.uber.org/zap"
)

// ErrPauseRequested is the cancellation cause the Manager sets when a pause
// was requested. Any other cancellation (shutdown) leaves the campaign in
// `running` so boot recovery picks it up.
var ErrPauseRequested = errors.New("pause requested")

// Worker executes one campaign: it walks the immutable recipient snapshot
// in order, sends through the transport, records per-recipient outcome, and
// paces between sends. Pausing is cooperative and checked only between
// recipients; an in-flight send is never killed.
type Worker struct {
	Campaigns  repository.CampaignsRepository
	Recipients repository.RecipientsRepository
	Transport  transport.Transport
	Bus        bus.Publisher

	// Policy, not contract: bounds on the anti-ban delay and the send
	// timeout, and how often progress events are emitted.
	PacingMin      time.Duration
	PacingMax      time.Duration
	SendTimeout    time.Duration
	ProgressStride int
}

// Run processes the campaign's remaining queued recipients. It assumes the
// campaign is already in `running` (the Manager owns that edge). Returned
// errors are worker-fatal conditions; per-recipient failures are not errors.
func (w *Worker) Run(ctx context.Context, campaignID string) error {
	camp, err := w.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, repository.ErrCampaignNotFound) {
			w.systemError(0, campaignID, "campaign vanished before dispatch")
		}
		return fmt.Errorf("load campaign: %w", err)
	}

	queued, err := w.Recipients.ListQueued(ctx, campaignID)
	if err != nil {
		return w.fatal(camp, fmt.Errorf("load recipients: %w", err))
	}

	for i, rec := range queued {
		select {
		case <-ctx.Done():
			return w.suspend(ctx, camp)
		default:
		}

		if err := w.sendOne(camp, rec); err != nil {
			return w.fatal(camp, err)
		}

		last := i == len(queued)-1
		attempted := camp.Total - len(queued) + i + 1
		if last || (w.ProgressStride > 0 && attempted%w.ProgressStride == 0) {
			w.progressEvent(camp.ID, camp.ClinicID)
		}

		if !last {
			if !w.pace(ctx) {
				return w.suspend(ctx, camp)
			}
		}
	}

	// Completion is defined purely by exhausting the snapshot, regardless
	// of how many sends failed.
	if err := w.Campaigns.SetStatus(context.Background(), camp.ID, model.CampaignRunning, model.CampaignCompleted); err != nil {
		return w.fatal(camp, fmt.Errorf("complete campaign: %w", err))
	}
	w.completedEvent(camp.ID, camp.ClinicID)
	return nil
}

// sendOne attempts a single recipient. Transport errors are per-recipient
// failures: recorded, counted, and the campaign proceeds. A failed outcome
// write is different: the per-recipient row is the dispatch position, so
// advancing without it could complete with stale counters or re-send a
// delivered message after a resume. Those come back as worker-fatal errors.
func (w *Worker) sendOne(camp *model.Campaign, rec model.Recipient) error {
	sctx, cancel := context.WithTimeout(context.Background(), w.sendTimeout())
	defer cancel()

	err := w.Transport.Send(sctx, transport.Message{
		Phone:     rec.Phone,
		Text:      Render(camp.Message, rec.Name),
		MediaURL:  camp.MediaURL,
		MediaType: camp.MediaType,
	})

	// Store writes run on a fresh context: the send deadline must not eat
	// into outcome recording.
	rctx := context.Background()

	if err == nil {
		if merr := w.Recipients.MarkSent(rctx, camp.ID, rec.Idx); merr != nil {
			return fmt.Errorf("mark recipient %d sent: %w", rec.Idx, merr)
		}
		if ierr := w.Campaigns.IncrementSent(rctx, camp.ID); ierr != nil {
			return fmt.Errorf("increment sent: %w", ierr)
		}
		metrics.SendsTotal.WithLabelValues("sent").Inc()
		return nil
	}

	reason := err.Error()
	if merr := w.Recipients.MarkFailed(rctx, camp.ID, rec.Idx, reason); merr != nil {
		return fmt.Errorf("mark recipient %d failed: %w", rec.Idx, merr)
	}
	if ierr := w.Campaigns.IncrementFailed(rctx, camp.ID); ierr != nil {
		return fmt.Errorf("increment failed: %w", ierr)
	}
	metrics.SendsTotal.WithLabelValues("failed").Inc()
	logger.Log.Warn("dispatch: send failed",
		zap.String("campaign", camp.ID), zap.Int("idx", rec.Idx), zap.String("reason", reason))
	return nil
}

// pace sleeps a randomized delay within the configured bounds. Returns
// false if the context was cancelled mid-delay.
func (w *Worker) pace(ctx context.Context) bool {
	min, max := w.PacingMin, w.PacingMax
	if min <= 0 {
		min = 10 * time.Second
	}
	if max < min {
		max = min
	}
	delay := min
	if max > min {
		delay += time.Duration(rand.Int63n(int64(max - min)))
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (w *Worker) sendTimeout() time.Duration {
	if w.SendTimeout > 0 {
		return w.SendTimeout
	}
	return 30 * time.Second
}

// suspend handles cancellation: a pause request durably parks the campaign,
// anything else (process shutdown) leaves it running for boot recovery.
func (w *Worker) suspend(ctx context.Context, camp *model.Campaign) error {
	if !errors.Is(context.Cause(ctx), ErrPauseRequested) {
		return nil
	}
	if err := w.Campaigns.SetStatus(context.Background(), camp.ID, model.CampaignRunning, model.CampaignPaused); err != nil {
		return w.fatal(camp, fmt.Errorf("pause campaign: %w", err))
	}
	logger.Log.Info("dispatch: campaign paused", zap.String("campaign", camp.ID))
	return nil
}

// fatal marks the campaign failed and surfaces a SYSTEM_ERROR notification.
// The clinic id was captured when the campaign loaded, so the event goes out
// even if the row has since vanished.
func (w *Worker) fatal(camp *model.Campaign, cause error) error {
	if err := w.Campaigns.SetStatus(context.Background(), camp.ID, model.CampaignRunning, model.CampaignFailed); err != nil {
		logger.Log.Error("dispatch: mark failed status", zap.String("campaign", camp.ID), zap.Error(err))
	}
	w.systemError(camp.ClinicID, camp.ID, cause.Error())
	return cause
}

// systemError publishes a SYSTEM_ERROR notification. clinicID is zero only
// on the start-time path where the campaign never loaded; then a lookup is
// the one way to route the event, and an unroutable one is dropped.
func (w *Worker) systemError(clinicID int64, campaignID, detail string) {
	if clinicID <= 0 {
		camp, err := w.Campaigns.GetByID(context.Background(), campaignID)
		if err != nil {
			logger.Log.Error("dispatch: campaign unavailable for system error event",
				zap.String("campaign", campaignID), zap.String("detail", detail))
			return
		}
		clinicID = camp.ClinicID
	}

	n := model.Notification{
		ClinicID:   clinicID,
		Type:       model.NotifSystemError,
		Title:      "Campaign dispatch error",
		Message:    detail,
		Priority:   model.PriorityUrgent,
		CampaignID: &campaignID,
	}
	if err := w.Bus.Publish(context.Background(), n); err != nil {
		logger.Log.Error("dispatch: publish system error", zap.Error(err))
	}
}

func (w *Worker) progressEvent(campaignID string, clinicID int64) {
	camp, err := w.Campaigns.GetByID(context.Background(), campaignID)
	if err != nil {
		return
	}
	meta, _ := json.Marshal(map[string]any{
		"sent": camp.Sent, "failed": camp.Failed, "total": camp.Total, "progress": camp.Progress(),
	})
	n := model.Notification{
		ClinicID:   clinicID,
		Type:       model.NotifCampaignProgress,
		Title:      camp.Name,
		Message:    fmt.Sprintf("%d of %d messages processed", camp.Sent+camp.Failed, camp.Total),
		Priority:   model.PriorityLow,
		CampaignID: &campaignID,
		Metadata:   meta,
	}
	if err := w.Bus.Publish(context.Background(), n); err != nil {
		logger.Log.Warn("dispatch: publish progress", zap.String("campaign", campaignID), zap.Error(err))
	}
}

func (w *Worker) completedEvent(campaignID string, clinicID int64) {
	camp, err := w.Campaigns.GetByID(context.Background(), campaignID)
	if err != nil {
		return
	}
	meta, _ := json.Marshal(map[string]any{
		"sent": camp.Sent, "failed": camp.Failed, "total": camp.Total,
	})
	n := model.Notification{
		ClinicID:   clinicID,
		Type:       model.NotifCampaignCompleted,
		Title:      camp.Name,
		Message:    fmt.Sprintf("Campaign finished: %d sent, %d failed", camp.Sent, camp.Failed),
		Priority:   model.PriorityMedium,
		CampaignID: &campaignID,
		Metadata:   meta,
	}
	if err := w.Bus.Publish(context.Background(), n); err != nil {
		logger.Log.Warn("dispatch: publish completion", zap.String("campaign", campaignID), zap.Error(err))
	}
}
