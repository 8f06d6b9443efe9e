package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/clinicdesk/campaign-gateway/internal/logger"
	"github.com/clinicdesk/campaign-gateway/internal/metrics"
	"github.com/clinicdesk/campaign-gateway/internal/model"
	"github.com/clinicdesk/campaign-gateway/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrTooManyActive  = errors.New("too many active campaigns")
	ErrNotActive      = errors.New("campaign is not running in this process")
	ErrAlreadyRunning = errors.New("campaign already running")
)

// Manager owns one long-lived goroutine per active campaign. Campaigns run
// independently: no shared lock across pacing loops, and a failure inside
// one worker never touches another.
type Manager struct {
	worker    Worker
	campaigns repository.CampaignsRepository
	maxActive int

	mu   sync.Mutex
	runs map[string]*run
	wg   sync.WaitGroup

	baseCtx context.Context
	stop    context.CancelFunc
}

type run struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	done   chan struct{}
}

func newRun(parent context.Context) *run {
	ctx, cancel := context.WithCancelCause(parent)
	return &run{ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

func NewManager(w Worker, campaigns repository.CampaignsRepository, maxActive int) *Manager {
	if maxActive <= 0 {
		maxActive = 10
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Manager{
		worker:    w,
		campaigns: campaigns,
		maxActive: maxActive,
		runs:      make(map[string]*run),
		baseCtx:   ctx,
		stop:      stop,
	}
}

// Start moves a pending campaign to running and spawns its worker.
func (m *Manager) Start(ctx context.Context, campaignID string) error {
	return m.launch(ctx, campaignID, model.CampaignPending)
}

// Resume moves a paused campaign back to running. Already-attempted
// recipients stay untouched; the worker picks up the queued remainder.
func (m *Manager) Resume(ctx context.Context, campaignID string) error {
	return m.launch(ctx, campaignID, model.CampaignPaused)
}

func (m *Manager) launch(ctx context.Context, campaignID string, from model.CampaignStatus) error {
	m.mu.Lock()
	if _, exists := m.runs[campaignID]; exists {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	if len(m.runs) >= m.maxActive {
		m.mu.Unlock()
		return ErrTooManyActive
	}
	// reserve the slot before the status write so a concurrent launch loses
	r := newRun(m.baseCtx)
	m.runs[campaignID] = r
	m.mu.Unlock()

	if err := m.campaigns.SetStatus(ctx, campaignID, from, model.CampaignRunning); err != nil {
		r.cancel(nil)
		close(r.done)
		m.release(campaignID)
		return fmt.Errorf("transition to running: %w", err)
	}

	m.spawn(campaignID, r)
	return nil
}

// Recover re-attaches workers to campaigns left in `running` by a previous
// process. Called once at boot.
func (m *Manager) Recover(ctx context.Context) error {
	stuck, err := m.campaigns.ListByStatus(ctx, model.CampaignRunning)
	if err != nil {
		return fmt.Errorf("list running campaigns: %w", err)
	}
	for _, c := range stuck {
		m.mu.Lock()
		if _, exists := m.runs[c.ID]; exists || len(m.runs) >= m.maxActive {
			m.mu.Unlock()
			continue
		}
		r := newRun(m.baseCtx)
		m.runs[c.ID] = r
		m.mu.Unlock()

		logger.Log.Info("dispatch: recovering campaign", zap.String("campaign", c.ID))
		m.spawn(c.ID, r)
	}

	// campaigns created while no slot was free stay pending; pick them up
	m.promoteOne(ctx)
	return nil
}

// promoteOne starts the oldest pending campaign if a slot is free. Called
// at boot and whenever a worker finishes.
func (m *Manager) promoteOne(ctx context.Context) {
	m.mu.Lock()
	free := len(m.runs) < m.maxActive
	m.mu.Unlock()
	if !free {
		return
	}

	pending, err := m.campaigns.ListByStatus(ctx, model.CampaignPending)
	if err != nil {
		logger.Log.Warn("dispatch: list pending campaigns", zap.Error(err))
		return
	}
	for _, c := range pending {
		err := m.launch(ctx, c.ID, model.CampaignPending)
		if err == nil {
			return
		}
		if errors.Is(err, ErrTooManyActive) {
			return
		}
		logger.Log.Warn("dispatch: promote pending", zap.String("campaign", c.ID), zap.Error(err))
	}
}

func (m *Manager) spawn(campaignID string, r *run) {
	m.wg.Add(1)
	metrics.ActiveCampaigns.Inc()
	go func() {
		defer func() {
			metrics.ActiveCampaigns.Dec()
			m.release(campaignID)
			close(r.done)
			if m.baseCtx.Err() == nil {
				m.promoteOne(m.baseCtx)
			}
			m.wg.Done()
		}()
		if err := m.worker.Run(r.ctx, campaignID); err != nil {
			logger.Log.Error("dispatch: worker failed", zap.String("campaign", campaignID), zap.Error(err))
		}
	}()
}

// Pause requests a cooperative stop. The worker parks the campaign at its
// current position once the in-flight recipient (if any) is recorded.
func (m *Manager) Pause(campaignID string) error {
	m.mu.Lock()
	r, ok := m.runs[campaignID]
	m.mu.Unlock()
	if !ok {
		return ErrNotActive
	}
	r.cancel(ErrPauseRequested)
	<-r.done
	return nil
}

// Active reports whether this process is currently dispatching the campaign.
func (m *Manager) Active(campaignID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.runs[campaignID]
	return ok
}

// Shutdown cancels every worker without the pause cause, leaving campaigns
// in `running` for recovery, and waits for them to unwind.
func (m *Manager) Shutdown() {
	m.stop()
	m.wg.Wait()
}

func (m *Manager) release(campaignID string) {
	m.mu.Lock()
	delete(m.runs, campaignID)
	m.mu.Unlock()
}
