package repository

import (
	"context"

	"github.com/clinicdesk/campaign-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

// RecipientsRepository reads and advances the per-recipient snapshot state.
// Terminal states are set exactly once; MarkSent/MarkFailed guard on
// state='queued' so a resumed worker can never flip an attempted row.
type RecipientsRepository interface {
	// ListQueued returns the not-yet-attempted remainder in snapshot order.
	ListQueued(ctx context.Context, campaignID string) ([]model.Recipient, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]model.Recipient, error)
	MarkSent(ctx context.Context, campaignID string, idx int) error
	MarkFailed(ctx context.Context, campaignID string, idx int, reason string) error
}

type RecipientsRepositoryImpl struct {
	db *sqlx.DB
}

func NewRecipientsRepository(db *sqlx.DB) *RecipientsRepositoryImpl {
	return &RecipientsRepositoryImpl{db: db}
}

var _ RecipientsRepository = (*RecipientsRepositoryImpl)(nil)

func (r *RecipientsRepositoryImpl) ListQueued(ctx context.Context, campaignID string) ([]model.Recipient, error) {
	var rows []model.Recipient
	err := r.db.SelectContext(ctx, &rows, `
		SELECT campaign_id, idx, contact_id, phone, name, state, error, attempted_at
		  FROM campaign_recipients
		 WHERE campaign_id = ? AND state = 'queued'
		 ORDER BY idx ASC
	`, campaignID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *RecipientsRepositoryImpl) ListByCampaign(ctx context.Context, campaignID string) ([]model.Recipient, error) {
	var rows []model.Recipient
	err := r.db.SelectContext(ctx, &rows, `
		SELECT campaign_id, idx, contact_id, phone, name, state, error, attempted_at
		  FROM campaign_recipients
		 WHERE campaign_id = ?
		 ORDER BY idx ASC
	`, campaignID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *RecipientsRepositoryImpl) MarkSent(ctx context.Context, campaignID string, idx int) error {
	const q = `
		UPDATE campaign_recipients
		   SET state = 'sent', attempted_at = NOW()
		 WHERE campaign_id = ? AND idx = ? AND state = 'queued'
	`
	_, err := r.db.ExecContext(ctx, q, campaignID, idx)
	return err
}

func (r *RecipientsRepositoryImpl) MarkFailed(ctx context.Context, campaignID string, idx int, reason string) error {
	const q = `
		UPDATE campaign_recipients
		   SET state = 'failed', error = ?, attempted_at = NOW()
		 WHERE campaign_id = ? AND idx = ? AND state = 'queued'
	`
	_, err := r.db.ExecContext(ctx, q, reason, campaignID, idx)
	return err
}
