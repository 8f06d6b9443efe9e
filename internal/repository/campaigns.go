package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/clinicdesk/campaign-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrStaleStatus      = errors.New("campaign status changed concurrently")
)

// CampaignsRepository persists campaigns and their recipient snapshots.
// Counter updates are single-statement atomic increments so the contract
// stays correct if dispatch is ever parallelized.
type CampaignsRepository interface {
	// Create inserts the campaign row and its recipient snapshot in one
	// transaction. Recipients must already be deduped and non-empty.
	Create(ctx context.Context, c model.Campaign, recipients []model.Recipient) error
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	// ListByClinic returns campaigns newest-first for dashboard display.
	ListByClinic(ctx context.Context, clinicID int64, limit, offset int) ([]model.Campaign, error)
	// ListByStatus returns campaigns in the given status (boot recovery).
	ListByStatus(ctx context.Context, status model.CampaignStatus) ([]model.Campaign, error)
	IncrementSent(ctx context.Context, id string) error
	IncrementFailed(ctx context.Context, id string) error
	// SetStatus applies the state machine edge from -> to. It fails with
	// ErrStaleStatus when the row is no longer in `from`, and with
	// *model.ErrIllegalTransition when the edge itself is illegal.
	SetStatus(ctx context.Context, id string, from, to model.CampaignStatus) error
}

type CampaignsRepositoryImpl struct {
	db *sqlx.DB
}

func NewCampaignsRepository(db *sqlx.DB) *CampaignsRepositoryImpl {
	return &CampaignsRepositoryImpl{db: db}
}

var _ CampaignsRepository = (*CampaignsRepositoryImpl)(nil)

func (r *CampaignsRepositoryImpl) Create(ctx context.Context, c model.Campaign, recipients []model.Recipient) error {
	const qc = `
		INSERT INTO campaigns
		    (id, clinic_id, name, message, media_url, media_type, total, sent, failed, status, created_at, updated_at)
		VALUES
		    (?,  ?,         ?,    ?,       ?,         ?,          ?,     0,    0,      ?,      NOW(),      NOW())
	`
	const qr = `
		INSERT INTO campaign_recipients
		    (campaign_id, idx, contact_id, phone, name, state)
		VALUES
		    (?, ?, ?, ?, ?, 'queued')
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, qc,
		c.ID, c.ClinicID, c.Name, c.Message, c.MediaURL, c.MediaType, c.Total, c.Status.String(),
	); err != nil {
		return err
	}

	for _, rec := range recipients {
		if _, err := tx.ExecContext(ctx, qr, c.ID, rec.Idx, rec.ContactID, rec.Phone, rec.Name); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *CampaignsRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	var c model.Campaign
	err := r.db.GetContext(ctx, &c, `
		SELECT id, clinic_id, name, message, media_url, media_type, total, sent, failed, status, created_at, updated_at
		  FROM campaigns
		 WHERE id = ? LIMIT 1
	`, id)
	if err == sql.ErrNoRows {
		return nil, ErrCampaignNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignsRepositoryImpl) ListByClinic(ctx context.Context, clinicID int64, limit, offset int) ([]model.Campaign, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rows []model.Campaign
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, clinic_id, name, message, media_url, media_type, total, sent, failed, status, created_at, updated_at
		  FROM campaigns
		 WHERE clinic_id = ?
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?
	`, clinicID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CampaignsRepositoryImpl) ListByStatus(ctx context.Context, status model.CampaignStatus) ([]model.Campaign, error) {
	var rows []model.Campaign
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, clinic_id, name, message, media_url, media_type, total, sent, failed, status, created_at, updated_at
		  FROM campaigns
		 WHERE status = ?
		 ORDER BY created_at ASC
	`, status.String())
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CampaignsRepositoryImpl) IncrementSent(ctx context.Context, id string) error {
	return r.increment(ctx, id, "sent")
}

func (r *CampaignsRepositoryImpl) IncrementFailed(ctx context.Context, id string) error {
	return r.increment(ctx, id, "failed")
}

func (r *CampaignsRepositoryImpl) increment(ctx context.Context, id, col string) error {
	// col is one of the fixed counter names, never user input.
	q := "UPDATE campaigns SET " + col + " = " + col + " + 1, updated_at = NOW() WHERE id = ?"
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

func (r *CampaignsRepositoryImpl) SetStatus(ctx context.Context, id string, from, to model.CampaignStatus) error {
	if !from.CanTransition(to) {
		return &model.ErrIllegalTransition{From: from, To: to}
	}

	const q = `UPDATE campaigns SET status = ?, updated_at = NOW() WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, to.String(), id, from.String())
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// Either the row vanished or someone else moved it first.
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return gerr
		}
		return ErrStaleStatus
	}
	return nil
}
