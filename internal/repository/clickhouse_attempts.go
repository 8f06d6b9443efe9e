package repository

import (
	"context"

	"github.com/clinicdesk/campaign-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

// CHAttemptsRepository lists recipient attempts from ClickHouse (final view,
// fed by CDC off the campaign_recipients table). MySQL stays the write side;
// this is the cheap read model the reports endpoint serves from.
type CHAttemptsRepository interface {
	ListByCampaign(ctx context.Context, clinicID int64, campaignID string, state model.RecipientState, limit, offset int) ([]model.Recipient, error)
}

type chAttemptsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHAttemptsRepository(ch *sqlx.DB) CHAttemptsRepository {
	return &chAttemptsRepository{ch: ch}
}

func (r *chAttemptsRepository) ListByCampaign(ctx context.Context, clinicID int64, campaignID string, state model.RecipientState, limit, offset int) ([]model.Recipient, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT campaign_id, idx, contact_id, phone, name, state, error, attempted_at
		FROM campgw.attempts_latest
		WHERE clinic_id = ? AND campaign_id = ?
	`
	args := []any{clinicID, campaignID}

	if state != "" {
		q += " AND state = ?"
		args = append(args, state.String())
	}

	q += " ORDER BY idx ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.Recipient
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
