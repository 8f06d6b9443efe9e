package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/clinicdesk/campaign-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationsRepository is the durable side of the event bus. Insert
// happens before any live fan-out; rows are mutated only by read acks.
type NotificationsRepository interface {
	Insert(ctx context.Context, n model.Notification) error
	// ListByClinic returns notifications newest-first. userID scopes the
	// result to rows addressed to that user plus clinic broadcasts.
	ListByClinic(ctx context.Context, clinicID int64, userID *int64, unreadOnly bool, limit, offset int) ([]model.Notification, error)
	UnreadCount(ctx context.Context, clinicID int64, userID *int64) (int, error)
	MarkRead(ctx context.Context, clinicID int64, id string) error
	MarkAllRead(ctx context.Context, clinicID int64, userID *int64) (int64, error)
}

type NotificationsRepositoryImpl struct {
	db *sqlx.DB
}

func NewNotificationsRepository(db *sqlx.DB) *NotificationsRepositoryImpl {
	return &NotificationsRepositoryImpl{db: db}
}

var _ NotificationsRepository = (*NotificationsRepositoryImpl)(nil)

func (r *NotificationsRepositoryImpl) Insert(ctx context.Context, n model.Notification) error {
	// INSERT IGNORE keeps replays idempotent: the ingest worker commits
	// Kafka offsets after the durable write, so the same producer-assigned
	// id can arrive twice.
	const q = `
		INSERT IGNORE INTO notifications
		    (id, clinic_id, user_id, type, title, message, priority, campaign_id, contact_id, metadata, is_read, created_at)
		VALUES
		    (?,  ?,         ?,       ?,    ?,     ?,       ?,        ?,           ?,          ?,        0,       NOW())
	`
	_, err := r.db.ExecContext(ctx, q,
		n.ID, n.ClinicID, n.UserID, n.Type.String(), n.Title, n.Message,
		n.Priority.String(), n.CampaignID, n.ContactID, []byte(n.Metadata),
	)
	return err
}

// userScope appends the "mine or broadcast" predicate shared by reads.
func userScope(q string, args []any, userID *int64) (string, []any) {
	if userID != nil {
		q += " AND (user_id IS NULL OR user_id = ?)"
		args = append(args, *userID)
	}
	return q, args
}

func (r *NotificationsRepositoryImpl) ListByClinic(ctx context.Context, clinicID int64, userID *int64, unreadOnly bool, limit, offset int) ([]model.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT id, clinic_id, user_id, type, title, message, priority, campaign_id, contact_id, metadata, is_read, read_at, created_at
		  FROM notifications
		 WHERE clinic_id = ?
	`
	args := []any{clinicID}
	q, args = userScope(q, args, userID)
	if unreadOnly {
		q += " AND is_read = 0"
	}
	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.Notification
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *NotificationsRepositoryImpl) UnreadCount(ctx context.Context, clinicID int64, userID *int64) (int, error) {
	q := `SELECT COUNT(*) FROM notifications WHERE clinic_id = ? AND is_read = 0`
	args := []any{clinicID}
	q, args = userScope(q, args, userID)

	var n int
	if err := r.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *NotificationsRepositoryImpl) MarkRead(ctx context.Context, clinicID int64, id string) error {
	const q = `
		UPDATE notifications
		   SET is_read = 1, read_at = NOW()
		 WHERE clinic_id = ? AND id = ? AND is_read = 0
	`
	res, err := r.db.ExecContext(ctx, q, clinicID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// distinguish missing from already-read
		var exists int
		gerr := r.db.GetContext(ctx, &exists, `SELECT 1 FROM notifications WHERE clinic_id = ? AND id = ? LIMIT 1`, clinicID, id)
		if gerr == sql.ErrNoRows {
			return ErrNotificationNotFound
		}
		return gerr
	}
	return nil
}

func (r *NotificationsRepositoryImpl) MarkAllRead(ctx context.Context, clinicID int64, userID *int64) (int64, error) {
	q := `UPDATE notifications SET is_read = 1, read_at = NOW() WHERE clinic_id = ? AND is_read = 0`
	args := []any{clinicID}
	q, args = userScope(q, args, userID)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
