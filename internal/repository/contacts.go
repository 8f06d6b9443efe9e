package repository

import (
	"context"

	"github.com/clinicdesk/campaign-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

// ContactsRepository reads the clinic CRM contacts the recipient selector
// filters over.
type ContactsRepository interface {
	ListByClinic(ctx context.Context, clinicID int64) ([]model.Contact, error)
	GetByIDs(ctx context.Context, clinicID int64, ids []int64) ([]model.Contact, error)
}

type ContactsRepositoryImpl struct {
	db *sqlx.DB
}

func NewContactsRepository(db *sqlx.DB) *ContactsRepositoryImpl {
	return &ContactsRepositoryImpl{db: db}
}

var _ ContactsRepository = (*ContactsRepositoryImpl)(nil)

func (r *ContactsRepositoryImpl) ListByClinic(ctx context.Context, clinicID int64) ([]model.Contact, error) {
	var rows []model.Contact
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, clinic_id, name, phone, crm_status, tags, created_at, updated_at
		  FROM contacts
		 WHERE clinic_id = ?
		 ORDER BY name ASC
	`, clinicID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ContactsRepositoryImpl) GetByIDs(ctx context.Context, clinicID int64, ids []int64) ([]model.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const base = `
		SELECT id, clinic_id, name, phone, crm_status, tags, created_at, updated_at
		  FROM contacts
		 WHERE clinic_id = ? AND id IN (?)
	`
	query, args, err := sqlx.In(base, clinicID, ids)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var rows []model.Contact
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
