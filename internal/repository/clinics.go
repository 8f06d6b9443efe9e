package repository

import (
	"context"
	"database/sql"

	"github.com/clinicdesk/campaign-gateway/internal/model"
	"github.com/jmoiron/sqlx"
)

type ClinicsRepository interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*model.Clinic, error)
}

type ClinicsRepositoryImpl struct {
	db *sqlx.DB
}

func NewClinicsRepository(db *sqlx.DB) *ClinicsRepositoryImpl {
	return &ClinicsRepositoryImpl{db: db}
}

var _ ClinicsRepository = (*ClinicsRepositoryImpl)(nil)

func (r *ClinicsRepositoryImpl) GetByAPIKey(ctx context.Context, apiKey string) (*model.Clinic, error) {
	var c model.Clinic
	err := r.db.GetContext(ctx, &c, `
		SELECT id, name, api_key, status, rate_limit_rps, created_at, updated_at
		  FROM clinics
		 WHERE api_key = ? LIMIT 1
	`, apiKey)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
