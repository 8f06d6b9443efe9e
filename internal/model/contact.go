package model

import "time"

// Contact is a clinic CRM contact, the source material for recipient
// selection. Tags is a comma-joined list, matching the dashboard's storage.
type Contact struct {
	ID        int64     `db:"id" json:"id"`
	ClinicID  int64     `db:"clinic_id" json:"clinic_id"`
	Name      string    `db:"name" json:"name"`
	Phone     string    `db:"phone" json:"phone"`
	CRMStatus string    `db:"crm_status" json:"crm_status"`
	Tags      string    `db:"tags" json:"tags"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
