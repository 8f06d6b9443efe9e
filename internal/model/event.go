package model

import "encoding/json"

// EventEnvelope is the payload other platform components (appointment
// workflow, inbound WhatsApp handler) publish to the clinic.events topic.
// The ingest worker turns it into a Notification.
type EventEnvelope struct {
	ID       string          `json:"id"` // producer-side ULID, used as notification id
	ClinicID int64           `json:"clinic_id"`
	UserID   *int64          `json:"user_id,omitempty"` // nil = clinic broadcast
	Type     string          `json:"type"`
	Title    string          `json:"title"`
	Message  string          `json:"message"`
	Priority string          `json:"priority,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}
