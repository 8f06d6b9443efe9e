package model

import "time"

type RecipientState string

const (
	RecipientQueued RecipientState = "queued"
	RecipientSent   RecipientState = "sent"
	RecipientFailed RecipientState = "failed"
)

func (s RecipientState) String() string { return string(s) }

func (s RecipientState) Valid() bool {
	return s == RecipientQueued || s == RecipientSent || s == RecipientFailed
}

// Recipient is one row of a campaign's immutable snapshot, persisted in
// campaign_recipients. Idx preserves submission order; the dispatch worker
// walks rows in idx order and sets State exactly once.
type Recipient struct {
	CampaignID  string         `db:"campaign_id" json:"campaign_id"`
	Idx         int            `db:"idx" json:"idx"`
	ContactID   int64          `db:"contact_id" json:"contact_id"`
	Phone       string         `db:"phone" json:"phone"`
	Name        string         `db:"name" json:"name"`
	State       RecipientState `db:"state" json:"state"`
	Error       string         `db:"error" json:"error,omitempty"`
	AttemptedAt *time.Time     `db:"attempted_at" json:"attempted_at,omitempty"`
}
