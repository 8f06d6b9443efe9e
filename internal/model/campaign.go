package model

import (
	"fmt"
	"strings"
	"time"
)

type CampaignStatus string

const (
	CampaignPending   CampaignStatus = "pending"
	CampaignRunning   CampaignStatus = "running"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignFailed    CampaignStatus = "failed"
)

func (s CampaignStatus) String() string { return string(s) }

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignPending, CampaignRunning, CampaignPaused, CampaignCompleted, CampaignFailed:
		return true
	}
	return false
}

// ParseCampaignStatus normalizes input; empty or unknown => ("", false).
func ParseCampaignStatus(s string) (CampaignStatus, bool) {
	st := CampaignStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", false
	}
	return st, true
}

// transitions is the closed edge set of the campaign state machine.
// pending -> running; running -> paused|completed|failed; paused -> running.
var transitions = map[CampaignStatus][]CampaignStatus{
	CampaignPending: {CampaignRunning},
	CampaignRunning: {CampaignPaused, CampaignCompleted, CampaignFailed},
	CampaignPaused:  {CampaignRunning},
}

// CanTransition reports whether from -> to is a legal edge.
func (s CampaignStatus) CanTransition(to CampaignStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ErrIllegalTransition is returned when a status change violates the state machine.
type ErrIllegalTransition struct {
	From, To CampaignStatus
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal campaign transition %s -> %s", e.From, e.To)
}

// Campaign is the DB entity persisted in the campaigns table.
// The recipient snapshot lives in campaign_recipients, keyed by (campaign_id, idx).
type Campaign struct {
	ID        string         `db:"id" json:"id"`
	ClinicID  int64          `db:"clinic_id" json:"clinic_id"`
	Name      string         `db:"name" json:"name"`
	Message   string         `db:"message" json:"message"`
	MediaURL  string         `db:"media_url" json:"media_url,omitempty"`
	MediaType string         `db:"media_type" json:"media_type,omitempty"`
	Total     int            `db:"total" json:"total"`
	Sent      int            `db:"sent" json:"sent"`
	Failed    int            `db:"failed" json:"failed"`
	Status    CampaignStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// Progress returns the completion percentage, rounded, guarded for total=0.
func (c *Campaign) Progress() int {
	if c.Total <= 0 {
		return 0
	}
	return int(float64(c.Sent+c.Failed)/float64(c.Total)*100 + 0.5)
}
