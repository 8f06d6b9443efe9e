package model

import (
	"encoding/json"
	"strings"
	"time"
)

type NotificationType string

const (
	NotifNewAppointment       NotificationType = "NEW_APPOINTMENT"
	NotifAppointmentCancelled NotificationType = "APPOINTMENT_CANCELLED"
	NotifNewMessage           NotificationType = "NEW_MESSAGE"
	NotifCampaignProgress     NotificationType = "CAMPAIGN_PROGRESS"
	NotifCampaignCompleted    NotificationType = "CAMPAIGN_COMPLETED"
	NotifMessageFailed        NotificationType = "MESSAGE_FAILED"
	NotifSystemError          NotificationType = "SYSTEM_ERROR"
)

func (t NotificationType) String() string { return string(t) }

func (t NotificationType) Valid() bool {
	switch t {
	case NotifNewAppointment, NotifAppointmentCancelled, NotifNewMessage,
		NotifCampaignProgress, NotifCampaignCompleted, NotifMessageFailed, NotifSystemError:
		return true
	}
	return false
}

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "LOW"
	PriorityMedium NotificationPriority = "MEDIUM"
	PriorityHigh   NotificationPriority = "HIGH"
	PriorityUrgent NotificationPriority = "URGENT"
)

func (p NotificationPriority) String() string { return string(p) }

func (p NotificationPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ParseNotificationPriority normalizes input; empty => MEDIUM.
// Returns (value, true) if valid; otherwise (MEDIUM, false).
func ParseNotificationPriority(s string) (NotificationPriority, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return PriorityMedium, true
	case "LOW":
		return PriorityLow, true
	case "MEDIUM":
		return PriorityMedium, true
	case "HIGH":
		return PriorityHigh, true
	case "URGENT":
		return PriorityUrgent, true
	default:
		return PriorityMedium, false
	}
}

// Notification is the durable event record persisted in the notifications
// table. UserID is nil for clinic-wide broadcasts. Read state is the only
// field mutated after insert.
type Notification struct {
	ID         string               `db:"id" json:"id"`
	ClinicID   int64                `db:"clinic_id" json:"clinic_id"`
	UserID     *int64               `db:"user_id" json:"user_id,omitempty"`
	Type       NotificationType     `db:"type" json:"type"`
	Title      string               `db:"title" json:"title"`
	Message    string               `db:"message" json:"message"`
	Priority   NotificationPriority `db:"priority" json:"priority"`
	CampaignID *string              `db:"campaign_id" json:"campaign_id,omitempty"`
	ContactID  *int64               `db:"contact_id" json:"contact_id,omitempty"`
	Metadata   json.RawMessage      `db:"metadata" json:"metadata,omitempty"`
	IsRead     bool                 `db:"is_read" json:"is_read"`
	ReadAt     *time.Time           `db:"read_at" json:"read_at,omitempty"`
	CreatedAt  time.Time            `db:"created_at" json:"created_at"`
}
