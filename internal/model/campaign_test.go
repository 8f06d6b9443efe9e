package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCampaignStatusTransitions(t *testing.T) {
	legal := []struct{ from, to CampaignStatus }{
		{CampaignPending, CampaignRunning},
		{CampaignRunning, CampaignPaused},
		{CampaignRunning, CampaignCompleted},
		{CampaignRunning, CampaignFailed},
		{CampaignPaused, CampaignRunning},
	}
	for _, e := range legal {
		assert.True(t, e.from.CanTransition(e.to), "%s -> %s should be legal", e.from, e.to)
	}

	illegal := []struct{ from, to CampaignStatus }{
		{CampaignPending, CampaignCompleted},
		{CampaignPending, CampaignPaused},
		{CampaignPaused, CampaignCompleted},
		{CampaignPaused, CampaignFailed},
		{CampaignCompleted, CampaignRunning},
		{CampaignFailed, CampaignRunning},
		{CampaignRunning, CampaignPending},
	}
	for _, e := range illegal {
		assert.False(t, e.from.CanTransition(e.to), "%s -> %s should be illegal", e.from, e.to)
	}
}

func TestParseCampaignStatus(t *testing.T) {
	st, ok := ParseCampaignStatus(" Running ")
	assert.True(t, ok)
	assert.Equal(t, CampaignRunning, st)

	_, ok = ParseCampaignStatus("archived")
	assert.False(t, ok)
}

func TestCampaignProgress(t *testing.T) {
	c := Campaign{Total: 0}
	assert.Equal(t, 0, c.Progress())

	c = Campaign{Total: 3, Sent: 1}
	assert.Equal(t, 33, c.Progress())

	c = Campaign{Total: 3, Sent: 1, Failed: 1}
	assert.Equal(t, 67, c.Progress())

	c = Campaign{Total: 2, Sent: 1, Failed: 1}
	assert.Equal(t, 100, c.Progress())
}

func TestNotificationEnums(t *testing.T) {
	assert.True(t, NotifCampaignProgress.Valid())
	assert.False(t, NotificationType("PING").Valid())

	p, ok := ParseNotificationPriority("")
	assert.True(t, ok)
	assert.Equal(t, PriorityMedium, p)

	p, ok = ParseNotificationPriority("urgent")
	assert.True(t, ok)
	assert.Equal(t, PriorityUrgent, p)

	_, ok = ParseNotificationPriority("critical")
	assert.False(t, ok)
}
