package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/clinicdesk/campaign-gateway/internal/model"
	"github.com/clinicdesk/campaign-gateway/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memNotifStore mimics the notifications table, including the idempotent
// insert semantics.
type memNotifStore struct {
	mu   sync.Mutex
	rows map[string]model.Notification
}

func newMemNotifStore() *memNotifStore {
	return &memNotifStore{rows: make(map[string]model.Notification)}
}

func (m *memNotifStore) Insert(_ context.Context, n model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.rows[n.ID]; dup {
		return nil // INSERT IGNORE
	}
	n.CreatedAt = time.Now()
	m.rows[n.ID] = n
	return nil
}

func (m *memNotifStore) ListByClinic(_ context.Context, clinicID int64, userID *int64, unreadOnly bool, _, _ int) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.rows {
		if n.ClinicID != clinicID {
			continue
		}
		if userID != nil && n.UserID != nil && *n.UserID != *userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *memNotifStore) UnreadCount(ctx context.Context, clinicID int64, userID *int64) (int, error) {
	rows, err := m.ListByClinic(ctx, clinicID, userID, true, 0, 0)
	return len(rows), err
}

func (m *memNotifStore) MarkRead(_ context.Context, clinicID int64, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	if !ok || n.ClinicID != clinicID {
		return repository.ErrNotificationNotFound
	}
	now := time.Now()
	n.IsRead = true
	n.ReadAt = &now
	m.rows[id] = n
	return nil
}

func (m *memNotifStore) MarkAllRead(_ context.Context, clinicID int64, userID *int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	now := time.Now()
	for id, n := range m.rows {
		if n.ClinicID != clinicID || n.IsRead {
			continue
		}
		if userID != nil && n.UserID != nil && *n.UserID != *userID {
			continue
		}
		n.IsRead = true
		n.ReadAt = &now
		m.rows[id] = n
		count++
	}
	return count, nil
}

var _ repository.NotificationsRepository = (*memNotifStore)(nil)

func validEvent() model.Notification {
	return model.Notification{
		ClinicID: 7,
		Type:     model.NotifNewAppointment,
		Title:    "New appointment",
		Message:  "Ali Hassan booked for Monday 10:00",
	}
}

func TestPublishPersistsWithoutLiveSubscribers(t *testing.T) {
	store := newMemNotifStore()
	b := New(store, nil) // no redis, nobody connected

	require.NoError(t, b.Publish(context.Background(), validEvent()))

	rows, err := store.ListByClinic(context.Background(), 7, nil, true, 50, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "New appointment", rows[0].Title)
	assert.False(t, rows[0].IsRead)
}

func TestPublishFillsDefaults(t *testing.T) {
	store := newMemNotifStore()
	b := New(store, nil)

	require.NoError(t, b.Publish(context.Background(), validEvent()))

	rows, err := store.ListByClinic(context.Background(), 7, nil, false, 50, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NotEmpty(t, rows[0].ID)
	assert.Equal(t, model.PriorityMedium, rows[0].Priority)
}

func TestPublishRejectsMalformedEvents(t *testing.T) {
	cases := map[string]func(*model.Notification){
		"missing clinic": func(n *model.Notification) { n.ClinicID = 0 },
		"unknown type":   func(n *model.Notification) { n.Type = "PAGER_BEEP" },
		"bad priority":   func(n *model.Notification) { n.Priority = "WHENEVER" },
		"empty title":    func(n *model.Notification) { n.Title = "" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			store := newMemNotifStore()
			b := New(store, nil)

			n := validEvent()
			mutate(&n)

			err := b.Publish(context.Background(), n)
			require.ErrorIs(t, err, ErrInvalidEvent)

			count, cerr := store.UnreadCount(context.Background(), 7, nil)
			require.NoError(t, cerr)
			assert.Zero(t, count, "rejected event must not be persisted")
		})
	}
}

func TestPublishIsIdempotentOnEventID(t *testing.T) {
	store := newMemNotifStore()
	b := New(store, nil)

	n := validEvent()
	n.ID = "01J0000000000000000000000A"

	require.NoError(t, b.Publish(context.Background(), n))
	require.NoError(t, b.Publish(context.Background(), n)) // redelivery

	count, err := store.UnreadCount(context.Background(), 7, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChannelNaming(t *testing.T) {
	assert.Equal(t, "notify:42", Channel(42))
	assert.Equal(t, "notify:*", ChannelPattern)
}
