package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/clinicdesk/campaign-gateway/internal/model"
	"github.com/clinicdesk/campaign-gateway/internal/repository"
	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifStore struct {
	mu   sync.Mutex
	rows map[string]model.Notification
}

func newFakeNotifStore() *fakeNotifStore {
	return &fakeNotifStore{rows: make(map[string]model.Notification)}
}

func (f *fakeNotifStore) Insert(_ context.Context, n model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, dup := f.rows[n.ID]; dup {
		return nil
	}
	f.rows[n.ID] = n
	return nil
}

func (f *fakeNotifStore) ListByClinic(_ context.Context, clinicID int64, userID *int64, unreadOnly bool, _, _ int) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Notification
	for _, n := range f.rows {
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

func (f *fakeNotifStore) UnreadCount(ctx context.Context, clinicID int64, userID *int64) (int, error) {
	rows, err := f.ListByClinic(ctx, clinicID, userID, true, 0, 0)
	return len(rows), err
}

func (f *fakeNotifStore) MarkRead(_ context.Context, clinicID int64, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.rows[id]
	if !ok || n.ClinicID != clinicID {
		return repository.ErrNotificationNotFound
	}
	now := time.Now()
	n.IsRead = true
	n.ReadAt = &now
	f.rows[id] = n
	return nil
}

func (f *fakeNotifStore) MarkAllRead(_ context.Context, clinicID int64, userID *int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	now := time.Now()
	for id, n := range f.rows {
		if n.ClinicID != clinicID || n.IsRead {
			continue
		}
		if userID != nil && n.UserID != nil && *n.UserID != *userID {
			continue
		}
		n.IsRead = true
		n.ReadAt = &now
		f.rows[id] = n
		count++
	}
	return count, nil
}

var _ repository.NotificationsRepository = (*fakeNotifStore)(nil)

func seedNotifications(t *testing.T, store *fakeNotifStore, clinicID int64, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		require.NoError(t, store.Insert(context.Background(), model.Notification{
			ID:       fmt.Sprintf("n%d", i),
			ClinicID: clinicID,
			Type:     model.NotifNewMessage,
			Title:    fmt.Sprintf("message %d", i),
			Priority: model.PriorityMedium,
		}))
	}
}

func doGet(handler echo.HandlerFunc, target string, clinicID int64) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if clinicID > 0 {
		c.Set("clinic_id", clinicID)
	}
	_ = handler(c)
	return rec
}

func TestListNotificationsUnreadFilter(t *testing.T) {
	store := newFakeNotifStore()
	seedNotifications(t, store, 1, 3)
	require.NoError(t, store.MarkRead(context.Background(), 1, "n0"))

	rec := doGet(listNotificationsHandler(store), "/v1/notifications?unread=true", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, float64(2), resp["count"])

	rec = doGet(listNotificationsHandler(store), "/v1/notifications", 1)
	resp = decodeBody(t, rec)
	assert.Equal(t, float64(3), resp["count"])
}

func TestMarkAllReadZeroesUnreadCount(t *testing.T) {
	store := newFakeNotifStore()
	seedNotifications(t, store, 1, 5)

	rec := doGet(unreadCountHandler(store), "/v1/notifications/unread-count", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(5), decodeBody(t, rec)["unread"])

	rec = doJSON(markAllReadHandler(store), http.MethodPost, "/v1/notifications/read-all", "", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(5), resp["updated"])

	rec = doGet(unreadCountHandler(store), "/v1/notifications/unread-count", 1)
	assert.Equal(t, float64(0), decodeBody(t, rec)["unread"])
}

func TestMarkReadUnknownNotificationIs404(t *testing.T) {
	store := newFakeNotifStore()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/notifications/ghost/read", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("clinic_id", int64(1))
	c.SetParamNames("id")
	c.SetParamValues("ghost")
	_ = markReadHandler(store)(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationsScopedToClinic(t *testing.T) {
	store := newFakeNotifStore()
	seedNotifications(t, store, 1, 2)
	require.NoError(t, store.Insert(context.Background(), model.Notification{
		ID: "other", ClinicID: 2, Type: model.NotifNewMessage, Title: "t", Priority: model.PriorityMedium,
	}))

	rec := doGet(unreadCountHandler(store), "/v1/notifications/unread-count", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeBody(t, rec)["unread"])

	rec = doGet(unreadCountHandler(store), "/v1/notifications/unread-count", 2)
	assert.Equal(t, float64(1), decodeBody(t, rec)["unread"])
}
