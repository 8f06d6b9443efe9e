package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/clinicdesk/campaign-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSession builds a registered session without a real connection or
// pumps; delivery is observed on the send channel directly.
func testSession(h *Hub, clinicID int64, userID *int64, buffer int) *Session {
	s := &Session{
		hub:      h,
		clinicID: clinicID,
		userID:   userID,
		send:     make(chan []byte, buffer),
		done:     make(chan struct{}),
	}
	h.register(s)
	return s
}

func receiveFrame(t *testing.T, s *Session) frame {
	t.Helper()
	select {
	case b := <-s.send:
		var f frame
		require.NoError(t, json.Unmarshal(b, &f))
		return f
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
		return frame{}
	}
}

func event(clinicID int64, userID *int64, title string) model.Notification {
	return model.Notification{
		ID:       title,
		ClinicID: clinicID,
		UserID:   userID,
		Type:     model.NotifNewMessage,
		Title:    title,
		Priority: model.PriorityMedium,
	}
}

func ptr(v int64) *int64 { return &v }

func TestRouteIsolatesClinics(t *testing.T) {
	h := NewHub(nil, 8, time.Minute, time.Second)
	a := testSession(h, 1, nil, 8)
	b := testSession(h, 2, nil, 8)

	h.Route(event(1, nil, "for clinic 1"))

	f := receiveFrame(t, a)
	assert.Equal(t, "notification", f.Event)
	assert.Empty(t, b.send, "other clinic must not receive the event")
}

func TestRouteBroadcastsToEveryClinicSession(t *testing.T) {
	h := NewHub(nil, 8, time.Minute, time.Second)
	a := testSession(h, 1, nil, 8)
	b := testSession(h, 1, nil, 8)

	h.Route(event(1, nil, "broadcast"))

	receiveFrame(t, a)
	receiveFrame(t, b)
}

func TestRouteUserTargeting(t *testing.T) {
	h := NewHub(nil, 8, time.Minute, time.Second)
	alice := testSession(h, 1, ptr(10), 8)
	bob := testSession(h, 1, ptr(20), 8)
	anon := testSession(h, 1, nil, 8) // no user claim, sees everything for the clinic

	h.Route(event(1, ptr(10), "for alice"))

	receiveFrame(t, alice)
	receiveFrame(t, anon)
	assert.Empty(t, bob.send, "event addressed to another user")
}

func TestRouteClinicBroadcastReachesUserSessions(t *testing.T) {
	h := NewHub(nil, 8, time.Minute, time.Second)
	alice := testSession(h, 1, ptr(10), 8)

	h.Route(event(1, nil, "clinic-wide"))

	f := receiveFrame(t, alice)
	assert.Equal(t, "notification", f.Event)
}

func TestStuckSessionIsDroppedNotBlockedOn(t *testing.T) {
	h := NewHub(nil, 1, time.Minute, time.Second)
	stuck := testSession(h, 1, nil, 1)
	healthy := testSession(h, 1, nil, 8)
	require.Equal(t, 2, h.SessionCount())

	// fill the stuck session's buffer, then overflow it
	h.Route(event(1, nil, "fills buffer"))
	h.Route(event(1, nil, "overflows"))

	assert.Equal(t, 1, h.SessionCount(), "stuck session should be unregistered")
	select {
	case <-stuck.done:
	default:
		t.Fatal("stuck session was not closed")
	}

	// the healthy session got both events
	receiveFrame(t, healthy)
	receiveFrame(t, healthy)
}

func TestNotifyAfterCloseIsNoop(t *testing.T) {
	h := NewHub(nil, 1, time.Minute, time.Second)
	s := testSession(h, 1, nil, 1)
	s.close()
	require.Zero(t, h.SessionCount())

	s.Notify(event(1, nil, "late event")) // must not panic or re-register
	assert.Zero(t, h.SessionCount())
}

func TestFramePayloadCarriesNotification(t *testing.T) {
	h := NewHub(nil, 8, time.Minute, time.Second)
	s := testSession(h, 3, nil, 8)

	n := event(3, nil, "Appointment cancelled")
	n.Type = model.NotifAppointmentCancelled
	h.Route(n)

	f := receiveFrame(t, s)
	data, err := json.Marshal(f.Data)
	require.NoError(t, err)

	var got model.Notification
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, model.NotifAppointmentCancelled, got.Type)
	assert.Equal(t, "Appointment cancelled", got.Title)
	assert.Equal(t, int64(3), got.ClinicID)
}
