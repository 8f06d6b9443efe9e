package selector

import (
	"testing"

	"github.com/clinicdesk/campaign-gateway/internal/model"
	"github.com/stretchr/testify/assert"
)

func contacts() []model.Contact {
	return []model.Contact{
		{ID: 1, Name: "Ali Hassan", Phone: "+962700000001", CRMStatus: "active", Tags: "vip,followup"},
		{ID: 2, Name: "Sara Khalil", Phone: "+962700000002", CRMStatus: "active", Tags: "followup"},
		{ID: 3, Name: "Omar Darwish", Phone: "+962700000003", CRMStatus: "lead", Tags: "new"},
		{ID: 1, Name: "Ali Hassan", Phone: "+962700000001", CRMStatus: "active", Tags: "vip,followup"}, // duplicate
	}
}

func TestSelectStatusAndTagAreANDed(t *testing.T) {
	got := Select(contacts(), Filter{CRMStatus: "active", Tag: "vip"})
	assert.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
}

func TestSelectDedupesByContactID(t *testing.T) {
	got := Select(contacts(), Filter{})
	assert.Len(t, got, 3)
}

func TestSelectTagMembershipNotSubstring(t *testing.T) {
	cs := []model.Contact{
		{ID: 10, Name: "A", CRMStatus: "active", Tags: "vip-gold"},
		{ID: 11, Name: "B", CRMStatus: "active", Tags: "vip, gold"},
	}
	got := Select(cs, Filter{Tag: "vip"})
	assert.Len(t, got, 1)
	assert.Equal(t, int64(11), got[0].ID)
}

func TestSelectFreeTextSearch(t *testing.T) {
	got := Select(contacts(), Filter{Search: "sara"})
	assert.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)

	got = Select(contacts(), Filter{Search: "0003"})
	assert.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID)
}

func TestSelectPreservesInputOrder(t *testing.T) {
	got := Select(contacts(), Filter{CRMStatus: "active"})
	assert.Equal(t, []int64{1, 2}, []int64{got[0].ID, got[1].ID})
}
