// Package selector filters clinic contacts down to a campaign's target
// list. It is a pure function over an in-memory contact slice: CRM-status
// and tag predicates combine with AND, and the result is deduped by
// contact id before the snapshot is taken.
package selector

import (
	"strings"

	"github.com/clinicdesk/campaign-gateway/internal/model"
)

// Filter is the predicate set submitted by the dashboard.
type Filter struct {
	CRMStatus string // exact match on the contact's status field; "" = any
	Tag       string // membership in the comma-joined tag list; "" = any
	Search    string // case-insensitive substring over name and phone; "" = any
}

// Select returns the contacts matching every non-empty predicate, in input
// order, with duplicates (by id) removed.
func Select(contacts []model.Contact, f Filter) []model.Contact {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	tag := strings.TrimSpace(f.Tag)

	seen := make(map[int64]struct{}, len(contacts))
	out := make([]model.Contact, 0, len(contacts))
	for _, c := range contacts {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		if f.CRMStatus != "" && c.CRMStatus != f.CRMStatus {
			continue
		}
		if tag != "" && !hasTag(c.Tags, tag) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(c.Phone, search) {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

func hasTag(joined, want string) bool {
	for _, t := range strings.Split(joined, ",") {
		if strings.EqualFold(strings.TrimSpace(t), want) {
			return true
		}
	}
	return false
}
