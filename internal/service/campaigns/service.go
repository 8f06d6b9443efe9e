// Package campaigns is the application service behind the campaign API:
// creation with recipient snapshotting, pause/resume, and the status
// projection the dashboard polls.
package campaigns

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clinicdesk/campaign-gateway/internal/dispatch"
	"github.com/clinicdesk/campaign-gateway/internal/logger"
	"github.com/clinicdesk/campaign-gateway/internal/model"
	"github.com/clinicdesk/campaign-gateway/internal/repository"
	"github.com/clinicdesk/campaign-gateway/internal/util"
	"go.uber.org/zap"
)

var (
	ErrBlankMessage = errors.New("campaign message is blank")
	ErrNoRecipients = errors.New("campaign has no recipients")
	ErrBlankName    = errors.New("campaign name is blank")
	ErrNotOwned     = errors.New("campaign belongs to another clinic")
)

// NewRecipient is one entry of the submitted target list.
type NewRecipient struct {
	ContactID int64  `json:"id"`
	Phone     string `json:"phone"`
	Name      string `json:"name"`
}

// View is the polled read model: campaign plus derived progress.
type View struct {
	model.Campaign
	Progress int `json:"progress"`
}

type Service struct {
	campaigns repository.CampaignsRepository
	contacts  repository.ContactsRepository
	manager   *dispatch.Manager
}

func New(campaigns repository.CampaignsRepository, contacts repository.ContactsRepository, manager *dispatch.Manager) *Service {
	return &Service{campaigns: campaigns, contacts: contacts, manager: manager}
}

// Create validates the submission, snapshots the deduped recipient list,
// persists the campaign as pending and hands it to the dispatch manager.
// The snapshot is immutable: later contact edits or deletes do not touch it.
// Recipients submitted without a phone are resolved from the clinic CRM by
// contact id.
func (s *Service) Create(ctx context.Context, clinicID int64, name, message, mediaURL, mediaType string, recipients []NewRecipient) (*model.Campaign, error) {
	name = strings.TrimSpace(name)
	message = strings.TrimSpace(message)
	if name == "" {
		return nil, ErrBlankName
	}
	if message == "" {
		return nil, ErrBlankMessage
	}

	crm, err := s.resolveContacts(ctx, clinicID, recipients)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(recipients))
	snapshot := make([]model.Recipient, 0, len(recipients))
	campID := util.NewID()
	for _, r := range recipients {
		if _, dup := seen[r.ContactID]; dup {
			continue
		}
		if c, ok := crm[r.ContactID]; ok {
			if r.Phone == "" {
				r.Phone = c.Phone
			}
			if r.Name == "" {
				r.Name = c.Name
			}
		}
		phone := util.NormalizePhone(r.Phone)
		if phone == "" {
			continue
		}
		seen[r.ContactID] = struct{}{}
		snapshot = append(snapshot, model.Recipient{
			CampaignID: campID,
			Idx:        len(snapshot),
			ContactID:  r.ContactID,
			Phone:      phone,
			Name:       strings.TrimSpace(r.Name),
			State:      model.RecipientQueued,
		})
	}
	if len(snapshot) == 0 {
		return nil, ErrNoRecipients
	}

	camp := model.Campaign{
		ID:        campID,
		ClinicID:  clinicID,
		Name:      name,
		Message:   message,
		MediaURL:  mediaURL,
		MediaType: mediaType,
		Total:     len(snapshot),
		Status:    model.CampaignPending,
	}
	if err := s.campaigns.Create(ctx, camp, snapshot); err != nil {
		return nil, fmt.Errorf("persist campaign: %w", err)
	}

	if err := s.manager.Start(ctx, camp.ID); err != nil {
		// The record stays pending; the manager promotes pending campaigns
		// when a slot frees up or at the next boot.
		logger.Log.Warn("campaigns: deferred start", zap.String("campaign", camp.ID), zap.Error(err))
	}

	created, err := s.campaigns.GetByID(ctx, camp.ID)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// resolveContacts looks up the CRM rows for submitted recipients that omit
// a phone number.
func (s *Service) resolveContacts(ctx context.Context, clinicID int64, recipients []NewRecipient) (map[int64]model.Contact, error) {
	var ids []int64
	for _, r := range recipients {
		if r.Phone == "" && r.ContactID > 0 {
			ids = append(ids, r.ContactID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.contacts.GetByIDs(ctx, clinicID, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve contacts: %w", err)
	}
	out := make(map[int64]model.Contact, len(rows))
	for _, c := range rows {
		out[c.ID] = c
	}
	return out, nil
}

// List returns the clinic's campaigns newest-first with derived progress.
func (s *Service) List(ctx context.Context, clinicID int64, limit, offset int) ([]View, error) {
	rows, err := s.campaigns.ListByClinic(ctx, clinicID, limit, offset)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(rows))
	for _, c := range rows {
		views = append(views, View{Campaign: c, Progress: c.Progress()})
	}
	return views, nil
}

// Get returns one campaign's projection, scoped to the clinic.
func (s *Service) Get(ctx context.Context, clinicID int64, id string) (*View, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.ClinicID != clinicID {
		return nil, ErrNotOwned
	}
	return &View{Campaign: *c, Progress: c.Progress()}, nil
}

// Pause requests a cooperative stop of the campaign's worker.
func (s *Service) Pause(ctx context.Context, clinicID int64, id string) error {
	if _, err := s.Get(ctx, clinicID, id); err != nil {
		return err
	}
	return s.manager.Pause(id)
}

// Resume restarts a paused campaign without re-sending attempted recipients.
func (s *Service) Resume(ctx context.Context, clinicID int64, id string) error {
	if _, err := s.Get(ctx, clinicID, id); err != nil {
		return err
	}
	return s.manager.Resume(ctx, id)
}
