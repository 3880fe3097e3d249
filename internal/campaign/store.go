// Package campaign turns a held ContentBundle into a persisted Campaign and
// lists the campaigns owned by the session. Every call is a fresh request:
// nothing is cached, deduplicated or retried.
package campaign

import (
	"context"
	"strings"

	"campaigner/internal/api"
	"campaigner/internal/logging"
	"campaigner/internal/types"
)

// Service is the part of api.Client used here.
type Service interface {
	SaveCampaign(ctx context.Context, req api.SaveCampaignRequest) (types.Campaign, error)
	ListCampaigns(ctx context.Context) ([]types.Campaign, error)
}

// SessionReader is the part of session.Context used here.
type SessionReader interface {
	Current() (types.BrandProfile, error)
}

// Store is the campaign store client.
type Store struct {
	svc     Service
	session SessionReader
}

// NewStore creates a store client.
func NewStore(svc Service, session SessionReader) *Store {
	return &Store{svc: svc, session: session}
}

// Save persists bundle as a new campaign titled after prompt.
//
// A nil or empty bundle fails with types.ErrNothingToSave without a call.
// Saving the same bundle twice creates two campaigns. The returned campaign
// starts NotStarted on every platform of the session profile.
func (s *Store) Save(ctx context.Context, bundle *types.ContentBundle, prompt string) (types.Campaign, error) {
	if bundle == nil || bundle.IsEmpty() {
		return types.Campaign{}, types.Fail(types.ErrNothingToSave, "Generate content before saving.")
	}
	profile, err := s.session.Current()
	if err != nil {
		return types.Campaign{}, err
	}

	prompt = strings.TrimSpace(prompt)
	title := types.TitleFromPrompt(prompt)

	timer := logging.StartTimer(logging.CategoryCampaign, "Save")
	defer timer.Stop()

	saved, err := s.svc.SaveCampaign(ctx, api.NewSaveCampaignRequest(title, prompt, *bundle))
	if err != nil {
		wrapped := types.Rekind(err, types.ErrPersistenceFailed, types.FallbackPersistence)
		logging.Get(logging.CategoryCampaign).With("kind", types.KindName(wrapped), "status", wrapped.Status).
			Error("Save failed: %v", wrapped)
		return types.Campaign{}, wrapped
	}

	if saved.Title == "" {
		saved.Title = title
	}
	if saved.Prompt == "" {
		saved.Prompt = prompt
	}
	if saved.Content.IsEmpty() {
		saved.Content = *bundle
	}
	saved = withInitialStatus(saved, profile.Platforms)

	logging.Campaign("Saved campaign %s (%q)", saved.ID, saved.Title)
	return saved, nil
}

// List returns the session's campaigns in the order the service returned
// them. No campaigns is an empty slice, not an error.
func (s *Store) List(ctx context.Context) ([]types.Campaign, error) {
	profile, err := s.session.Current()
	if err != nil {
		return nil, err
	}

	timer := logging.StartTimer(logging.CategoryCampaign, "List")
	defer timer.Stop()

	campaigns, err := s.svc.ListCampaigns(ctx)
	if err != nil {
		wrapped := types.Rekind(err, types.ErrPersistenceFailed, types.FallbackList)
		logging.Get(logging.CategoryCampaign).With("kind", types.KindName(wrapped), "status", wrapped.Status).
			Error("List failed: %v", wrapped)
		return nil, wrapped
	}

	out := make([]types.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, withInitialStatus(c, profile.Platforms))
	}
	logging.CampaignDebug("Listed %d campaigns", len(out))
	return out, nil
}

// Find returns the campaign with id from a fresh listing.
func (s *Store) Find(ctx context.Context, id string) (types.Campaign, error) {
	campaigns, err := s.List(ctx)
	if err != nil {
		return types.Campaign{}, err
	}
	for _, c := range campaigns {
		if c.ID == id {
			return c, nil
		}
	}
	return types.Campaign{}, types.Fail(types.ErrInvalidInput, "Campaign not found: "+id)
}

// withInitialStatus fills a NotStarted entry for every platform that has none.
func withInitialStatus(c types.Campaign, platforms []types.PlatformID) types.Campaign {
	status := make(map[types.PlatformID]types.PublishState, len(platforms)+len(c.PublishStatus))
	for k, v := range c.PublishStatus {
		status[k] = v
	}
	for _, p := range platforms {
		if _, ok := status[p]; !ok {
			status[p] = types.NotStarted()
		}
	}
	c.PublishStatus = status
	return c
}
