// Package studio wires the lifecycle components into one object the CLI
// drives: onboarding, generating, saving, listing and publishing campaigns
// on behalf of a single session.
package studio

import (
	"context"
	"fmt"

	"campaigner/internal/api"
	"campaigner/internal/campaign"
	"campaigner/internal/config"
	"campaigner/internal/generation"
	"campaigner/internal/logging"
	"campaigner/internal/publish"
	"campaigner/internal/session"
	"campaigner/internal/store"
	"campaigner/internal/types"
	"campaigner/internal/usage"
)

// Studio owns one instance of every lifecycle component.
type Studio struct {
	Client     *api.Client
	Session    *session.Context
	Generation *generation.Manager
	Campaigns  *campaign.Store
	Publisher  *publish.Coordinator

	store *store.LocalStore
	usage *usage.Tracker
}

// New builds a studio from cfg. st and tracker are optional; with st the
// session, cookies, draft and publish journal carry over between runs.
func New(cfg *config.Config, st *store.LocalStore, tracker *usage.Tracker) (*Studio, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "studio.New")
	defer timer.Stop()

	apiCfg := api.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.GetAPITimeout(),
		UserAgent: cfg.API.UserAgent,
		SlowCall:  cfg.GetSlowCallThreshold(),
	}
	if tracker != nil {
		apiCfg.Recorder = tracker
	}
	if st != nil {
		jar, err := st.NewCookieJar(cfg.API.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open cookie jar: %w", err)
		}
		apiCfg.Jar = jar
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, err
	}

	s := &Studio{Client: client, store: st, usage: tracker}

	genOpts := generation.Options{RejectOverlapping: cfg.Generation.RejectOverlapping}
	pubOpts := publish.Options{MaxParallel: cfg.GetMaxParallel(), ClaimTTL: cfg.GetClaimTTL()}
	if st != nil {
		s.Session = session.NewContext(st)
		genOpts.Drafts = st
		pubOpts.Journal = st
		pubOpts.Claims = st
	} else {
		s.Session = session.NewContext(nil)
	}
	s.Generation = generation.NewManager(client, s.Session, genOpts)
	s.Campaigns = campaign.NewStore(client, s.Session)
	s.Publisher = publish.NewCoordinator(client, s.Session, pubOpts)

	if st != nil {
		if err := s.resume(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// resume restores the persisted session, draft and publish outcomes.
func (s *Studio) resume() error {
	profile, ok, err := s.store.LoadProfile()
	if err != nil {
		return err
	}
	if ok {
		if err := s.Session.Resume(profile); err != nil {
			logging.Get(logging.CategorySession).Warn("Discarding invalid stored profile: %v", err)
		}
	}

	draft, ok, err := s.store.LoadDraft()
	if err != nil {
		return err
	}
	if ok {
		s.Generation.Restore(draft)
	}

	latest, err := s.store.LatestPublishStates()
	if err != nil {
		return err
	}
	for campaignID, platforms := range latest {
		for platform, state := range platforms {
			s.Publisher.Seed(campaignID, platform, state)
		}
	}
	logging.Boot("Resumed state: session=%v draft=%v journaled campaigns=%d", s.Session.Active(), ok, len(latest))
	return nil
}

// Onboard submits a brand profile and establishes the session.
func (s *Studio) Onboard(ctx context.Context, profile types.BrandProfile) (types.BrandProfile, error) {
	return session.Onboard(ctx, s.Client, s.Session, profile)
}

// Generate requests a new bundle for prompt; see generation.Manager.Generate.
func (s *Studio) Generate(ctx context.Context, prompt string) (types.ContentBundle, error) {
	return s.Generation.Generate(ctx, prompt)
}

// Draft returns the held draft.
func (s *Studio) Draft() (types.Draft, bool) {
	return s.Generation.Current()
}

// Discard drops the held draft without saving it.
func (s *Studio) Discard() bool {
	return s.Generation.Discard()
}

// Save persists the held draft as a new campaign. Without a held draft it
// fails with types.ErrNothingToSave.
func (s *Studio) Save(ctx context.Context) (types.Campaign, error) {
	draft, ok := s.Generation.Current()
	var bundle *types.ContentBundle
	if ok {
		content := draft.Content
		bundle = &content
	}

	c, err := s.Campaigns.Save(ctx, bundle, draft.Prompt)
	if err != nil {
		return types.Campaign{}, err
	}
	s.Generation.MarkSaved(draft.ID, c.ID)
	return s.Publisher.StatusFor(c), nil
}

// List returns the session's campaigns with their current publish status.
func (s *Studio) List(ctx context.Context) ([]types.Campaign, error) {
	campaigns, err := s.Campaigns.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range campaigns {
		campaigns[i] = s.Publisher.StatusFor(campaigns[i])
	}
	return campaigns, nil
}

// Show returns one campaign with its current publish status.
func (s *Studio) Show(ctx context.Context, id string) (types.Campaign, error) {
	c, err := s.Campaigns.Find(ctx, id)
	if err != nil {
		return types.Campaign{}, err
	}
	return s.Publisher.StatusFor(c), nil
}

// Publish posts campaignID to each platform. One platform goes straight
// through the coordinator; several fan out through PublishAll.
func (s *Studio) Publish(ctx context.Context, campaignID string, platforms ...types.PlatformID) (map[types.PlatformID]types.PublishState, error) {
	if len(platforms) == 0 {
		return nil, types.Fail(types.ErrInvalidInput, "Please choose a platform.")
	}
	if len(platforms) == 1 {
		state, err := s.Publisher.Publish(ctx, campaignID, platforms[0])
		return map[types.PlatformID]types.PublishState{platforms[0]: state}, err
	}
	return s.Publisher.PublishAll(ctx, campaignID, platforms)
}

// History returns the journaled publish outcomes of one campaign.
func (s *Studio) History(campaignID string) ([]store.PublishRecord, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.PublishHistory(campaignID)
}

// Usage returns the call counters, or false when usage is not tracked.
func (s *Studio) Usage() (usage.AggregatedStats, bool) {
	if s.usage == nil {
		return usage.AggregatedStats{}, false
	}
	return s.usage.Stats(), true
}

// Logout ends the session and drops its stored state.
func (s *Studio) Logout() error {
	s.Generation.Discard()
	return s.Session.Clear()
}
