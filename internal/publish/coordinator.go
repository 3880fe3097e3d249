// Package publish coordinates per-campaign, per-platform publish attempts.
//
// Each (campaign, platform) key moves NotStarted -> Publishing ->
// {Published, Failed}. The move into Publishing happens under the lock
// before the call is issued and is the only way a call gets issued, so a
// second Publish for a key that is still Publishing is rejected locally
// with types.ErrAlreadyPublishing. With Options.Claims the same gate also
// spans processes sharing one store. Failed and Published keys may be
// published again; nothing is retried automatically.
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"campaigner/internal/logging"
	"campaigner/internal/types"

	"golang.org/x/sync/errgroup"
)

// Service is the part of api.Client used here.
type Service interface {
	Publish(ctx context.Context, campaignID string, platform types.PlatformID) error
}

// SessionReader is the part of session.Context used here.
type SessionReader interface {
	Current() (types.BrandProfile, error)
}

// Journal records terminal outcomes (see internal/store).
type Journal interface {
	RecordPublish(campaignID string, platform types.PlatformID, state types.PublishState) error
}

// Claimer reserves a key across processes for the duration of one call
// (see internal/store). ok is false while another holder's claim is live.
type Claimer interface {
	ClaimPublish(campaignID string, platform types.PlatformID, ttl time.Duration) (token string, ok bool, err error)
	ReleasePublish(campaignID string, platform types.PlatformID, token string) error
}

// DefaultClaimTTL is used when Options.ClaimTTL is zero.
const DefaultClaimTTL = 10 * time.Minute

// Options tune a Coordinator.
type Options struct {
	Journal Journal
	Claims  Claimer
	// ClaimTTL is how long a claim held by a run that never released it
	// keeps blocking the key.
	ClaimTTL time.Duration
	// MaxParallel bounds PublishAll fan-out. Zero means unbounded.
	MaxParallel int
	Now         func() time.Time
}

type key struct {
	campaignID string
	platform   types.PlatformID
}

// Coordinator is the publish coordinator. It is the only writer of
// publish state.
type Coordinator struct {
	svc     Service
	session SessionReader
	opts    Options

	mu     sync.Mutex
	states map[key]types.PublishState
}

// NewCoordinator creates a coordinator with every key NotStarted.
func NewCoordinator(svc Service, session SessionReader, opts Options) *Coordinator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ClaimTTL <= 0 {
		opts.ClaimTTL = DefaultClaimTTL
	}
	return &Coordinator{
		svc:     svc,
		session: session,
		opts:    opts,
		states:  make(map[key]types.PublishState),
	}
}

// Confirmation is the user-facing text for a successful publish.
func Confirmation(platform types.PlatformID) string {
	return fmt.Sprintf("Published to %s!", platform)
}

// Publish posts campaignID to platform and returns the terminal state.
//
// A failed call yields Failed(reason) together with a types.ErrPublishFailed
// error carrying the same reason. A key already Publishing yields that state
// and types.ErrAlreadyPublishing without a call.
//
// The outbound call is detached from ctx cancellation: a caller going away
// does not abort a post that may already be under way.
func (c *Coordinator) Publish(ctx context.Context, campaignID string, platform types.PlatformID) (types.PublishState, error) {
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return types.NotStarted(), types.Fail(types.ErrInvalidInput, "Please choose a campaign to publish.")
	}
	if platform == "" {
		return types.NotStarted(), types.Fail(types.ErrInvalidInput, "Please choose a platform.")
	}
	if _, err := c.session.Current(); err != nil {
		return types.NotStarted(), err
	}

	k := key{campaignID, platform}
	log := logging.Get(logging.CategoryPublish).With("campaign", campaignID, "platform", platform.Slug())

	c.mu.Lock()
	previous, known := c.states[k]
	if previous.Phase == types.PhasePublishing {
		c.mu.Unlock()
		log.Warn("Rejected re-entrant publish")
		return previous, alreadyPublishing(platform)
	}
	c.states[k] = types.Publishing()
	c.mu.Unlock()

	if c.opts.Claims != nil {
		token, ok, err := c.opts.Claims.ClaimPublish(campaignID, platform, c.opts.ClaimTTL)
		if err != nil || !ok {
			c.restore(k, previous, known)
			if err != nil {
				log.Error("Failed to claim publish: %v", err)
				return c.State(campaignID, platform), types.Rekind(err, types.ErrPublishFailed, "Could not reserve this publish. Please try again.")
			}
			log.Warn("Rejected publish claimed by another run")
			return types.Publishing(), alreadyPublishing(platform)
		}
		logging.PublishDebug("Claimed %s/%s", campaignID, platform.Slug())
		defer func() {
			if err := c.opts.Claims.ReleasePublish(campaignID, platform, token); err != nil {
				log.Warn("Failed to release publish claim: %v", err)
			}
		}()
	}

	log.Info("Publishing")
	timer := logging.StartTimer(logging.CategoryPublish, "Publish")
	err := c.svc.Publish(context.WithoutCancel(ctx), campaignID, platform)
	timer.Stop()

	var state types.PublishState
	var wrapped *types.Error
	if err != nil {
		wrapped = types.Rekind(err, types.ErrPublishFailed, types.FallbackPublish)
		state = types.Failed(wrapped.Message)
		log.With("kind", types.KindName(wrapped), "status", wrapped.Status).Error("Publish failed: %v", wrapped)
	} else {
		state = types.Published(c.opts.Now())
		log.Info("Published")
	}

	c.mu.Lock()
	c.states[k] = state
	c.mu.Unlock()

	if c.opts.Journal != nil {
		if jerr := c.opts.Journal.RecordPublish(campaignID, platform, state); jerr != nil {
			log.Warn("Failed to journal publish outcome: %v", jerr)
		}
	}

	if wrapped != nil {
		return state, wrapped
	}
	return state, nil
}

func alreadyPublishing(platform types.PlatformID) error {
	return types.Fail(types.ErrAlreadyPublishing, fmt.Sprintf("Already publishing this campaign to %s.", platform))
}

// restore undoes a Publishing transition that never issued a call.
func (c *Coordinator) restore(k key, previous types.PublishState, known bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if known {
		c.states[k] = previous
	} else {
		delete(c.states, k)
	}
}

// PublishAll publishes campaignID to every platform, at most MaxParallel at
// a time. Each platform goes through the same per-key guard as Publish. The
// returned error joins every per-platform failure.
func (c *Coordinator) PublishAll(ctx context.Context, campaignID string, platforms []types.PlatformID) (map[types.PlatformID]types.PublishState, error) {
	results := make(map[types.PlatformID]types.PublishState, len(platforms))
	var errs []error
	var mu sync.Mutex

	eg := new(errgroup.Group)
	if c.opts.MaxParallel > 0 {
		eg.SetLimit(c.opts.MaxParallel)
	}

	seen := make(map[types.PlatformID]bool, len(platforms))
	for _, p := range platforms {
		if seen[p] {
			continue
		}
		seen[p] = true

		eg.Go(func() error {
			state, err := c.Publish(ctx, campaignID, p)
			mu.Lock()
			defer mu.Unlock()
			results[p] = state
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", p, err))
			}
			return nil
		})
	}
	_ = eg.Wait()

	logging.Publish("Published %s to %d platforms (%d failed)", campaignID, len(results), len(errs))
	return results, errors.Join(errs...)
}

// State returns the current state of one key.
func (c *Coordinator) State(campaignID string, platform types.PlatformID) types.PublishState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.states[key{campaignID, platform}]; ok {
		return s
	}
	return types.NotStarted()
}

// Seed installs a terminal state recorded by an earlier run. Keys the
// coordinator already tracks, and non-terminal states, are ignored.
func (c *Coordinator) Seed(campaignID string, platform types.PlatformID, state types.PublishState) {
	if !state.IsTerminal() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key{campaignID, platform}
	if _, ok := c.states[k]; !ok {
		c.states[k] = state
	}
}

// StatusFor returns camp with its publish status overlaid by the
// coordinator's view of every key of that campaign.
func (c *Coordinator) StatusFor(camp types.Campaign) types.Campaign {
	status := make(map[types.PlatformID]types.PublishState, len(camp.PublishStatus))
	for p, s := range camp.PublishStatus {
		status[p] = s
	}

	c.mu.Lock()
	for k, s := range c.states {
		if k.campaignID == camp.ID {
			status[k.platform] = s
		}
	}
	c.mu.Unlock()

	camp.PublishStatus = status
	return camp
}
