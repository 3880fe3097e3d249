// Package generation owns the "generate content from a prompt" operation and
// the bundle it produces. Overlapping calls are allowed; only the result of
// the most recently initiated call is retained, whatever order the responses
// arrive in.
package generation

import (
	"context"
	"strings"
	"sync"
	"time"

	"campaigner/internal/logging"
	"campaigner/internal/types"

	"github.com/google/uuid"
)

// Generator is the part of api.Client used here.
type Generator interface {
	Generate(ctx context.Context, prompt string) (types.ContentBundle, error)
}

// SessionReader is the part of session.Context used here.
type SessionReader interface {
	Current() (types.BrandProfile, error)
}

// DraftStore keeps the held draft across process restarts (see internal/store).
type DraftStore interface {
	SaveDraft(d types.Draft) error
	ClearDraft() error
}

// Options tune a Manager.
type Options struct {
	// RejectOverlapping fails a Generate issued while another is in flight
	// with types.ErrGenerationInFlight instead of superseding it.
	RejectOverlapping bool
	// Drafts, when set, mirrors every change of the held draft.
	Drafts DraftStore
	// Now is the clock used for draft timestamps.
	Now func() time.Time
}

// Manager is the generation request manager.
type Manager struct {
	svc     Generator
	session SessionReader
	opts    Options

	mu       sync.Mutex
	seq      uint64 // sequence number of the most recently initiated call
	inFlight int
	held     *types.Draft
}

// NewManager creates a manager with no held draft.
func NewManager(svc Generator, session SessionReader, opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{svc: svc, session: session, opts: opts}
}

// Generate requests a bundle for prompt.
//
// An empty or whitespace-only prompt fails with types.ErrInvalidInput and no
// session fails with types.ErrUnauthenticated; neither issues a call. A
// service or transport failure is types.ErrGenerationFailed and leaves the
// held draft untouched. A success whose call was overtaken by a later one
// returns types.ErrSuperseded and is dropped.
func (m *Manager) Generate(ctx context.Context, prompt string) (types.ContentBundle, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return types.ContentBundle{}, types.Fail(types.ErrInvalidInput, "Please enter a prompt.")
	}
	if _, err := m.session.Current(); err != nil {
		return types.ContentBundle{}, err
	}

	m.mu.Lock()
	if m.opts.RejectOverlapping && m.inFlight > 0 {
		m.mu.Unlock()
		logging.GenerationDebug("Rejecting overlapping generate (in flight: %d)", m.inFlight)
		return types.ContentBundle{}, types.Fail(types.ErrGenerationInFlight, "A generation is already in progress.")
	}
	m.seq++
	seq := m.seq
	m.inFlight++
	m.mu.Unlock()

	log := logging.Get(logging.CategoryGeneration).With("seq", seq)
	log.Info("Generating content (%d chars of prompt)", len(prompt))
	timer := logging.StartTimer(logging.CategoryGeneration, "Generate")

	bundle, err := m.svc.Generate(ctx, prompt)
	timer.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--

	if err != nil {
		wrapped := types.Rekind(err, types.ErrGenerationFailed, types.FallbackGeneration)
		log.With("kind", types.KindName(wrapped), "status", wrapped.Status).Error("Generation failed: %v", wrapped)
		return types.ContentBundle{}, wrapped
	}

	if seq != m.seq {
		log.Info("Dropping result overtaken by request %d", m.seq)
		return types.ContentBundle{}, types.Fail(types.ErrSuperseded, "A newer generate request replaced this one.")
	}

	draft := types.Draft{
		ID:          uuid.NewString(),
		Prompt:      prompt,
		Content:     bundle,
		GeneratedAt: m.opts.Now(),
	}
	m.held = &draft
	log.Info("Holding new draft %s", draft.ID)

	if m.opts.Drafts != nil {
		if err := m.opts.Drafts.SaveDraft(draft); err != nil {
			log.Warn("Failed to persist draft: %v", err)
		}
	}
	return bundle, nil
}

// Current returns the held draft, if any.
func (m *Manager) Current() (types.Draft, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held == nil {
		return types.Draft{}, false
	}
	return *m.held, true
}

// Bundle returns the held bundle, if any.
func (m *Manager) Bundle() (types.ContentBundle, bool) {
	d, ok := m.Current()
	return d.Content, ok
}

// InFlight returns the number of outstanding generate calls.
func (m *Manager) InFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight
}

// Discard drops the held draft. It reports whether there was one.
func (m *Manager) Discard() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.held == nil {
		return false
	}
	logging.Generation("Discarded draft %s", m.held.ID)
	m.held = nil

	if m.opts.Drafts != nil {
		if err := m.opts.Drafts.ClearDraft(); err != nil {
			logging.Get(logging.CategoryGeneration).Warn("Failed to clear persisted draft: %v", err)
		}
	}
	return true
}

// MarkSaved records that the held draft with draftID became campaignID.
// It is a no-op when a newer draft has replaced it meanwhile.
func (m *Manager) MarkSaved(draftID, campaignID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.held == nil || m.held.ID != draftID {
		logging.GenerationDebug("Not marking %s saved: no longer held", draftID)
		return
	}
	m.held.CampaignID = campaignID

	if m.opts.Drafts != nil {
		if err := m.opts.Drafts.SaveDraft(*m.held); err != nil {
			logging.Get(logging.CategoryGeneration).Warn("Failed to persist saved draft: %v", err)
		}
	}
}

// Restore seeds the held draft from storage. A draft produced by this
// manager already takes precedence.
func (m *Manager) Restore(d types.Draft) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.held != nil {
		return
	}
	m.held = &d
	logging.GenerationDebug("Restored draft %s", d.ID)
}
