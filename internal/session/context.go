// Package session holds the authenticated brand profile for the active
// session. It is the only writer of that profile; every other component
// reads it through Current and fails fast with types.ErrUnauthenticated
// before issuing a network call.
package session

import (
	"sync"

	"campaigner/internal/logging"
	"campaigner/internal/types"
)

// Persister keeps the profile across process restarts (see internal/store).
type Persister interface {
	SaveProfile(profile types.BrandProfile) error
	ClearProfile() error
}

// Context is the session holder. The zero value is an unauthenticated
// context without persistence.
type Context struct {
	mu        sync.RWMutex
	profile   *types.BrandProfile
	persister Persister
}

// NewContext creates an unauthenticated context. persister may be nil.
func NewContext(persister Persister) *Context {
	return &Context{persister: persister}
}

// Establish installs profile as the session profile. Calling it again with
// an identical profile overwrites silently.
func (c *Context) Establish(profile types.BrandProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	profile = cloneProfile(profile)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.profile != nil && c.profile.Equal(profile) {
		logging.SessionDebug("Re-establishing identical profile for %q", profile.CompanyName)
	} else {
		logging.Session("Session established for %q (%d platforms)", profile.CompanyName, len(profile.Platforms))
	}
	c.profile = &profile

	if c.persister != nil {
		if err := c.persister.SaveProfile(profile); err != nil {
			// The in-memory session stays usable for this run.
			logging.Get(logging.CategorySession).Warn("Failed to persist profile: %v", err)
		}
	}
	return nil
}

// Resume installs a previously persisted profile without writing it back.
func (c *Context) Resume(profile types.BrandProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	profile = cloneProfile(profile)

	c.mu.Lock()
	c.profile = &profile
	c.mu.Unlock()

	logging.SessionDebug("Resumed session for %q", profile.CompanyName)
	return nil
}

// Current returns the session profile, or types.ErrUnauthenticated.
func (c *Context) Current() (types.BrandProfile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.profile == nil {
		return types.BrandProfile{}, types.Fail(types.ErrUnauthenticated, "Please complete onboarding first.")
	}
	return cloneProfile(*c.profile), nil
}

// Active reports whether a session is established.
func (c *Context) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile != nil
}

// Clear ends the session.
func (c *Context) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.profile = nil
	logging.Session("Session cleared")

	if c.persister != nil {
		return c.persister.ClearProfile()
	}
	return nil
}

func cloneProfile(p types.BrandProfile) types.BrandProfile {
	p.Platforms = append([]types.PlatformID(nil), p.Platforms...)
	return p
}
