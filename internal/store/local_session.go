package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"campaigner/internal/logging"
	"campaigner/internal/types"
)

// =============================================================================
// PROFILE
// =============================================================================

// SaveProfile stores the onboarded profile, replacing any previous one.
func (s *LocalStore) SaveProfile(profile types.BrandProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		`INSERT INTO profile (id, data, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(data), s.timestamp(),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to save profile: %v", err)
		return fmt.Errorf("failed to save profile: %w", err)
	}
	logging.StoreDebug("Saved profile for %q", profile.CompanyName)
	return nil
}

// LoadProfile returns the stored profile. ok is false when none is stored.
func (s *LocalStore) LoadProfile() (profile types.BrandProfile, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err = s.db.QueryRow("SELECT data FROM profile WHERE id = 1").Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return types.BrandProfile{}, false, nil
	}
	if err != nil {
		return types.BrandProfile{}, false, fmt.Errorf("failed to load profile: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return types.BrandProfile{}, false, fmt.Errorf("failed to decode profile: %w", err)
	}
	return profile, true, nil
}

// ClearProfile forgets the profile together with the session cookies and
// the held draft, which belong to the same session.
func (s *LocalStore) ClearProfile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stmt := range []string{"DELETE FROM profile", "DELETE FROM cookies", "DELETE FROM draft"} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to clear session state: %w", err)
		}
	}
	logging.Store("Cleared stored session")
	return nil
}

// =============================================================================
// DRAFT
// =============================================================================

// SaveDraft stores the held draft, replacing any previous one.
func (s *LocalStore) SaveDraft(d types.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		`INSERT INTO draft (id, draft_id, data, updated_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET draft_id = excluded.draft_id, data = excluded.data, updated_at = excluded.updated_at`,
		d.ID, string(data), s.timestamp(),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to save draft %s: %v", d.ID, err)
		return fmt.Errorf("failed to save draft: %w", err)
	}
	logging.StoreDebug("Saved draft %s", d.ID)
	return nil
}

// LoadDraft returns the stored draft. ok is false when none is stored.
func (s *LocalStore) LoadDraft() (d types.Draft, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err = s.db.QueryRow("SELECT data FROM draft WHERE id = 1").Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Draft{}, false, nil
	}
	if err != nil {
		return types.Draft{}, false, fmt.Errorf("failed to load draft: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return types.Draft{}, false, fmt.Errorf("failed to decode draft: %w", err)
	}
	return d, true, nil
}

// ClearDraft forgets the held draft.
func (s *LocalStore) ClearDraft() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM draft"); err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	logging.StoreDebug("Cleared draft")
	return nil
}
