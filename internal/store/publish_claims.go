package store

import (
	"fmt"
	"time"

	"campaigner/internal/logging"
	"campaigner/internal/types"

	"github.com/google/uuid"
)

// ClaimPublish reserves (campaignID, platform) for one publish call across
// every process sharing the database. ok is false while another claim on
// the key is younger than ttl; older claims are taken over, since the run
// that held them is gone or past its own timeout.
func (s *LocalStore) ClaimPublish(campaignID string, platform types.PlatformID, ttl time.Duration) (token string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	token = uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return "", false, fmt.Errorf("failed to begin claim: %w", err)
	}
	defer tx.Rollback()

	stale, err := tx.Exec(
		"DELETE FROM publish_claims WHERE campaign_id = ? AND platform = ? AND claimed_at <= ?",
		campaignID, string(platform), now.Add(-ttl).UnixNano(),
	)
	if err != nil {
		return "", false, fmt.Errorf("failed to expire claim: %w", err)
	}
	if n, _ := stale.RowsAffected(); n > 0 {
		logging.Get(logging.CategoryStore).Warn("Took over abandoned publish claim %s/%s", campaignID, platform)
	}

	res, err := tx.Exec(
		`INSERT INTO publish_claims (campaign_id, platform, token, claimed_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (campaign_id, platform) DO NOTHING`,
		campaignID, string(platform), token, now.UnixNano(),
	)
	if err != nil {
		return "", false, fmt.Errorf("failed to claim publish: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("failed to claim publish: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("failed to commit claim: %w", err)
	}

	if inserted == 0 {
		logging.StoreDebug("Publish claim %s/%s held by another run", campaignID, platform)
		return "", false, nil
	}
	logging.StoreDebug("Claimed %s/%s", campaignID, platform)
	return token, true, nil
}

// ReleasePublish drops the claim taken with token. A claim that has since
// been taken over by another run is left alone.
func (s *LocalStore) ReleasePublish(campaignID string, platform types.PlatformID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"DELETE FROM publish_claims WHERE campaign_id = ? AND platform = ? AND token = ?",
		campaignID, string(platform), token,
	)
	if err != nil {
		return fmt.Errorf("failed to release claim: %w", err)
	}
	return nil
}
