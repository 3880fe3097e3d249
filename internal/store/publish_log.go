package store

import (
	"fmt"
	"time"

	"campaigner/internal/logging"
	"campaigner/internal/types"
)

// PublishRecord is one journaled publish outcome.
type PublishRecord struct {
	CampaignID string
	Platform   types.PlatformID
	State      types.PublishState
	RecordedAt time.Time
}

// RecordPublish appends a terminal publish outcome to the journal.
func (s *LocalStore) RecordPublish(campaignID string, platform types.PlatformID, state types.PublishState) error {
	if !state.IsTerminal() {
		return fmt.Errorf("refusing to journal non-terminal state %s", state)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	at := state.At
	if at.IsZero() {
		at = s.now()
	}
	_, err := s.db.Exec(
		"INSERT INTO publish_log (campaign_id, platform, phase, reason, at) VALUES (?, ?, ?, ?, ?)",
		campaignID, string(platform), string(state.Phase), state.Reason, at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to journal publish %s/%s: %v", campaignID, platform, err)
		return fmt.Errorf("failed to record publish: %w", err)
	}
	logging.StoreDebug("Journaled %s/%s: %s", campaignID, platform, state)
	return nil
}

// PublishHistory returns the journal of one campaign, oldest first.
func (s *LocalStore) PublishHistory(campaignID string) ([]PublishRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT campaign_id, platform, phase, reason, at FROM publish_log WHERE campaign_id = ? ORDER BY id ASC",
		campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query publish history: %w", err)
	}
	defer rows.Close()

	var out []PublishRecord
	for rows.Next() {
		rec, err := scanPublishRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LatestPublishStates returns the most recent journaled state of every
// (campaign, platform) key.
func (s *LocalStore) LatestPublishStates() (map[string]map[types.PlatformID]types.PublishState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT campaign_id, platform, phase, reason, at FROM publish_log
		 WHERE id IN (SELECT MAX(id) FROM publish_log GROUP BY campaign_id, platform)`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query publish states: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[types.PlatformID]types.PublishState)
	for rows.Next() {
		rec, err := scanPublishRecord(rows)
		if err != nil {
			return nil, err
		}
		if out[rec.CampaignID] == nil {
			out[rec.CampaignID] = make(map[types.PlatformID]types.PublishState)
		}
		out[rec.CampaignID][rec.Platform] = rec.State
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPublishRecord(row rowScanner) (PublishRecord, error) {
	var campaignID, platform, phase, reason, at string
	if err := row.Scan(&campaignID, &platform, &phase, &reason, &at); err != nil {
		return PublishRecord{}, fmt.Errorf("failed to scan publish record: %w", err)
	}

	recordedAt := parseTimestamp(at)
	var state types.PublishState
	switch types.PublishPhase(phase) {
	case types.PhasePublished:
		state = types.Published(recordedAt)
	case types.PhaseFailed:
		state = types.Failed(reason)
	default:
		state = types.PublishState{Phase: types.PublishPhase(phase), Reason: reason}
	}
	return PublishRecord{
		CampaignID: campaignID,
		Platform:   types.PlatformID(platform),
		State:      state,
		RecordedAt: recordedAt,
	}, nil
}
