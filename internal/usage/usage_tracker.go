// Package usage counts calls to the collaborator services per operation and
// outcome and keeps the counters in a JSON file next to the state database.
package usage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"campaigner/internal/logging"
	"campaigner/internal/types"
)

// FileName is the counters file inside the state directory.
const FileName = "usage.json"

// DefaultAutoSaveDelay debounces writes after a recorded call.
const DefaultAutoSaveDelay = 5 * time.Second

// Tracker records call outcomes. It satisfies api.Recorder.
type Tracker struct {
	mu            sync.Mutex
	data          UsageData
	filePath      string
	dirty         bool
	autoSaveDelay time.Duration // zero disables autosave
	autoSaveTimer *time.Timer
	now           func() time.Time
}

// NewTracker creates a tracker persisting to dir/usage.json and loads any
// existing counters. A corrupt file is logged and replaced on next save.
func NewTracker(dir string) (*Tracker, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create usage dir: %w", err)
	}

	t := &Tracker{
		filePath:      filepath.Join(dir, FileName),
		data:          UsageData{Version: "1.0", Aggregate: newAggregate()},
		autoSaveDelay: DefaultAutoSaveDelay,
		now:           time.Now,
	}
	if err := t.Load(); err != nil {
		logging.Get(logging.CategoryUsage).Warn("Ignoring unreadable usage file %s: %v", t.filePath, err)
	}
	return t, nil
}

func newAggregate() AggregatedStats {
	return AggregatedStats{
		ByOperation: make(map[string]CallCounts),
		ByKind:      make(map[string]int64),
	}
}

// SetAutoSaveDelay changes the debounce delay. Zero disables autosave.
func (t *Tracker) SetAutoSaveDelay(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.autoSaveDelay = d
}

// Path returns the counters file.
func (t *Tracker) Path() string { return t.filePath }

// Load reads the usage data from disk.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var loaded UsageData
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}
	if loaded.Aggregate.ByOperation == nil {
		loaded.Aggregate.ByOperation = make(map[string]CallCounts)
	}
	if loaded.Aggregate.ByKind == nil {
		loaded.Aggregate.ByKind = make(map[string]int64)
	}
	t.data = loaded
	return nil
}

// Save writes the usage data to disk and cancels any pending autosave.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.autoSaveTimer != nil {
		t.autoSaveTimer.Stop()
		t.autoSaveTimer = nil
	}
	t.dirty = false
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	data, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(t.filePath, data, 0644)
}

// Record counts one call outcome.
func (t *Tracker) Record(operation string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	failed := err != nil
	transport := failed && errors.Is(err, types.ErrTransport)

	t.data.Aggregate.Total.Add(failed, transport)
	counts := t.data.Aggregate.ByOperation[operation]
	counts.Add(failed, transport)
	t.data.Aggregate.ByOperation[operation] = counts
	if failed {
		t.data.Aggregate.ByKind[failureKind(err)]++
	}
	t.data.Aggregate.LastCallAt = t.now()

	// Debounced auto-save
	if !t.dirty && t.autoSaveDelay > 0 {
		t.dirty = true
		t.autoSaveTimer = time.AfterFunc(t.autoSaveDelay, func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.dirty = false
			t.autoSaveTimer = nil
			if err := t.saveLocked(); err != nil {
				logging.Get(logging.CategoryUsage).Warn("Autosave failed: %v", err)
			}
		})
	}
}

// failureKind labels a raw api failure: "transport" or the HTTP status class.
func failureKind(err error) string {
	var e *types.Error
	if !errors.As(err, &e) {
		return "other"
	}
	if e.Transport() {
		return "transport"
	}
	if e.Status == 0 {
		return "other"
	}
	return fmt.Sprintf("http_%dxx", e.Status/100)
}

// Stats returns a copy of the aggregated stats.
func (t *Tracker) Stats() AggregatedStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.data.Aggregate
	stats.ByOperation = make(map[string]CallCounts, len(t.data.Aggregate.ByOperation))
	for k, v := range t.data.Aggregate.ByOperation {
		stats.ByOperation[k] = v
	}
	stats.ByKind = make(map[string]int64, len(t.data.Aggregate.ByKind))
	for k, v := range t.data.Aggregate.ByKind {
		stats.ByKind[k] = v
	}
	return stats
}

// Reset clears all counters in memory and on disk.
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = UsageData{Version: "1.0", Aggregate: newAggregate()}
	return t.saveLocked()
}
