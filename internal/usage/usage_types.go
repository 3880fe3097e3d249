package usage

import "time"

// UsageData represents the root structure stored in persistence.
type UsageData struct {
	Version   string          `json:"version"`
	Aggregate AggregatedStats `json:"aggregate"`
}

// AggregatedStats holds call counters broken down by operation and error kind.
type AggregatedStats struct {
	Total       CallCounts            `json:"total"`
	ByOperation map[string]CallCounts `json:"by_operation"` // onboarding, generate, save, list, publish
	ByKind      map[string]int64      `json:"by_kind"`      // failures per error kind
	LastCallAt  time.Time             `json:"last_call_at,omitzero"`
}

// CallCounts holds outcome sums.
type CallCounts struct {
	Calls     int64 `json:"calls"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Transport int64 `json:"transport"` // failures with no HTTP response, also counted in Failed
}

// Add counts one call outcome.
func (c *CallCounts) Add(failed, transport bool) {
	c.Calls++
	switch {
	case !failed:
		c.Succeeded++
	case transport:
		c.Failed++
		c.Transport++
	default:
		c.Failed++
	}
}
