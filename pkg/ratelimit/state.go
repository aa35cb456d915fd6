// Package ratelimit tracks the request quota an API reports through the
// X-RateLimit-Remaining and X-RateLimit-Reset headers and gates requests
// before the quota runs out. State is kept in Redis so every process using
// the same API key shares it.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyRemaining      = "listsync:rate_limit:remaining"
	RedisKeyResetTimestamp = "listsync:rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "listsync:rate_limit:last_update"
)

// Response headers read by UpdateFromHeaders.
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Thresholds for rate limit decisions.
const (
	// ThresholdCritical blocks all requests when the remaining quota falls below this value.
	ThresholdCritical = 5

	// ThresholdWarning throttles requests when the remaining quota falls below this value.
	ThresholdWarning = 20

	// ThresholdHealthy indicates normal operation.
	ThresholdHealthy = 50
)

// State is the last reported request quota.
type State struct {
	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets, from X-RateLimit-Reset (seconds).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was recorded.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *State) NeedsCriticalBlock() bool {
	return s.Remaining < ThresholdCritical && s.TimeUntilReset() > 0
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *State) NeedsThrottling() bool {
	return s.Remaining < ThresholdWarning && !s.NeedsCriticalBlock() && s.TimeUntilReset() > 0
}

// TimeUntilReset returns the duration until the quota resets, or 0 if the
// reset time has passed.
func (s *State) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates IsHealthy from Remaining.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}
