// Package ratelimit implements throttle tracking and request gating for the
// TeselaGen platform. It watches 429 and 503 responses carrying Retry-After
// and holds back further requests until the announced window has passed.
package ratelimit

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Redis keys for throttle state storage.
const (
	RedisKeyBlockedUntil = "tg:throttle:blocked_until"
	RedisKeyLastStatus   = "tg:throttle:last_status"
)

const (
	// DefaultMaxWait is the longest Wait will sleep before giving up with ErrBlocked.
	DefaultMaxWait = 60 * time.Second

	// DefaultRetryAfter is assumed for a 429 without a usable Retry-After header.
	DefaultRetryAfter = 1 * time.Second
)

// ErrBlocked is returned by Wait when the throttle window exceeds the max wait.
var ErrBlocked = errors.New("requests blocked by platform throttling")

// ThrottleState is the current throttle window.
// With Redis configured it is shared by every client using the same instance.
type ThrottleState struct {
	// BlockedUntil is the end of the throttle window. Zero when unthrottled.
	BlockedUntil time.Time `json:"blocked_until"`

	// Status is the HTTP status that opened the window (429 or 503).
	Status int `json:"status"`

	// LastUpdate is when this state was recorded.
	LastUpdate time.Time `json:"last_update"`
}

// IsBlocked reports whether the throttle window is still open.
func (s *ThrottleState) IsBlocked() bool {
	return time.Now().Before(s.BlockedUntil)
}

// TimeUntilUnblocked returns the remaining window, or 0 if it has passed.
func (s *ThrottleState) TimeUntilUnblocked() time.Duration {
	if d := time.Until(s.BlockedUntil); d > 0 {
		return d
	}
	return 0
}

// IsStale returns true if the state is older than maxAge.
func (s *ThrottleState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// IsThrottleStatus reports whether a status code opens a throttle window.
func IsThrottleStatus(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// ParseRetryAfter parses a Retry-After value given either as delay seconds
// or as an HTTP date. Dates in the past yield 0.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}

	at, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	if d := at.Sub(now); d > 0 {
		return d, true
	}
	return 0, true
}
