// Package ratelimit implements fixed-window request counting per opaque
// identifier. A fixed-window counter resets at wall-clock intervals, which
// tolerates a burst at window boundaries in exchange for O(1) memory per
// identifier and no background bookkeeping on the request path.
//
// The backing store is injected (see Store) so tests can reset state per
// case and deployments can swap in a shared external store without changing
// the admission algorithm.
package ratelimit

import (
	"strconv"
	"time"
)

// Config is an immutable rate-limit policy. The Name participates in the
// bucket key, so the same identifier under two different policies is tracked
// independently.
type Config struct {
	Name        string
	Window      time.Duration
	MaxRequests int
}

// Named policies. Callers choose which to apply per route; nothing enforces
// them globally.
var (
	// Reading limits metered tarot readings.
	Reading = Config{Name: "reading", Window: time.Minute, MaxRequests: 10}

	// Auth limits authentication attempts. The long window makes brute
	// forcing impractical.
	Auth = Config{Name: "auth", Window: 15 * time.Minute, MaxRequests: 10}

	// Payment limits payment-provider webhook traffic.
	Payment = Config{Name: "payment", Window: time.Minute, MaxRequests: 5}

	// API is the general API limit.
	API = Config{Name: "api", Window: time.Minute, MaxRequests: 60}

	// Health limits health-check probes.
	Health = Config{Name: "health", Window: time.Minute, MaxRequests: 120}

	// Default applies when no policy is specified.
	Default = Config{Name: "default", Window: time.Minute, MaxRequests: 30}
)

// DefaultPolicies returns the built-in policy table keyed by purpose.
// The returned map is a fresh copy; callers may override entries (e.g. from
// a policy file) without affecting the package-level defaults.
func DefaultPolicies() map[string]Config {
	policies := make(map[string]Config, 6)
	for _, cfg := range []Config{Reading, Auth, Payment, API, Health, Default} {
		policies[cfg.Name] = cfg
	}
	return policies
}

// Result is the outcome of one admission check.
type Result struct {
	// Limited reports whether this request exceeded the policy. The caller
	// is responsible for rejecting the request; admission itself never fails.
	Limited bool

	// Current is the count after this request was recorded. Every call
	// counts toward the window, admitted or not.
	Current int

	// Limit is the policy's MaxRequests.
	Limit int

	// ResetIn is the time until the current window resets. Always in
	// (0, Window].
	ResetIn time.Duration
}

// Remaining returns the number of requests left in the window, floored at
// zero.
func (r Result) Remaining() int {
	if remaining := r.Limit - r.Current; remaining > 0 {
		return remaining
	}
	return 0
}

// Headers returns the result as transport header fields. Reset is expressed
// in milliseconds until the window resets.
func (r Result) Headers() map[string]string {
	return map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(r.Limit),
		"X-RateLimit-Remaining": strconv.Itoa(r.Remaining()),
		"X-RateLimit-Reset":     strconv.FormatInt(r.ResetIn.Milliseconds(), 10),
	}
}
