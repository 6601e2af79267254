package account

import (
	"math"
	"sort"
)

// QuotaStatus classifies an account's quota headroom.
type QuotaStatus string

const (
	QuotaHealthy   QuotaStatus = "healthy"
	QuotaWarning   QuotaStatus = "warning"
	QuotaExhausted QuotaStatus = "exhausted"
)

// warningThreshold is the usage percentage at which an account is flagged
// as nearly exhausted.
const warningThreshold = 80

// Classify reports whether an account is healthy, nearing its quota, or
// exhausted. Unknown or zero counters cannot be evaluated and default to
// healthy — an account is never penalized for missing usage data.
func Classify(a *Account) QuotaStatus {
	if a.UsedCount == nil || a.LimitCount == nil {
		return QuotaHealthy
	}
	used, limit := *a.UsedCount, *a.LimitCount
	if used == 0 || limit == 0 {
		return QuotaHealthy
	}
	if used >= limit {
		return QuotaExhausted
	}
	pct := int(math.Round(float64(used) / float64(limit) * 100))
	if pct >= warningThreshold {
		return QuotaWarning
	}
	return QuotaHealthy
}

// UnknownQuota reports whether the account has no usable quota counters.
func UnknownQuota(a *Account) bool {
	return a.UsedCount == nil || a.LimitCount == nil
}

// Remaining returns the requests left before the quota ceiling, clamped at
// zero. Only meaningful when UnknownQuota is false.
func Remaining(a *Account) int {
	if UnknownQuota(a) {
		return 0
	}
	r := *a.LimitCount - *a.UsedCount
	if r < 0 {
		return 0
	}
	return r
}

// RankByRemaining orders accounts by remaining quota, most headroom first.
// Accounts with unknown quota sort ahead of every account with known
// counters. The sort is stable so list order breaks ties.
func RankByRemaining(accounts []*Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		return remainingKey(accounts[i]) > remainingKey(accounts[j])
	})
}

// remainingKey maps unknown quota to an effectively infinite value.
func remainingKey(a *Account) int {
	if UnknownQuota(a) {
		return math.MaxInt
	}
	return Remaining(a)
}
