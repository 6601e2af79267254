package pool

import (
	"time"

	"github.com/xcawolfe-amzn/kiropool/internal/account"
)

// IsAvailable reports whether the account may serve a request at now.
// Checking an unhealthy account whose recovery time has passed transitions
// it back to healthy as a side effect — recovery is evaluated lazily, at
// the moment eligibility is asked for.
func (p *Pool) IsAvailable(a *account.Account, now time.Time) bool {
	if !a.Healthy {
		if a.RecoveryTime == nil || now.Before(*a.RecoveryTime) {
			return false
		}
		a.Healthy = true
		a.UnhealthyReason = ""
		a.RecoveryTime = nil
	}
	if a.RateLimitReset != nil && now.Before(*a.RateLimitReset) {
		return false
	}
	return true
}

// available filters the pool in list order, applying lazy recovery.
func (p *Pool) available(now time.Time) []*account.Account {
	var out []*account.Account
	for _, a := range p.accounts {
		if p.IsAvailable(a, now) {
			out = append(out, a)
		}
	}
	return out
}

// SelectNext picks the account to serve the next request, or nil when none
// is available (the caller should back off by MinWait). Selection stamps
// LastUsed and bumps the optimistic local request counter; the next
// authoritative SyncUsage overwrites the bump.
func (p *Pool) SelectNext(now time.Time) *account.Account {
	avail := p.available(now)
	if len(avail) == 0 {
		return nil
	}

	var chosen *account.Account
	switch p.strategy {
	case StrategyRoundRobin:
		// rrCursor walks the filtered list, not the full one.
		chosen = avail[p.rrCursor%len(avail)]
		p.rrCursor = (p.rrCursor + 1) % len(avail)

	case StrategyLowestUsage:
		chosen = lowestUsage(avail)
		p.active = p.indexOf(chosen)

	default: // sticky
		if p.active >= 0 && p.active < len(p.accounts) && p.IsAvailable(p.accounts[p.active], now) {
			chosen = p.accounts[p.active]
		} else {
			chosen = avail[0]
			p.active = p.indexOf(chosen)
		}
	}

	t := now
	chosen.LastUsed = &t
	if chosen.UsedCount != nil {
		n := *chosen.UsedCount + 1
		chosen.UsedCount = &n
	} else {
		n := 1
		chosen.UsedCount = &n
	}
	chosen.LocalRequests++
	return chosen
}

// lowestUsage picks the account with the fewest recorded requests, tie
// broken by oldest LastUsed; never-used accounts win ties.
func lowestUsage(avail []*account.Account) *account.Account {
	best := avail[0]
	for _, a := range avail[1:] {
		au, bu := usedOf(a), usedOf(best)
		if au < bu || (au == bu && lastUsedOf(a).Before(lastUsedOf(best))) {
			best = a
		}
	}
	return best
}

func usedOf(a *account.Account) int {
	if a.UsedCount == nil {
		return 0
	}
	return *a.UsedCount
}

func lastUsedOf(a *account.Account) time.Time {
	if a.LastUsed == nil {
		return time.Time{}
	}
	return *a.LastUsed
}

// MarkRateLimited makes the account ineligible until now+retryAfter.
// Health is not affected.
func (p *Pool) MarkRateLimited(a *account.Account, retryAfter time.Duration, now time.Time) {
	t := now.Add(retryAfter)
	a.RateLimitReset = &t
}

// MarkUnhealthy takes the account out of rotation. With a nil recovery
// time the account never self-recovers and needs explicit clearing.
func (p *Pool) MarkUnhealthy(a *account.Account, reason string, recovery *time.Time) {
	a.Healthy = false
	a.UnhealthyReason = reason
	a.RecoveryTime = recovery
}

// MarkHealthy clears an unhealthy or rate-limited state explicitly.
func (p *Pool) MarkHealthy(a *account.Account) {
	a.Healthy = true
	a.UnhealthyReason = ""
	a.RecoveryTime = nil
	a.RateLimitReset = nil
}

// MinWait returns the smallest positive time until some rate-limited
// account resets, or 0 when none is rate-limited. Callers use it as the
// backoff when SelectNext returns nil.
func (p *Pool) MinWait(now time.Time) time.Duration {
	var min time.Duration
	for _, a := range p.accounts {
		if a.RateLimitReset == nil {
			continue
		}
		d := a.RateLimitReset.Sub(now)
		if d <= 0 {
			continue
		}
		if min == 0 || d < min {
			min = d
		}
	}
	return min
}
