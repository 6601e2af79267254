package pool

import (
	"testing"
	"time"

	"github.com/xcawolfe-amzn/kiropool/internal/account"
)

func TestIsAvailable(t *testing.T) {
	p := newTestPool(t, StrategySticky)
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name   string
		mutate func(*account.Account)
		want   bool
	}{
		{"healthy", func(a *account.Account) {}, true},
		{"unhealthy no recovery", func(a *account.Account) {
			a.Healthy = false
		}, false},
		{"unhealthy future recovery", func(a *account.Account) {
			a.Healthy = false
			a.RecoveryTime = &future
		}, false},
		{"unhealthy past recovery", func(a *account.Account) {
			a.Healthy = false
			a.RecoveryTime = &past
		}, true},
		{"rate limited", func(a *account.Account) {
			a.RateLimitReset = &future
		}, false},
		{"rate limit expired", func(a *account.Account) {
			a.RateLimitReset = &past
		}, true},
		{"recovered but rate limited", func(a *account.Account) {
			a.Healthy = false
			a.RecoveryTime = &past
			a.RateLimitReset = &future
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testAccount("x")
			tt.mutate(a)
			if got := p.IsAvailable(a, now); got != tt.want {
				t.Errorf("IsAvailable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsAvailableRecoveryIsLazy(t *testing.T) {
	p := newTestPool(t, StrategySticky)
	now := time.Now()
	past := now.Add(-time.Minute)

	a := testAccount("x")
	a.Healthy = false
	a.UnhealthyReason = "auth error"
	a.RecoveryTime = &past

	if !p.IsAvailable(a, now) {
		t.Fatal("expected recovery")
	}
	// The eligibility check itself heals the account.
	if !a.Healthy || a.UnhealthyReason != "" || a.RecoveryTime != nil {
		t.Errorf("recovery side effect missing: %+v", a)
	}
}

func TestSelectNextEmptyPool(t *testing.T) {
	p := newTestPool(t, StrategySticky)
	if got := p.SelectNext(time.Now()); got != nil {
		t.Errorf("expected nil from empty pool, got %v", got)
	}
}

func TestSelectNextStampsAndBumps(t *testing.T) {
	p := newTestPool(t, StrategySticky)
	p.Upsert(testAccount("a"))
	now := time.Now()

	a := p.SelectNext(now)
	if a == nil {
		t.Fatal("expected a selection")
	}
	if a.LastUsed == nil || !a.LastUsed.Equal(now) {
		t.Error("LastUsed not stamped with selection time")
	}
	if a.UsedCount == nil || *a.UsedCount != 1 {
		t.Errorf("UsedCount = %v, want 1 (unknown bumps to known)", a.UsedCount)
	}
}

func TestStickyKeepsCurrentAccount(t *testing.T) {
	p := newTestPool(t, StrategySticky)
	for _, id := range []string{"a", "b", "c"} {
		p.Upsert(testAccount(id))
	}
	now := time.Now()

	first := p.SelectNext(now)
	for i := 0; i < 5; i++ {
		if got := p.SelectNext(now.Add(time.Duration(i) * time.Second)); got != first {
			t.Fatalf("sticky switched from %s to %s while available", first.ID, got.ID)
		}
	}
}

func TestStickyMovesWhenCurrentUnavailable(t *testing.T) {
	p := newTestPool(t, StrategySticky)
	for _, id := range []string{"a", "b", "c"} {
		p.Upsert(testAccount(id))
	}
	now := time.Now()

	first := p.SelectNext(now)
	if first.ID != "a" {
		t.Fatalf("expected a first, got %s", first.ID)
	}

	p.MarkRateLimited(first, time.Minute, now)
	second := p.SelectNext(now)
	if second.ID != "b" {
		t.Fatalf("expected first available b, got %s", second.ID)
	}

	// Affinity moves to the new account even after the old one recovers.
	later := now.Add(2 * time.Minute)
	if got := p.SelectNext(later); got != second {
		t.Errorf("sticky should stay on %s, got %s", second.ID, got.ID)
	}
}

func TestRoundRobinVisitsEachOnce(t *testing.T) {
	p := newTestPool(t, StrategyRoundRobin)
	for _, id := range []string{"a", "b", "c"} {
		p.Upsert(testAccount(id))
	}
	now := time.Now()

	seen := make(map[string]int)
	for i := 0; i < 3; i++ {
		a := p.SelectNext(now)
		seen[a.ID]++
	}
	for _, id := range []string{"a", "b", "c"} {
		if seen[id] != 1 {
			t.Errorf("account %s selected %d times in first cycle, want 1", id, seen[id])
		}
	}
	// The cycle restarts after a full pass.
	if got := p.SelectNext(now); got.ID != "a" {
		t.Errorf("expected cycle restart at a, got %s", got.ID)
	}
}

func TestRoundRobinCursorScopedToFilteredList(t *testing.T) {
	p := newTestPool(t, StrategyRoundRobin)
	for _, id := range []string{"a", "b", "c"} {
		p.Upsert(testAccount(id))
	}
	now := time.Now()

	// With b out, rotation runs over the two-account filtered list.
	p.MarkRateLimited(p.ByID("b"), time.Hour, now)
	got := []string{
		p.SelectNext(now).ID,
		p.SelectNext(now).ID,
		p.SelectNext(now).ID,
	}
	want := []string{"a", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("selection %d = %s, want %s (got %v)", i, got[i], want[i], got)
		}
	}
}

func TestLowestUsageScenario(t *testing.T) {
	p := newTestPool(t, StrategyLowestUsage)
	a := testAccount("A")
	a.UsedCount = intp(5)
	b := testAccount("B")
	b.UsedCount = intp(1)
	c := testAccount("C")
	c.UsedCount = intp(3)
	p.Upsert(a)
	p.Upsert(b)
	p.Upsert(c)

	t1 := time.Now()
	if got := p.SelectNext(t1); got.ID != "B" {
		t.Fatalf("call 1: got %s, want B", got.ID)
	}
	t2 := t1.Add(time.Second)
	if got := p.SelectNext(t2); got.ID != "B" {
		t.Fatalf("call 2: got %s, want B (2 < 3)", got.ID)
	}
	// B and C now tie at 3; C has never been used so its older LastUsed wins.
	t3 := t2.Add(time.Second)
	if got := p.SelectNext(t3); got.ID != "C" {
		t.Fatalf("call 3: got %s, want C on LastUsed tie-break", got.ID)
	}
}

func TestMinWait(t *testing.T) {
	p := newTestPool(t, StrategySticky)
	now := time.Now()

	if got := p.MinWait(now); got != 0 {
		t.Errorf("MinWait on empty pool = %s, want 0", got)
	}

	a := testAccount("a")
	b := testAccount("b")
	c := testAccount("c")
	p.Upsert(a)
	p.Upsert(b)
	p.Upsert(c)
	if got := p.MinWait(now); got != 0 {
		t.Errorf("MinWait with no limits = %s, want 0", got)
	}

	p.MarkRateLimited(a, 10*time.Minute, now)
	p.MarkRateLimited(b, 3*time.Minute, now)
	// An already-expired reset does not count.
	expired := now.Add(-time.Minute)
	c.RateLimitReset = &expired

	if got := p.MinWait(now); got != 3*time.Minute {
		t.Errorf("MinWait = %s, want 3m", got)
	}
}
