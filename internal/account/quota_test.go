package account

import "testing"

func intp(n int) *int { return &n }

func quotaAccount(used, limit *int) *Account {
	return &Account{ID: "a", Healthy: true, UsedCount: used, LimitCount: limit}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		used  *int
		limit *int
		want  QuotaStatus
	}{
		{"both unset", nil, nil, QuotaHealthy},
		{"used unset", nil, intp(100), QuotaHealthy},
		{"limit unset", intp(50), nil, QuotaHealthy},
		{"zero used", intp(0), intp(100), QuotaHealthy},
		{"zero limit", intp(5), intp(0), QuotaHealthy},
		{"well under", intp(5), intp(100), QuotaHealthy},
		{"just under warning", intp(79), intp(100), QuotaHealthy},
		{"at warning", intp(80), intp(100), QuotaWarning},
		{"rounds up to warning", intp(796), intp(1000), QuotaWarning},
		{"at limit", intp(100), intp(100), QuotaExhausted},
		{"over limit", intp(120), intp(100), QuotaExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(quotaAccount(tt.used, tt.limit))
			if got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRemaining(t *testing.T) {
	if got := Remaining(quotaAccount(intp(30), intp(50))); got != 20 {
		t.Errorf("Remaining() = %d, want 20", got)
	}
	// Clamped at zero when over the limit.
	if got := Remaining(quotaAccount(intp(60), intp(50))); got != 0 {
		t.Errorf("Remaining() over limit = %d, want 0", got)
	}
	if !UnknownQuota(quotaAccount(nil, intp(50))) {
		t.Error("expected unknown quota when used is unset")
	}
}

func TestRankByRemaining(t *testing.T) {
	a := quotaAccount(intp(40), intp(50)) // 10 left
	b := quotaAccount(nil, nil)           // unknown, sorts first
	c := quotaAccount(intp(10), intp(50)) // 40 left
	accounts := []*Account{a, b, c}

	RankByRemaining(accounts)

	if accounts[0] != b {
		t.Errorf("expected unknown-quota account first, got %v", accounts[0])
	}
	if accounts[1] != c || accounts[2] != a {
		t.Error("expected known-quota accounts in descending remaining order")
	}
}

func TestRankByRemainingStable(t *testing.T) {
	a := quotaAccount(intp(10), intp(50))
	b := quotaAccount(intp(10), intp(50))
	accounts := []*Account{a, b}
	RankByRemaining(accounts)
	if accounts[0] != a {
		t.Error("equal remaining should preserve list order")
	}
}
