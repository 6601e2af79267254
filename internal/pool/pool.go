// Package pool implements the account rotation engine: an in-memory pool
// of OAuth accounts with pluggable selection strategies, health and
// rate-limit tracking, and explicit flush/load against the shared on-disk
// documents.
//
// A pool instance is the single in-memory source of truth for one process.
// Within a process access is sequential; cross-process safety comes from
// the store's advisory locking and atomic writes.
package pool

import (
	"fmt"
	"time"

	"github.com/xcawolfe-amzn/kiropool/internal/account"
	"github.com/xcawolfe-amzn/kiropool/internal/store"
)

// Strategy selects which account serves the next request.
type Strategy string

const (
	// StrategySticky keeps returning the current account while it stays
	// available (session affinity).
	StrategySticky Strategy = "sticky"
	// StrategyRoundRobin rotates through the available accounts in order.
	StrategyRoundRobin Strategy = "round-robin"
	// StrategyLowestUsage picks the available account with the fewest
	// recorded requests.
	StrategyLowestUsage Strategy = "lowest-usage"
)

// ParseStrategy validates a strategy name from config or flags.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySticky, StrategyRoundRobin, StrategyLowestUsage:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown strategy %q (want sticky, round-robin, or lowest-usage)", s)
}

// DefaultNotifyDebounce suppresses repeat switch notifications for the
// same account within this window.
const DefaultNotifyDebounce = 30 * time.Second

// Pool owns the live account list and selection state.
//
// The selection position is kept in two fields because the strategies
// interpret it differently: active is a full-list index (sticky and
// lowest-usage point at the account they chose), while rrCursor is a
// rotation counter over the filtered available list (round-robin advances
// it modulo however many accounts are currently eligible). Unifying them
// would change observable rotation order.
type Pool struct {
	st       *store.Store
	log      store.Logger
	codec    TokenCodec
	strategy Strategy

	accounts []*account.Account
	usage    map[string]account.UsageRecord

	active   int
	rrCursor int

	notifyDebounce time.Duration
	lastNotified   int
	lastNotifiedAt time.Time
}

// Load reads both documents and builds the pool. Usage records are
// authoritative: counters and resolved emails from the usage document
// overwrite anything stale in the account document. The selection cursor
// always starts at 0; the persisted activeIndex is written back on flush
// but a restarted process carries no session affinity.
func Load(st *store.Store, strategy Strategy, codec TokenCodec, log store.Logger) *Pool {
	if log == nil {
		log = noopLogger{}
	}
	if strategy == "" {
		strategy = StrategySticky
	}

	doc := st.LoadAccounts()
	usageDoc := st.LoadUsage()

	p := &Pool{
		st:             st,
		log:            log,
		codec:          codec,
		strategy:       strategy,
		usage:          make(map[string]account.UsageRecord, len(usageDoc.Usage)),
		notifyDebounce: DefaultNotifyDebounce,
		lastNotified:   -1,
	}
	for _, rec := range doc.Accounts {
		a := account.FromRecord(rec)
		if u, ok := usageDoc.Usage[a.ID]; ok {
			a.ApplyUsage(u)
			p.usage[a.ID] = u
		}
		p.accounts = append(p.accounts, a)
	}
	return p
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...interface{}) {}

// Strategy returns the active selection strategy.
func (p *Pool) Strategy() Strategy { return p.strategy }

// SetStrategy switches the selection strategy for subsequent selections.
func (p *Pool) SetStrategy(s Strategy) { p.strategy = s }

// SetNotifyDebounce overrides the switch-notification debounce window.
func (p *Pool) SetNotifyDebounce(d time.Duration) { p.notifyDebounce = d }

// Accounts returns the live account list in pool order. The slice is
// shared; callers must not reorder it.
func (p *Pool) Accounts() []*account.Account { return p.accounts }

// Len returns the number of accounts in the pool.
func (p *Pool) Len() int { return len(p.accounts) }

// ByID returns the account with the given id, or nil.
func (p *Pool) ByID(id string) *account.Account {
	for _, a := range p.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// indexOf returns a's position in the full list, or -1.
func (p *Pool) indexOf(a *account.Account) int {
	for i, b := range p.accounts {
		if b == a {
			return i
		}
	}
	return -1
}

// Upsert inserts the account or replaces the existing account with the
// same id, preserving list position on replace.
func (p *Pool) Upsert(a *account.Account) {
	for i, b := range p.accounts {
		if b.ID == a.ID {
			p.accounts[i] = a
			return
		}
	}
	p.accounts = append(p.accounts, a)
}

// Remove deletes the account and its usage record, then clamps the
// selection cursor back into range. Reports whether the id was present.
func (p *Pool) Remove(id string) bool {
	idx := -1
	for i, a := range p.accounts {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	p.accounts = append(p.accounts[:idx], p.accounts[idx+1:]...)
	delete(p.usage, id)

	if len(p.accounts) == 0 {
		p.active = 0
	} else if p.active >= len(p.accounts) {
		p.active = len(p.accounts) - 1
	}
	return true
}

// SyncUsage applies an authoritative usage snapshot to both the live
// account and its usage record, overwriting any optimistic local counting
// since the last sync.
func (p *Pool) SyncUsage(id string, snap UsageSnapshot, now time.Time) error {
	a := p.ByID(id)
	if a == nil {
		return fmt.Errorf("syncing usage: unknown account %s", id)
	}

	used, limit := snap.UsedCount, snap.LimitCount
	a.UsedCount = &used
	a.LimitCount = &limit
	a.LocalRequests = 0
	if snap.Email != "" && snap.Email != account.AnonymousEmail {
		a.RealEmail = snap.Email
	}

	p.usage[id] = account.UsageRecord{
		UsedCount:  used,
		LimitCount: limit,
		RealEmail:  a.RealEmail,
		LastSync:   now,
	}
	return nil
}

// ShouldNotifySwitch reports whether the caller should surface a switch to
// the account at idx. Repeat notifications for the same account inside the
// debounce window are suppressed.
func (p *Pool) ShouldNotifySwitch(idx int, now time.Time) bool {
	if idx == p.lastNotified && now.Sub(p.lastNotifiedAt) < p.notifyDebounce {
		return false
	}
	p.lastNotified = idx
	p.lastNotifiedAt = now
	return true
}

// Flush persists both documents sequentially: credential and health fields
// to the account document, the usage map to the usage document. Each file
// is an independent atomic unit; a crash between the two saves can leave
// the pair inconsistent, which is accepted and not repaired.
func (p *Pool) Flush() error {
	doc := account.NewDocument()
	doc.ActiveIndex = p.active
	for _, a := range p.accounts {
		doc.Accounts = append(doc.Accounts, a.Record())
	}
	if err := p.st.SaveAccounts(doc); err != nil {
		return fmt.Errorf("saving account document: %w", err)
	}

	usageDoc := account.NewUsageDocument()
	for id, u := range p.usage {
		usageDoc.Usage[id] = u
	}
	if err := p.st.SaveUsage(usageDoc); err != nil {
		return fmt.Errorf("saving usage document: %w", err)
	}
	return nil
}
