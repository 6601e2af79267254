// Package account defines the credential pool data model and the pure
// quota classification helpers used when picking the next account.
package account

import (
	"time"

	"github.com/google/uuid"
)

// AuthMethod identifies how an account authenticates upstream.
type AuthMethod string

const (
	// AuthSocial is browser-based social login.
	AuthSocial AuthMethod = "social"
	// AuthIdC is delegated identity (IAM Identity Center).
	AuthIdC AuthMethod = "idc"
)

// DefaultRegion is used when a persisted account carries no region.
const DefaultRegion = "us-east-1"

// AnonymousEmail is the placeholder identity social login reports before
// the real address has been resolved. RealEmail is never set to it.
const AnonymousEmail = "anonymous@kiro.dev"

// Account is one OAuth credential set plus its runtime rotation state.
// Quota counters are pointers: nil means unknown, which is treated
// optimistically (never as zero).
type Account struct {
	ID           string
	AuthMethod   AuthMethod
	Region       string
	ProfileArn   string
	ClientID     string
	ClientSecret string
	RefreshToken string
	AccessToken  string
	ExpiresAt    time.Time

	LastUsed   *time.Time
	UsedCount  *int
	LimitCount *int
	RealEmail  string

	// LocalRequests counts optimistic selection bumps since the last
	// authoritative usage sync. In-memory only; SyncUsage resets it.
	LocalRequests int

	RateLimitReset *time.Time

	Healthy         bool
	UnhealthyReason string
	RecoveryTime    *time.Time
}

// New mints an account with a fresh id. Ids are generated once and never
// reused, even after removal.
func New(method AuthMethod, region string) *Account {
	if region == "" {
		region = DefaultRegion
	}
	return &Account{
		ID:         uuid.NewString(),
		AuthMethod: method,
		Region:     region,
		Healthy:    true,
	}
}

// Record is the persisted form of an account: credential and health fields
// only. Usage counters live in the usage document so quota syncs never
// rewrite credential material.
type Record struct {
	ID              string     `json:"id"`
	AuthMethod      AuthMethod `json:"authMethod"`
	Region          string     `json:"region"`
	ProfileArn      string     `json:"profileArn,omitempty"`
	ClientID        string     `json:"clientId,omitempty"`
	ClientSecret    string     `json:"clientSecret,omitempty"`
	RefreshToken    string     `json:"refreshToken"`
	AccessToken     string     `json:"accessToken"`
	ExpiresAt       time.Time  `json:"expiresAt"`
	RateLimitReset  *time.Time `json:"rateLimitResetTime,omitempty"`
	Healthy         bool       `json:"isHealthy"`
	UnhealthyReason string     `json:"unhealthyReason,omitempty"`
	RecoveryTime    *time.Time `json:"recoveryTime,omitempty"`
}

// UsageRecord is the per-account entry in the usage document.
type UsageRecord struct {
	UsedCount  int       `json:"usedCount"`
	LimitCount int       `json:"limitCount"`
	RealEmail  string    `json:"realEmail,omitempty"`
	LastSync   time.Time `json:"lastSync"`
}

// Document is the persisted account document.
type Document struct {
	Version     int      `json:"version"`
	Accounts    []Record `json:"accounts"`
	ActiveIndex int      `json:"activeIndex"`
}

// UsageDocument is the persisted usage document, keyed by account id.
type UsageDocument struct {
	Version int                    `json:"version"`
	Usage   map[string]UsageRecord `json:"usage"`
}

// CurrentVersion is the schema version written to both documents.
const CurrentVersion = 1

// NewDocument returns an empty version-1 account document.
func NewDocument() *Document {
	return &Document{Version: CurrentVersion, Accounts: []Record{}}
}

// NewUsageDocument returns an empty version-1 usage document.
func NewUsageDocument() *UsageDocument {
	return &UsageDocument{Version: CurrentVersion, Usage: make(map[string]UsageRecord)}
}

// Record converts the account to its persisted form.
func (a *Account) Record() Record {
	return Record{
		ID:              a.ID,
		AuthMethod:      a.AuthMethod,
		Region:          a.Region,
		ProfileArn:      a.ProfileArn,
		ClientID:        a.ClientID,
		ClientSecret:    a.ClientSecret,
		RefreshToken:    a.RefreshToken,
		AccessToken:     a.AccessToken,
		ExpiresAt:       a.ExpiresAt,
		RateLimitReset:  a.RateLimitReset,
		Healthy:         a.Healthy,
		UnhealthyReason: a.UnhealthyReason,
		RecoveryTime:    a.RecoveryTime,
	}
}

// FromRecord rebuilds a live account from its persisted form, defaulting
// the region if the record predates region tracking.
func FromRecord(r Record) *Account {
	region := r.Region
	if region == "" {
		region = DefaultRegion
	}
	return &Account{
		ID:              r.ID,
		AuthMethod:      r.AuthMethod,
		Region:          region,
		ProfileArn:      r.ProfileArn,
		ClientID:        r.ClientID,
		ClientSecret:    r.ClientSecret,
		RefreshToken:    r.RefreshToken,
		AccessToken:     r.AccessToken,
		ExpiresAt:       r.ExpiresAt,
		RateLimitReset:  r.RateLimitReset,
		Healthy:         r.Healthy,
		UnhealthyReason: r.UnhealthyReason,
		RecoveryTime:    r.RecoveryTime,
	}
}

// ApplyUsage overwrites the account's quota fields from a usage record.
// The usage document is authoritative over anything embedded in the
// account document.
func (a *Account) ApplyUsage(u UsageRecord) {
	used := u.UsedCount
	limit := u.LimitCount
	a.UsedCount = &used
	a.LimitCount = &limit
	if u.RealEmail != "" {
		a.RealEmail = u.RealEmail
	}
}
