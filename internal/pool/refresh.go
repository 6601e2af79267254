package pool

import (
	"fmt"
	"time"

	"github.com/xcawolfe-amzn/kiropool/internal/account"
)

// TokenParts are the fragments packed into the composite refresh-token
// bundle the upstream OAuth protocol expects as one opaque string.
type TokenParts struct {
	RefreshToken string
	ProfileArn   string
	ClientID     string
	ClientSecret string
	AuthMethod   account.AuthMethod
}

// TokenCodec packs and unpacks the composite refresh-token bundle. The
// pool never interprets the opaque form itself.
type TokenCodec interface {
	Encode(parts TokenParts) (string, error)
	Decode(opaque string) (TokenParts, error)
}

// RefreshDetails is what the external OAuth provider returns after a
// token refresh.
type RefreshDetails struct {
	AccessToken        string
	RefreshTokenBundle string
	ExpiresAt          time.Time
	Email              string
}

// UsageSnapshot is the parsed result of a remote quota fetch. The network
// call happens outside the pool.
type UsageSnapshot struct {
	UsedCount  int
	LimitCount int
	Email      string
}

// ApplyRefresh merges the result of an external token refresh into the
// account: the bundle is decoded and non-empty fragments replace the
// stored ones, fresh access credentials are stamped, and the resolved
// email is recorded unless it is still the anonymous placeholder.
func (p *Pool) ApplyRefresh(a *account.Account, d RefreshDetails, now time.Time) error {
	if p.codec == nil {
		return fmt.Errorf("applying refresh to %s: no token codec configured", a.ID)
	}
	parts, err := p.codec.Decode(d.RefreshTokenBundle)
	if err != nil {
		return fmt.Errorf("decoding refresh bundle for %s: %w", a.ID, err)
	}

	if parts.RefreshToken != "" {
		a.RefreshToken = parts.RefreshToken
	}
	if parts.ProfileArn != "" {
		a.ProfileArn = parts.ProfileArn
	}
	if parts.ClientID != "" {
		a.ClientID = parts.ClientID
	}

	a.AccessToken = d.AccessToken
	a.ExpiresAt = d.ExpiresAt
	t := now
	a.LastUsed = &t

	if d.Email != "" && d.Email != account.AnonymousEmail {
		a.RealEmail = d.Email
	}
	return nil
}

// AuthDetails re-encodes the account's token fragments into the single
// opaque string consumed by the upstream OAuth flow.
func (p *Pool) AuthDetails(a *account.Account) (string, error) {
	if p.codec == nil {
		return "", fmt.Errorf("exporting credentials for %s: no token codec configured", a.ID)
	}
	opaque, err := p.codec.Encode(TokenParts{
		RefreshToken: a.RefreshToken,
		ProfileArn:   a.ProfileArn,
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		AuthMethod:   a.AuthMethod,
	})
	if err != nil {
		return "", fmt.Errorf("encoding refresh bundle for %s: %w", a.ID, err)
	}
	return opaque, nil
}
