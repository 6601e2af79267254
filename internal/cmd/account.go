package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/xcawolfe-amzn/kiropool/internal/account"
	"github.com/xcawolfe-amzn/kiropool/internal/pool"
	"github.com/xcawolfe-amzn/kiropool/internal/style"
)

var accountJSON bool

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage the account pool",
	RunE:  requireSubcommand,
	Long: `Manage the accounts in the rotation pool.

Commands:
  kp account list      Show all accounts with health and quota
  kp account add       Register an account from an external OAuth flow
  kp account remove    Remove an account and its usage record`,
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all accounts with health and quota",
	RunE:  runAccountList,
}

// AccountItem is the JSON shape for account list output.
type AccountItem struct {
	ID         string `json:"id"`
	AuthMethod string `json:"authMethod"`
	Region     string `json:"region"`
	Email      string `json:"email,omitempty"`
	Healthy    bool   `json:"healthy"`
	Reason     string `json:"reason,omitempty"`
	Quota      string `json:"quota"`
	Used       *int   `json:"usedCount,omitempty"`
	Limit      *int   `json:"limitCount,omitempty"`
	RateLimit  string `json:"rateLimitResetTime,omitempty"`
}

func runAccountList(cmd *cobra.Command, args []string) error {
	p, _, err := loadPool()
	if err != nil {
		return err
	}

	if accountJSON {
		items := make([]AccountItem, 0, p.Len())
		for _, a := range p.Accounts() {
			item := AccountItem{
				ID:         a.ID,
				AuthMethod: string(a.AuthMethod),
				Region:     a.Region,
				Email:      a.RealEmail,
				Healthy:    a.Healthy,
				Reason:     a.UnhealthyReason,
				Quota:      string(account.Classify(a)),
				Used:       a.UsedCount,
				Limit:      a.LimitCount,
			}
			if a.RateLimitReset != nil {
				item.RateLimit = a.RateLimitReset.UTC().Format(time.RFC3339)
			}
			items = append(items, item)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	if p.Len() == 0 {
		fmt.Println("No accounts in the pool.")
		fmt.Println("\nTo add one:")
		fmt.Println("  kp account add --method social --refresh-token ...")
		return nil
	}

	tbl := style.NewTable(
		style.Column{Name: "ID", Width: 8},
		style.Column{Name: "METHOD", Width: 6},
		style.Column{Name: "EMAIL", Width: 28},
		style.Column{Name: "HEALTH", Width: 12},
		style.Column{Name: "QUOTA", Width: 9},
		style.Column{Name: "USED", Width: 9, AlignRight: true},
	)
	now := time.Now()
	for _, a := range p.Accounts() {
		health := style.Success.Render("healthy")
		switch {
		case !a.Healthy:
			health = style.Error.Render("unhealthy")
		case a.RateLimitReset != nil && now.Before(*a.RateLimitReset):
			health = style.Warning.Render("rate-limited")
		}
		quota := string(account.Classify(a))
		switch account.Classify(a) {
		case account.QuotaWarning:
			quota = style.Warning.Render(quota)
		case account.QuotaExhausted:
			quota = style.Error.Render(quota)
		default:
			quota = style.Dim.Render(quota)
		}
		used := "-"
		if a.UsedCount != nil && a.LimitCount != nil {
			used = fmt.Sprintf("%d/%d", *a.UsedCount, *a.LimitCount)
		}
		tbl.AddRow(truncID(a.ID), string(a.AuthMethod), a.RealEmail, health, quota, used)
	}
	fmt.Print(tbl.Render())
	return nil
}

// Account add flags
var (
	addMethod       string
	addRegion       string
	addProfileArn   string
	addClientID     string
	addClientSecret string
	addRefreshToken string
	addAccessToken  string
	addExpiresAt    string
	addEmail        string
)

var accountAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register an account from an external OAuth flow",
	Long: `Add an account to the pool. The OAuth handshake happens outside kp;
this command records the credentials it produced.

Examples:
  kp account add --method social --refresh-token TOKEN --access-token TOKEN \
      --expires-at 2026-09-01T00:00:00Z
  kp account add --method idc --region eu-west-1 --client-id ID --client-secret SECRET \
      --refresh-token TOKEN --access-token TOKEN --expires-at 2026-09-01T00:00:00Z`,
	RunE: runAccountAdd,
}

func runAccountAdd(cmd *cobra.Command, args []string) error {
	method := account.AuthMethod(addMethod)
	if method != account.AuthSocial && method != account.AuthIdC {
		return fmt.Errorf("invalid --method %q (want social or idc)", addMethod)
	}
	if addRefreshToken == "" {
		return fmt.Errorf("--refresh-token is required")
	}

	p, _, err := loadPool()
	if err != nil {
		return err
	}

	a := account.New(method, addRegion)
	a.ProfileArn = addProfileArn
	a.ClientID = addClientID
	a.ClientSecret = addClientSecret
	a.RefreshToken = addRefreshToken
	a.AccessToken = addAccessToken
	if addExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, addExpiresAt)
		if err != nil {
			return fmt.Errorf("parsing --expires-at: %w", err)
		}
		a.ExpiresAt = t
	}
	if addEmail != "" && addEmail != account.AnonymousEmail {
		a.RealEmail = addEmail
	}

	p.Upsert(a)
	if err := p.Flush(); err != nil {
		return err
	}
	fmt.Printf(" %s added %s (%s)\n", style.SuccessPrefix, a.ID, a.AuthMethod)
	return nil
}

var accountRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an account and its usage record",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountRemove,
}

func runAccountRemove(cmd *cobra.Command, args []string) error {
	p, _, err := loadPool()
	if err != nil {
		return err
	}
	a, err := resolveAccount(p, args[0])
	if err != nil {
		return err
	}
	p.Remove(a.ID)
	if err := p.Flush(); err != nil {
		return err
	}
	fmt.Printf(" %s removed %s\n", style.SuccessPrefix, a.ID)
	return nil
}

// resolveAccount finds an account by full id, unique id prefix, or email.
func resolveAccount(p *pool.Pool, arg string) (*account.Account, error) {
	if a := p.ByID(arg); a != nil {
		return a, nil
	}
	var matches []*account.Account
	for _, a := range p.Accounts() {
		if len(arg) >= 4 && len(a.ID) >= len(arg) && a.ID[:len(arg)] == arg {
			matches = append(matches, a)
		} else if a.RealEmail != "" && a.RealEmail == arg {
			matches = append(matches, a)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, fmt.Errorf("no account matches %q", arg)
	default:
		return nil, fmt.Errorf("%q is ambiguous (%d matches)", arg, len(matches))
	}
}

func init() {
	accountListCmd.Flags().BoolVar(&accountJSON, "json", false, "Output as JSON")

	accountAddCmd.Flags().StringVar(&addMethod, "method", "social", "Auth method (social, idc)")
	accountAddCmd.Flags().StringVar(&addRegion, "region", "", "Region (default "+account.DefaultRegion+")")
	accountAddCmd.Flags().StringVar(&addProfileArn, "profile-arn", "", "Profile ARN")
	accountAddCmd.Flags().StringVar(&addClientID, "client-id", "", "OAuth client id")
	accountAddCmd.Flags().StringVar(&addClientSecret, "client-secret", "", "OAuth client secret")
	accountAddCmd.Flags().StringVar(&addRefreshToken, "refresh-token", "", "Refresh token (required)")
	accountAddCmd.Flags().StringVar(&addAccessToken, "access-token", "", "Access token")
	accountAddCmd.Flags().StringVar(&addExpiresAt, "expires-at", "", "Access token expiry (RFC3339)")
	accountAddCmd.Flags().StringVar(&addEmail, "email", "", "Resolved account email")

	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountAddCmd)
	accountCmd.AddCommand(accountRemoveCmd)

	rootCmd.AddCommand(accountCmd)
}
