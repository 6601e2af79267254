package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/xcawolfe-amzn/kiropool/internal/account"
	"github.com/xcawolfe-amzn/kiropool/internal/style"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pool availability and quota summary",
	Long: `Show which accounts can serve a request right now, how much quota
each has left, and how long to back off if none is available.

Examples:
  kp status           # Text output
  kp status --json    # JSON output`,
	RunE: runStatus,
}

// StatusReport is the JSON shape for status output.
type StatusReport struct {
	Strategy  string       `json:"strategy"`
	Total     int          `json:"total"`
	Available int          `json:"available"`
	MinWaitMs int64        `json:"minWaitMs"`
	Accounts  []StatusItem `json:"accounts"`
}

// StatusItem describes one account in the status report.
type StatusItem struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Available bool   `json:"available"`
	Quota     string `json:"quota"`
	Remaining string `json:"remaining"`
	Reason    string `json:"reason,omitempty"`
	ResetsAt  string `json:"resetsAt,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	p, _, err := loadPool()
	if err != nil {
		return err
	}
	now := time.Now()

	report := StatusReport{
		Strategy:  string(p.Strategy()),
		Total:     p.Len(),
		MinWaitMs: p.MinWait(now).Milliseconds(),
	}
	for _, a := range p.Accounts() {
		avail := p.IsAvailable(a, now)
		if avail {
			report.Available++
		}
		remaining := "unknown"
		if !account.UnknownQuota(a) {
			remaining = fmt.Sprintf("%d", account.Remaining(a))
		}
		item := StatusItem{
			ID:        a.ID,
			Email:     a.RealEmail,
			Available: avail,
			Quota:     string(account.Classify(a)),
			Remaining: remaining,
			Reason:    a.UnhealthyReason,
		}
		if a.RateLimitReset != nil && now.Before(*a.RateLimitReset) {
			item.ResetsAt = a.RateLimitReset.UTC().Format(time.RFC3339)
		}
		report.Accounts = append(report.Accounts, item)
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Println(style.Bold.Render("Account Pool Status"))
	fmt.Println()
	for _, item := range report.Accounts {
		var badge string
		switch {
		case item.Available && item.Quota == string(account.QuotaWarning):
			badge = style.Warning.Render("available (quota low)")
		case item.Available:
			badge = style.Success.Render("available")
		case item.ResetsAt != "":
			badge = style.Warning.Render("rate-limited") + style.Dim.Render(" (resets "+item.ResetsAt+")")
		default:
			badge = style.Error.Render("unhealthy")
			if item.Reason != "" {
				badge += style.Dim.Render(" (" + item.Reason + ")")
			}
		}
		email := ""
		if item.Email != "" {
			email = style.Dim.Render(" <" + item.Email + ">")
		}
		fmt.Printf(" %-8s %s%s\n", truncID(item.ID), badge, email)
	}
	fmt.Println()
	fmt.Printf(" %s %d of %d available, strategy %s\n",
		style.Info.Render("Summary:"), report.Available, report.Total, report.Strategy)
	if report.Available == 0 && report.MinWaitMs > 0 {
		fmt.Printf(" %s retry in %s\n", style.WarningPrefix,
			time.Duration(report.MinWaitMs)*time.Millisecond)
	}
	return nil
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(statusCmd)
}
