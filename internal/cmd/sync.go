package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/xcawolfe-amzn/kiropool/internal/account"
	"github.com/xcawolfe-amzn/kiropool/internal/pool"
	"github.com/xcawolfe-amzn/kiropool/internal/style"
)

// Sync command flags
var (
	syncUsed  int
	syncLimit int
	syncEmail string
)

var syncCmd = &cobra.Command{
	Use:   "sync <id>",
	Short: "Apply an authoritative usage snapshot",
	Long: `Record the server-reported usage for an account. The snapshot comes
from an external quota fetch; kp stores only the parsed result. Any
optimistic local counting since the last sync is overwritten.

Examples:
  kp sync 3f2a --used 41 --limit 50
  kp sync 3f2a --used 41 --limit 50 --email dev@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncLimit < 0 || syncUsed < 0 {
		return fmt.Errorf("--used and --limit must be non-negative")
	}

	p, _, err := loadPool()
	if err != nil {
		return err
	}
	a, err := resolveAccount(p, args[0])
	if err != nil {
		return err
	}

	snap := pool.UsageSnapshot{UsedCount: syncUsed, LimitCount: syncLimit, Email: syncEmail}
	if err := p.SyncUsage(a.ID, snap, time.Now()); err != nil {
		return err
	}
	if err := p.Flush(); err != nil {
		return err
	}

	status := account.Classify(a)
	badge := style.Success.Render(string(status))
	switch status {
	case account.QuotaWarning:
		badge = style.Warning.Render(string(status))
	case account.QuotaExhausted:
		badge = style.Error.Render(string(status))
	}
	fmt.Printf(" %s %s synced: %d/%d (%s)\n", style.SuccessPrefix, truncID(a.ID), syncUsed, syncLimit, badge)
	return nil
}

func init() {
	syncCmd.Flags().IntVar(&syncUsed, "used", 0, "Server-reported used count")
	syncCmd.Flags().IntVar(&syncLimit, "limit", 0, "Server-reported limit count")
	syncCmd.Flags().StringVar(&syncEmail, "email", "", "Server-reported email")
	_ = syncCmd.MarkFlagRequired("used")
	_ = syncCmd.MarkFlagRequired("limit")

	rootCmd.AddCommand(syncCmd)
}
