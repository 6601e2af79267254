package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/xcawolfe-amzn/kiropool/internal/style"
)

// Limit command flags
var (
	limitRetryAfter time.Duration
	limitReason     string
	limitRecoverIn  time.Duration
)

var limitCmd = &cobra.Command{
	Use:   "limit <id>",
	Short: "Mark an account rate-limited",
	Long: `Mark an account as rate-limited until the retry-after window passes.
Health is not affected; the account returns to rotation on its own.

Examples:
  kp limit 3f2a --retry-after 5m`,
	Args: cobra.ExactArgs(1),
	RunE: runLimit,
}

func runLimit(cmd *cobra.Command, args []string) error {
	p, _, err := loadPool()
	if err != nil {
		return err
	}
	a, err := resolveAccount(p, args[0])
	if err != nil {
		return err
	}
	p.MarkRateLimited(a, limitRetryAfter, time.Now())
	if err := p.Flush(); err != nil {
		return err
	}
	fmt.Printf(" %s %s rate-limited for %s\n", style.WarningPrefix, truncID(a.ID), limitRetryAfter)
	return nil
}

var unhealthyCmd = &cobra.Command{
	Use:   "unhealthy <id>",
	Short: "Take an account out of rotation",
	Long: `Mark an account unhealthy. Without --recover-in the account stays out
of rotation until cleared explicitly.

Examples:
  kp unhealthy 3f2a --reason "invalid grant"
  kp unhealthy 3f2a --reason "auth error" --recover-in 1h`,
	Args: cobra.ExactArgs(1),
	RunE: runUnhealthy,
}

func runUnhealthy(cmd *cobra.Command, args []string) error {
	p, _, err := loadPool()
	if err != nil {
		return err
	}
	a, err := resolveAccount(p, args[0])
	if err != nil {
		return err
	}
	var recovery *time.Time
	if limitRecoverIn > 0 {
		t := time.Now().Add(limitRecoverIn)
		recovery = &t
	}
	p.MarkUnhealthy(a, limitReason, recovery)
	if err := p.Flush(); err != nil {
		return err
	}
	fmt.Printf(" %s %s marked unhealthy\n", style.ErrorPrefix, truncID(a.ID))
	return nil
}

var clearCmd = &cobra.Command{
	Use:   "clear [id...]",
	Short: "Return account(s) to rotation",
	Long: `Clear rate-limit and unhealthy state, making accounts eligible again.
With no ids, every ineligible account is cleared.

Examples:
  kp clear            # Clear everything
  kp clear 3f2a`,
	RunE: runClear,
}

func runClear(cmd *cobra.Command, args []string) error {
	p, _, err := loadPool()
	if err != nil {
		return err
	}
	now := time.Now()

	if len(args) == 0 {
		cleared := 0
		for _, a := range p.Accounts() {
			if p.IsAvailable(a, now) {
				continue
			}
			p.MarkHealthy(a)
			fmt.Printf(" %s %s → available\n", style.SuccessPrefix, truncID(a.ID))
			cleared++
		}
		if cleared == 0 {
			fmt.Printf(" %s nothing to clear\n", style.SuccessPrefix)
			return nil
		}
		return p.Flush()
	}

	for _, arg := range args {
		a, err := resolveAccount(p, arg)
		if err != nil {
			return err
		}
		p.MarkHealthy(a)
		fmt.Printf(" %s %s → available\n", style.SuccessPrefix, truncID(a.ID))
	}
	return p.Flush()
}

func init() {
	limitCmd.Flags().DurationVar(&limitRetryAfter, "retry-after", 5*time.Minute, "How long the account stays rate-limited")

	unhealthyCmd.Flags().StringVar(&limitReason, "reason", "", "Why the account is unhealthy")
	unhealthyCmd.Flags().DurationVar(&limitRecoverIn, "recover-in", 0, "Re-evaluate after this long (0 = never)")

	rootCmd.AddCommand(limitCmd)
	rootCmd.AddCommand(unhealthyCmd)
	rootCmd.AddCommand(clearCmd)
}
