package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/xcawolfe-amzn/kiropool/internal/style"
)

var nextJSON bool

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Select the account for the next request",
	Long: `Run one selection against the pool and print the chosen account.

When no account is available the exit code is 2 and the minimum wait
before retrying is reported.

Examples:
  kp next                            # Use the configured strategy
  kp next --strategy round-robin
  kp next --json`,
	RunE: runNext,
}

// NextResult is the JSON shape for next output.
type NextResult struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email,omitempty"`
	Region    string `json:"region,omitempty"`
	Available bool   `json:"available"`
	MinWaitMs int64  `json:"minWaitMs,omitempty"`
}

func runNext(cmd *cobra.Command, args []string) error {
	p, _, err := loadPool()
	if err != nil {
		return err
	}
	now := time.Now()

	a := p.SelectNext(now)
	if a == nil {
		wait := p.MinWait(now)
		if nextJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(NextResult{Available: false, MinWaitMs: wait.Milliseconds()})
		} else if wait > 0 {
			style.PrintWarning("no account available, retry in %s", wait)
		} else {
			style.PrintWarning("no account available")
		}
		os.Exit(2)
	}

	if err := p.Flush(); err != nil {
		return err
	}

	if nextJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(NextResult{
			ID:        a.ID,
			Email:     a.RealEmail,
			Region:    a.Region,
			Available: true,
		})
	}
	fmt.Println(a.ID)
	return nil
}

func init() {
	nextCmd.Flags().BoolVar(&nextJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(nextCmd)
}
