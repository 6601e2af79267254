// Package cmd implements the kp CLI.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/xcawolfe-amzn/kiropool/internal/config"
	"github.com/xcawolfe-amzn/kiropool/internal/pool"
	"github.com/xcawolfe-amzn/kiropool/internal/store"
	"github.com/xcawolfe-amzn/kiropool/internal/style"
)

var (
	configPath   string
	strategyFlag string
)

var rootCmd = &cobra.Command{
	Use:   "kp",
	Short: "Rotate OAuth accounts for a quota-metered upstream API",
	Long: `kp manages a pool of OAuth accounts shared between processes.

State lives in two JSON documents (accounts, usage) guarded by advisory
file locks, so any number of kp invocations and embedding processes can
safely select, mark, and sync accounts concurrently.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		style.PrintError("%v", err)
		return 1
	}
	return 0
}

// requireSubcommand is the RunE for parent commands.
func requireSubcommand(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}

// warnLogger routes library warnings to styled stderr output.
type warnLogger struct{}

func (warnLogger) Warn(format string, args ...interface{}) {
	style.PrintWarning(format, args...)
}

// loadPool builds the pool from the configured state directory. The
// --strategy flag, when set, overrides the configured strategy.
func loadPool() (*pool.Pool, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	strategy := cfg.PoolStrategy()
	if strategyFlag != "" {
		strategy, err = pool.ParseStrategy(strategyFlag)
		if err != nil {
			return nil, nil, err
		}
	}
	st := store.New(cfg.Dir(), warnLogger{})
	p := pool.Load(st, strategy, nil, warnLogger{})
	p.SetNotifyDebounce(cfg.Debounce())
	return p, cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().StringVar(&strategyFlag, "strategy", "", "Selection strategy (sticky, round-robin, lowest-usage)")
}

// truncID shortens an account id for table display.
func truncID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
