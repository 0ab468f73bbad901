package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/guriri-logistics/autopilot/internal/config"
)

// #region flags
var (
	configPath string
	envFile    string
	prod       bool
)

// #endregion flags

// #region root
var rootCmd = &cobra.Command{
	Use:   "autopilot",
	Short: "Incident-remediation loop for a PM2-managed web app",
	Long: `autopilot watches the PM2 logs of the managed app, asks a language model
for a unified-diff fix when a new failure appears, validates the fix on a
canary process and promotes it or rolls the tree back.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "config file (.json, .jsonc, .yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().BoolVar(&prod, "prod", false, "production notifier (prefix [agent:prod], debug suppressed)")

	rootCmd.AddCommand(runCmd, watchCmd, inspectCmd, replayCmd, stateCmd)
}

// #endregion root

// #region main
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[agent] fatal: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main
