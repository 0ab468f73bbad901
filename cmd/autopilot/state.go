package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guriri-logistics/autopilot/internal/state"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Manage the persisted loop state",
}

var stateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the last incident fingerprint and attempt count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		if err := ensureDirs(env.cfg); err != nil {
			return err
		}
		store, _, err := openStore(env.cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := resetState(cmd.Context(), store); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "state reset (%s backend)\n", env.cfg.StateBackend)
		return nil
	},
}

func init() {
	stateCmd.AddCommand(stateResetCmd)
}

func resetState(ctx context.Context, store state.Store) error {
	if err := store.Save(ctx, state.AgentState{}); err != nil {
		return fmt.Errorf("reset state: %w", err)
	}
	return nil
}
