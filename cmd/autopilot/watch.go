package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/guriri-logistics/autopilot/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Report file changes under the watched source trees",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runWatch(ctx, env)
	},
}

func runWatch(ctx context.Context, env *environment) error {
	w, err := watch.New(watch.Config{
		Paths:  env.cfg.Watch.Paths,
		Ignore: env.cfg.Watch.Ignore,
	}, env.notifier)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
