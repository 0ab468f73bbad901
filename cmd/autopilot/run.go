package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/guriri-logistics/autopilot/internal/autopilot"
	"github.com/guriri-logistics/autopilot/internal/config"
	"github.com/guriri-logistics/autopilot/internal/detect"
	"github.com/guriri-logistics/autopilot/internal/gate"
	"github.com/guriri-logistics/autopilot/internal/llm"
	"github.com/guriri-logistics/autopilot/internal/lock"
	"github.com/guriri-logistics/autopilot/internal/logging"
	"github.com/guriri-logistics/autopilot/internal/metrics"
	"github.com/guriri-logistics/autopilot/internal/patch"
	"github.com/guriri-logistics/autopilot/internal/policy"
	"github.com/guriri-logistics/autopilot/internal/procman"
	"github.com/guriri-logistics/autopilot/internal/runner"
	"github.com/guriri-logistics/autopilot/internal/smoke"
	"github.com/guriri-logistics/autopilot/internal/state"
	"github.com/guriri-logistics/autopilot/internal/vcs"
)

var forceWatch bool

// #region command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the agent (autopilot loop, or watch mode)",
	Long: `Start the agent. Nothing happens unless ENABLE_AGENT_ZERO is true or the
config sets enabled. The config mode picks autopilot or watch; --watch forces watch.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := ensureDirs(env.cfg); err != nil {
			return err
		}
		if !env.cfg.Enabled {
			env.notifier.Info(ctx, "agent is disabled (ENABLE_AGENT_ZERO != true and config.enabled=false). exiting without changes.")
			return nil
		}
		mode := "dev"
		if prod {
			mode = "prod"
		}
		env.notifier.Info(ctx, fmt.Sprintf("agent started (%s) in safe mode (dryRun=%v).", mode, env.cfg.DryRun))

		if forceWatch || env.cfg.Mode == config.ModeWatch {
			return runWatch(ctx, env)
		}
		return runAutopilot(ctx, env)
	},
}

func init() {
	runCmd.Flags().BoolVar(&forceWatch, "watch", false, "run the file watcher instead of the autopilot loop")
}

// #endregion command

// #region autopilot
func runAutopilot(ctx context.Context, env *environment) error {
	cfg := env.cfg

	inst, err := lock.Acquire(filepath.Join(cfg.CacheDir, "autopilot.lock"))
	if err != nil {
		return err
	}
	defer inst.Release()

	store, journal, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	m := metrics.New()
	loop, err := buildLoop(cfg, env, store, journal, m)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	loopCtx, cancelLoop := context.WithCancel(gctx)
	defer cancelLoop()
	g.Go(func() error {
		defer cancelLoop()
		return loop.Run(loopCtx)
	})
	if cfg.Metrics.Addr != "" {
		env.logger.Info("[AUTOPILOT] metrics listener", "addr", cfg.Metrics.Addr)
		g.Go(func() error { return m.Serve(loopCtx, cfg.Metrics.Addr) })
	}
	return g.Wait()
}

// buildLoop wires the production collaborators from config.
func buildLoop(cfg config.Config, env *environment, store state.Store, journal *logging.Journal, m *metrics.Metrics) (*autopilot.Loop, error) {
	run := runner.NewExecRunner("")
	git := vcs.NewGit(run)

	detector := detect.NewDetector(detect.Config{
		LogDir:    detect.ResolveLogDir(cfg.LogDir),
		AppName:   cfg.PM2.AppName,
		ScanLines: cfg.Autopilot.LogScanLines,
	}, detect.KeywordsPredicate(cfg.Autopilot.Keywords))

	checks := gate.CheckConfig{
		RunBuild: cfg.Autopilot.Checks.RunBuild,
		RunTests: cfg.Autopilot.Checks.RunTests,
		Build:    commandOf(cfg.Autopilot.Checks.BuildCommand),
		Test:     commandOf(cfg.Autopilot.Checks.TestCommand),
	}

	var prober smoke.Prober = smoke.NewHTTPProber()
	if cfg.Autopilot.Smoke.Kind == "grpc" {
		prober = smoke.NewGRPCProber(cfg.Autopilot.Smoke.GRPCService)
	}

	deps := autopilot.Deps{
		Detector:  detector,
		Store:     store,
		Generator: patch.NewGenerator(llm.NewOpenAIClient()),
		Guard:     policy.NewGuard(cfg.Autopilot.AllowPaths, cfg.Autopilot.DenyPaths),
		Applier:   patch.NewGitApplier(git, cfg.CacheDir),
		Repo:      git,
		Checks:    gate.NewGate(checks, run),
		Canary: procman.NewPM2(procman.Config{
			AppName:    cfg.PM2.AppName,
			CanaryName: cfg.PM2.CanaryName,
			MainPort:   cfg.Ports.Main,
			CanaryPort: cfg.Ports.Canary,
			Entrypoint: cfg.Canary.Entrypoint,
		}, run, env.notifier),
		Prober:   prober,
		Notifier: env.notifier,
		Metrics:  m,
		Logger:   env.logger,
	}
	if journal != nil {
		deps.Journal = journal
	}

	return autopilot.New(autopilot.Settings{
		DryRun:          cfg.DryRun,
		MaxAttempts:     cfg.Autopilot.MaxFixAttemptsPerIncident,
		Interval:        cfg.Interval(),
		RequireGitClean: cfg.Patch.RequireGitClean,
		MaxPatchBytes:   cfg.Patch.MaxPatchBytes,
		Smoke: smoke.Target{
			Port:    cfg.Ports.Canary,
			Path:    cfg.Autopilot.Smoke.Path,
			Timeout: cfg.SmokeTimeout(),
		},
		TeardownCanary:              cfg.Canary.TeardownAfterPromotion,
		RetryAfterGenerationFailure: cfg.Autopilot.RetryAfterGenerationFailure,
	}, deps)
}

// #endregion autopilot

// #region helpers
func commandOf(argv []string) runner.Command {
	if len(argv) == 0 {
		return runner.Command{}
	}
	return runner.Command{Name: argv[0], Args: argv[1:]}
}

// #endregion helpers
