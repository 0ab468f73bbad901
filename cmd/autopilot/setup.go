package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/guriri-logistics/autopilot/internal/config"
	"github.com/guriri-logistics/autopilot/internal/logging"
	"github.com/guriri-logistics/autopilot/internal/notify"
	"github.com/guriri-logistics/autopilot/internal/state"
)

// #region environment

// environment is what every subcommand starts from.
type environment struct {
	cfg      config.Config
	logger   *slog.Logger
	notifier *notify.SlogNotifier
}

func loadEnvironment() (*environment, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := notify.NewLogger()
	return &environment{cfg: cfg, logger: logger, notifier: notify.New(logger, prod)}, nil
}

// ensureDirs creates the agent's working directories.
func ensureDirs(cfg config.Config) error {
	for _, dir := range []string{
		filepath.Join(".agent", "logs"),
		filepath.Join(".agent", "learning"),
		cfg.CacheDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// #endregion environment

// #region store

// openStore opens the configured state backend. The journal is nil for the
// file backend.
func openStore(cfg config.Config) (state.Store, *logging.Journal, error) {
	switch cfg.StateBackend {
	case "file":
		fs, err := state.NewFileStore(filepath.Join(cfg.CacheDir, "cache.json"))
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil
	default:
		db, err := openSQLite(cfg)
		if err != nil {
			return nil, nil, err
		}
		journal, err := logging.NewJournal(db.DB())
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, journal, nil
	}
}

func openSQLite(cfg config.Config) (*state.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.StateDB), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return state.NewSQLiteStore(cfg.StateDB)
}

// #endregion store
