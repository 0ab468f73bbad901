package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the agent looks for its config file.
var DefaultPath = filepath.Join(".agent", "config.json")

var validate = validator.New()

// #region defaults

// Default returns the built-in configuration: disabled, dry run, autopilot mode.
func Default() Config {
	return Config{
		Enabled:      false,
		DryRun:       true,
		Mode:         ModeAutopilot,
		CacheDir:     filepath.Join(".agent", ".cache"),
		StateBackend: "sqlite",
		StateDB:      filepath.Join(".agent", ".cache", "autopilot.db"),
		PM2: PM2Config{
			AppName:    "guriri",
			CanaryName: "guriri-canary",
		},
		Ports: PortsConfig{Main: 5000, Canary: 5010},
		Canary: CanaryConfig{
			Entrypoint: "dist/index.js",
		},
		Autopilot: AutopilotConfig{
			IntervalSeconds:           60,
			LogScanLines:              220,
			MaxFixAttemptsPerIncident: 2,
			AllowPaths:                []string{"server/", "client/", "shared/", "tests/", "scripts/"},
			DenyPaths:                 []string{".env", ".env.", "migrations/", "uploads/", "datasets/", ".agent/"},
			Checks: ChecksConfig{
				RunBuild:     true,
				RunTests:     false,
				BuildCommand: []string{"npm", "run", "build"},
				TestCommand:  []string{"npm", "test"},
			},
			Smoke: SmokeConfig{Kind: "http", Path: "/health", TimeoutMs: 5000},
		},
		Watch: WatchConfig{
			Paths:  []string{"server", "client", "shared"},
			Ignore: []string{"node_modules", "dist", ".git"},
		},
		Patch: PatchConfig{RequireGitClean: true, MaxPatchBytes: 256 * 1024},
	}
}

// #endregion defaults

// #region load

// Load reads path over the defaults, applies environment overrides and validates.
// A missing file yields the defaults. .yaml/.yml files are YAML; anything else
// is JSON with comments and trailing commas allowed.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := decode(path, data, &cfg); err != nil {
			return Config{}, err
		}
	}
	ApplyEnv(&cfg, os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return fmt.Errorf("parse json config %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overlays ENABLE_AGENT_ZERO, AUTOPILOT_DRY_RUN and AUTOPILOT_INTERVAL_SECONDS.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if truthy(getenv("ENABLE_AGENT_ZERO")) {
		cfg.Enabled = true
	}
	if v := strings.TrimSpace(getenv("AUTOPILOT_DRY_RUN")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.DryRun = b
		}
	}
	if v := getenv("AUTOPILOT_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Autopilot.IntervalSeconds = n
		}
	}
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is ignored.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// #endregion load

// #region accessors

// Validate checks struct constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Interval is the sleep between ticks.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Autopilot.IntervalSeconds) * time.Second
}

// SmokeTimeout is the probe deadline.
func (c Config) SmokeTimeout() time.Duration {
	return time.Duration(c.Autopilot.Smoke.TimeoutMs) * time.Millisecond
}

// #endregion accessors

// #region helpers
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// #endregion helpers
