package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/guriri-logistics/autopilot/internal/state"
)

// #region fixture-types

// Fixture is a recorded sequence of ticks with the expected loop outcomes.
type Fixture struct {
	Description string        `json:"description" yaml:"description"`
	Baseline    string        `json:"baseline" yaml:"baseline"`
	Config      FixtureConfig `json:"config" yaml:"config"`
	StartState  FixtureState  `json:"start_state" yaml:"start_state"`
	Ticks       []FixtureTick `json:"ticks" yaml:"ticks"`
}

// FixtureConfig is the subset of loop settings a scenario can vary.
type FixtureConfig struct {
	DryRun                      bool     `json:"dry_run" yaml:"dry_run"`
	MaxAttempts                 int      `json:"max_attempts" yaml:"max_attempts"`
	RequireGitClean             bool     `json:"require_git_clean" yaml:"require_git_clean"`
	MaxPatchBytes               int      `json:"max_patch_bytes" yaml:"max_patch_bytes"`
	AllowPaths                  []string `json:"allow_paths" yaml:"allow_paths"`
	DenyPaths                   []string `json:"deny_paths" yaml:"deny_paths"`
	RunBuild                    bool     `json:"run_build" yaml:"run_build"`
	RunTests                    bool     `json:"run_tests" yaml:"run_tests"`
	TeardownCanary              bool     `json:"teardown_canary" yaml:"teardown_canary"`
	RetryAfterGenerationFailure bool     `json:"retry_after_generation_failure" yaml:"retry_after_generation_failure"`
}

// FixtureState seeds the persisted AgentState.
type FixtureState struct {
	LastFingerprint string `json:"last_fingerprint" yaml:"last_fingerprint"`
	Attempts        int    `json:"attempts" yaml:"attempts"`
	LastAction      string `json:"last_action" yaml:"last_action"`
	LastActionLog   string `json:"last_action_log" yaml:"last_action_log"`
}

// FixtureTick scripts what the outside world answers during one tick.
type FixtureTick struct {
	Excerpt         string                     `json:"excerpt" yaml:"excerpt"`
	Replies         []string                   `json:"replies" yaml:"replies"`
	GenerationError string                     `json:"generation_error" yaml:"generation_error"`
	Commands        map[string][]FixtureResult `json:"commands" yaml:"commands"`
	Smoke           []FixtureResult            `json:"smoke" yaml:"smoke"`
	Expect          FixtureExpect              `json:"expect" yaml:"expect"`
}

// FixtureResult is one scripted command or probe answer.
type FixtureResult struct {
	OK     bool   `json:"ok" yaml:"ok"`
	Output string `json:"output" yaml:"output"`
}

// FixtureExpect is checked after the tick. Zero fields are not checked,
// except Action which is always compared.
type FixtureExpect struct {
	Action         string         `json:"action" yaml:"action"`
	Attempts       *int           `json:"attempts" yaml:"attempts"`
	ErrorContains  string         `json:"error_contains" yaml:"error_contains"`
	LogContains    string         `json:"log_contains" yaml:"log_contains"`
	GeneratorCalls *int           `json:"generator_calls" yaml:"generator_calls"`
	Calls          map[string]int `json:"calls" yaml:"calls"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads a JSON or YAML (.yaml/.yml) fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(f.Ticks) == 0 {
		return nil, fmt.Errorf("fixture %s: no ticks", path)
	}
	return &f, nil
}

// ToAgentState converts the seed to the domain state.
func (s FixtureState) ToAgentState() state.AgentState {
	return state.AgentState{
		LastFingerprint: s.LastFingerprint,
		Attempts:        s.Attempts,
		LastAction:      state.Action(s.LastAction),
		LastActionLog:   s.LastActionLog,
	}
}

// #endregion fixture-loader
