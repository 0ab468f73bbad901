package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ENABLE_AGENT_ZERO", "AUTOPILOT_DRY_RUN", "AUTOPILOT_INTERVAL_SECONDS"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// #region defaults

func TestDefault_MatchesAgentDefaults(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.Enabled)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, ModeAutopilot, cfg.Mode)
	assert.Equal(t, 60*time.Second, cfg.Interval())
	assert.Equal(t, 220, cfg.Autopilot.LogScanLines)
	assert.Equal(t, 2, cfg.Autopilot.MaxFixAttemptsPerIncident)
	assert.Equal(t, 5*time.Second, cfg.SmokeTimeout())
	assert.Equal(t, "/health", cfg.Autopilot.Smoke.Path)
	assert.Equal(t, 256*1024, cfg.Patch.MaxPatchBytes)
	assert.True(t, cfg.Patch.RequireGitClean)
	assert.True(t, cfg.Autopilot.Checks.RunBuild)
	assert.False(t, cfg.Autopilot.Checks.RunTests)
	assert.Equal(t, 5000, cfg.Ports.Main)
	assert.Equal(t, 5010, cfg.Ports.Canary)
	assert.Contains(t, cfg.Autopilot.DenyPaths, ".agent/")
	assert.NoError(t, cfg.Validate())
}

// #endregion defaults

// #region load

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_JSONCOverlaysDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{
		// operator overrides
		"enabled": true,
		"dryRun": false,
		"autopilot": {
			"maxFixAttemptsPerIncident": 3,
			"checks": { "runTests": true, },
		},
		"ports": { "canary": 6010 },
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, 3, cfg.Autopilot.MaxFixAttemptsPerIncident)
	assert.True(t, cfg.Autopilot.Checks.RunTests)
	assert.True(t, cfg.Autopilot.Checks.RunBuild, "untouched nested fields keep defaults")
	assert.Equal(t, 220, cfg.Autopilot.LogScanLines)
	assert.Equal(t, 6010, cfg.Ports.Canary)
	assert.Equal(t, 5000, cfg.Ports.Main)
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "agent.yaml", `
mode: watch
pm2:
  appName: api
  canaryName: api-canary
autopilot:
  allowPaths: [server/]
  smoke:
    kind: grpc
    grpcService: api.v1.Health
watch:
  paths: [server]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ModeWatch, cfg.Mode)
	assert.Equal(t, "api", cfg.PM2.AppName)
	assert.Equal(t, []string{"server/"}, cfg.Autopilot.AllowPaths)
	assert.Equal(t, "grpc", cfg.Autopilot.Smoke.Kind)
	assert.Equal(t, 5000, cfg.Autopilot.Smoke.TimeoutMs)
	assert.Equal(t, []string{"server"}, cfg.Watch.Paths)
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeFile(t, "config.json", `{"enabled": `))
	assert.Error(t, err)
}

func TestLoad_ValidationFails(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeFile(t, "config.json", `{"autopilot": {"maxFixAttemptsPerIncident": 0}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxFixAttemptsPerIncident")

	_, err = Load(writeFile(t, "config.json", `{"ports": {"main": 5000, "canary": 5000}}`))
	assert.Error(t, err, "canary port must differ from main")

	_, err = Load(writeFile(t, "config.json", `{"mode": "daemon"}`))
	assert.Error(t, err)
}

// #endregion load

// #region env

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"ENABLE_AGENT_ZERO":          "yes",
		"AUTOPILOT_DRY_RUN":          "false",
		"AUTOPILOT_INTERVAL_SECONDS": "15",
	}
	cfg := Default()
	ApplyEnv(&cfg, func(k string) string { return env[k] })
	assert.True(t, cfg.Enabled)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, 15*time.Second, cfg.Interval())
}

func TestApplyEnv_IgnoresGarbage(t *testing.T) {
	env := map[string]string{
		"ENABLE_AGENT_ZERO":          "nah",
		"AUTOPILOT_DRY_RUN":          "maybe",
		"AUTOPILOT_INTERVAL_SECONDS": "-4",
	}
	cfg := Default()
	ApplyEnv(&cfg, func(k string) string { return env[k] })
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvEnablesDisabledFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENABLE_AGENT_ZERO", "TRUE")
	cfg, err := Load(writeFile(t, "config.json", `{"enabled": false}`))
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))

	t.Setenv("AUTOPILOT_TEST_PRESET", "kept")
	path := writeFile(t, ".env", "AUTOPILOT_TEST_FRESH=loaded\nAUTOPILOT_TEST_PRESET=overwritten\n")
	t.Cleanup(func() { os.Unsetenv("AUTOPILOT_TEST_FRESH") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("AUTOPILOT_TEST_FRESH"))
	assert.Equal(t, "kept", os.Getenv("AUTOPILOT_TEST_PRESET"))
}

func TestMetricsAddrValidation(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Addr = ":9464"
	assert.NoError(t, cfg.Validate())
	cfg.Metrics.Addr = "not an address"
	assert.Error(t, cfg.Validate())
}

// #endregion env
