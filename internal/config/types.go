package config

// #region types

// Mode selects what the agent does when started.
type Mode string

const (
	ModeAutopilot Mode = "autopilot"
	ModeWatch     Mode = "watch"
)

// Config is the agent configuration. Field names follow .agent/config.json.
type Config struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	DryRun  bool `json:"dryRun" yaml:"dryRun"`
	Mode    Mode `json:"mode" yaml:"mode" validate:"oneof=autopilot watch"`

	LogDir       string `json:"logDir,omitempty" yaml:"logDir,omitempty"`
	CacheDir     string `json:"cacheDir" yaml:"cacheDir" validate:"required"`
	StateBackend string `json:"stateBackend" yaml:"stateBackend" validate:"oneof=sqlite file"`
	StateDB      string `json:"stateDb" yaml:"stateDb"`

	PM2           PM2Config           `json:"pm2" yaml:"pm2"`
	Ports         PortsConfig         `json:"ports" yaml:"ports"`
	Canary        CanaryConfig        `json:"canary" yaml:"canary"`
	Autopilot     AutopilotConfig     `json:"autopilot" yaml:"autopilot"`
	Watch         WatchConfig         `json:"watch" yaml:"watch"`
	Patch         PatchConfig         `json:"patch" yaml:"patch"`
	Notifications NotificationsConfig `json:"notifications" yaml:"notifications"`
	Metrics       MetricsConfig       `json:"metrics" yaml:"metrics"`
}

// PM2Config names the primary and canary processes.
type PM2Config struct {
	AppName    string `json:"appName" yaml:"appName" validate:"required"`
	CanaryName string `json:"canaryName" yaml:"canaryName" validate:"required,nefield=AppName"`
}

// PortsConfig holds the listen ports of the primary and canary.
type PortsConfig struct {
	Main   int `json:"main" yaml:"main" validate:"min=1,max=65535"`
	Canary int `json:"canary" yaml:"canary" validate:"min=1,max=65534,nefield=Main"`
}

// CanaryConfig controls how the canary is launched and cleaned up.
type CanaryConfig struct {
	Entrypoint             string `json:"entrypoint" yaml:"entrypoint" validate:"required"`
	TeardownAfterPromotion bool   `json:"teardownAfterPromotion" yaml:"teardownAfterPromotion"`
}

// AutopilotConfig drives the remediation loop.
type AutopilotConfig struct {
	IntervalSeconds             int          `json:"intervalSeconds" yaml:"intervalSeconds" validate:"min=1"`
	LogScanLines                int          `json:"logScanLines" yaml:"logScanLines" validate:"min=1"`
	MaxFixAttemptsPerIncident   int          `json:"maxFixAttemptsPerIncident" yaml:"maxFixAttemptsPerIncident" validate:"min=1,max=20"`
	AllowPaths                  []string     `json:"allowPaths" yaml:"allowPaths"`
	DenyPaths                   []string     `json:"denyPaths" yaml:"denyPaths"`
	Keywords                    []string     `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	RetryAfterGenerationFailure bool         `json:"retryAfterGenerationFailure" yaml:"retryAfterGenerationFailure"`
	Checks                      ChecksConfig `json:"checks" yaml:"checks"`
	Smoke                       SmokeConfig  `json:"smoke" yaml:"smoke"`
}

// ChecksConfig selects the build and test gates and their commands.
type ChecksConfig struct {
	RunBuild     bool     `json:"runBuild" yaml:"runBuild"`
	RunTests     bool     `json:"runTests" yaml:"runTests"`
	BuildCommand []string `json:"buildCommand" yaml:"buildCommand" validate:"required,min=1"`
	TestCommand  []string `json:"testCommand" yaml:"testCommand" validate:"required,min=1"`
}

// SmokeConfig describes the canary health probe.
type SmokeConfig struct {
	Kind        string `json:"kind" yaml:"kind" validate:"oneof=http grpc"`
	Path        string `json:"path" yaml:"path"`
	TimeoutMs   int    `json:"timeoutMs" yaml:"timeoutMs" validate:"min=1"`
	GRPCService string `json:"grpcService,omitempty" yaml:"grpcService,omitempty"`
}

// WatchConfig lists the trees reported in watch mode.
type WatchConfig struct {
	Paths  []string `json:"paths" yaml:"paths"`
	Ignore []string `json:"ignore" yaml:"ignore"`
}

// PatchConfig guards how patches are applied.
type PatchConfig struct {
	RequireGitClean bool `json:"requireGitClean" yaml:"requireGitClean"`
	MaxPatchBytes   int  `json:"maxPatchBytes" yaml:"maxPatchBytes" validate:"min=1"`
}

// NotificationsConfig is carried for compatibility; only the log sink is implemented.
type NotificationsConfig struct {
	Telegram bool `json:"telegram" yaml:"telegram"`
	Slack    bool `json:"slack" yaml:"slack"`
}

// MetricsConfig enables the Prometheus listener when Addr is set.
type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty" validate:"omitempty,hostname_port"`
}

// #endregion types
