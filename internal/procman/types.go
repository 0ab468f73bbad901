package procman

// #region types

// Config names the PM2 processes and the canary launch parameters.
type Config struct {
	AppName    string
	CanaryName string
	MainPort   int
	CanaryPort int
	Entrypoint string // script started when the canary does not exist yet
}

// DefaultEntrypoint is the compiled server started for a fresh canary.
const DefaultEntrypoint = "dist/index.js"

// Process is the subset of a `pm2 jlist` entry the deployer reads.
type Process struct {
	Name   string     `json:"name"`
	PMID   int        `json:"pm_id"`
	PM2Env *processEnv `json:"pm2_env,omitempty"`
}

type processEnv struct {
	Status string `json:"status"`
}

// Status returns the PM2 status ("online", "stopped", ...) or "" when unknown.
func (p Process) Status() string {
	if p.PM2Env == nil {
		return ""
	}
	return p.PM2Env.Status
}

// #endregion types
