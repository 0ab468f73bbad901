package detect

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// #region detector

// Detector scans the managed app's log files for new failures.
type Detector struct {
	config    Config
	predicate Predicate
}

// NewDetector creates a Detector. A nil predicate means KeywordPredicate.
func NewDetector(config Config, predicate Predicate) *Detector {
	if predicate == nil {
		predicate = KeywordPredicate
	}
	return &Detector{config: config, predicate: predicate}
}

// ErrorLogPath returns <logDir>/<app>-error.log.
func (d *Detector) ErrorLogPath() string {
	return filepath.Join(d.config.LogDir, d.config.AppName+"-error.log")
}

// OutLogPath returns <logDir>/<app>-out.log.
func (d *Detector) OutLogPath() string {
	return filepath.Join(d.config.LogDir, d.config.AppName+"-out.log")
}

// Detect returns the current incident, or nil when the logs are empty or
// carry no failure signal. Unreadable files count as empty.
// The predicate sees only the log bodies: the section headers name the
// "-error.log" file and would otherwise match on every tick.
func (d *Detector) Detect() *Incident {
	scan := d.config.ScanLines
	if scan <= 0 {
		scan = 220
	}
	outScan := scan / 3
	if outScan < 40 {
		outScan = 40
	}

	errTail := Tail(d.ErrorLogPath(), scan)
	outTail := Tail(d.OutLogPath(), outScan)
	excerpt := strings.Join([]string{
		SectionHeader(d.config.AppName, "error"),
		errTail,
		"",
		SectionHeader(d.config.AppName, "out"),
		outTail,
	}, "\n")
	return FromExcerpt(excerpt, d.predicate)
}

// FromExcerpt applies trimming, the predicate and fingerprinting to raw text.
// Section header lines are removed before the predicate runs; the fingerprint
// covers the trimmed excerpt as given.
func FromExcerpt(excerpt string, predicate Predicate) *Incident {
	minimal := strings.TrimSpace(excerpt)
	body := Body(minimal)
	if strings.TrimSpace(body) == "" {
		return nil
	}
	if predicate == nil {
		predicate = KeywordPredicate
	}
	if !predicate(body) {
		return nil
	}
	return &Incident{Fingerprint: Fingerprint(minimal), Excerpt: minimal}
}

// SectionHeader is the line that introduces one log tail in an excerpt.
func SectionHeader(app, stream string) string {
	return "# " + app + "-" + stream + ".log (tail)"
}

var sectionHeader = regexp.MustCompile(`(?m)^# \S+-(?:error|out)\.log \(tail\)[ \t]*\r?$`)

// Body strips section header lines, leaving only log content.
func Body(excerpt string) string {
	return sectionHeader.ReplaceAllString(excerpt, "")
}

// #endregion detector

// #region helpers

// Fingerprint is the hex SHA-256 of text.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

var lineSplit = regexp.MustCompile(`\r?\n`)

// Tail returns the last n lines of the file at path, or "" if it cannot be read.
func Tail(path string, n int) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	lines := lineSplit.Split(string(data), -1)
	start := len(lines) - n
	if start < 0 {
		start = 0
	}
	return strings.Join(lines[start:], "\n")
}

// ResolveLogDir picks the pm2 log directory: explicit dir, then $PM2_HOME/logs,
// then $HOME/.pm2/logs, then <cwd>/.pm2/logs.
func ResolveLogDir(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if home := os.Getenv("PM2_HOME"); home != "" {
		return filepath.Join(home, "logs")
	}
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.Getwd()
	}
	return filepath.Join(home, ".pm2", "logs")
}

// #endregion helpers
