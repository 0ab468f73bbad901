package detect

import "regexp"

// #region incident

// Incident is one detected failure: the log excerpt and its content hash.
type Incident struct {
	Fingerprint string
	Excerpt     string
}

// #endregion incident

// #region predicate

// Predicate decides whether an excerpt describes a failure.
type Predicate func(text string) bool

// DefaultKeywords are the error-class signals matched by KeywordPredicate.
var DefaultKeywords = []string{
	"error", "exception", "unhandled", "stack", "500", "EACCES", "ECONNREFUSED",
	"ETIMEDOUT", "Sequelize", "Drizzle", "Postgres", "neon", "TypeError", "ReferenceError",
}

var defaultPattern = compileKeywords(DefaultKeywords)

// KeywordPredicate matches DefaultKeywords case-insensitively on word boundaries.
func KeywordPredicate(text string) bool {
	return defaultPattern.MatchString(text)
}

// KeywordsPredicate builds a predicate over a custom keyword list. An empty
// list falls back to DefaultKeywords.
func KeywordsPredicate(keywords []string) Predicate {
	if len(keywords) == 0 {
		return KeywordPredicate
	}
	re := compileKeywords(keywords)
	return re.MatchString
}

func compileKeywords(keywords []string) *regexp.Regexp {
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(k))
	}
	expr := `(?i)\b(`
	for i, q := range quoted {
		if i > 0 {
			expr += "|"
		}
		expr += q
	}
	expr += `)\b`
	return regexp.MustCompile(expr)
}

// #endregion predicate

// #region config

// Config holds detector inputs.
type Config struct {
	LogDir    string
	AppName   string
	ScanLines int // error-log tail; the out-log tail is max(40, ScanLines/3)
}

// #endregion config
