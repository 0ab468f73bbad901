package policy

// #region veto-type
// VetoType enumerates why a path blocked a patch.
type VetoType string

const (
	VetoDenied       VetoType = "denied"
	VetoOutsideAllow VetoType = "outside_allow_list"
)

// #endregion veto-type

// #region veto
// Veto is one path that failed the policy.
type Veto struct {
	Type   VetoType
	Path   string
	Rule   string // the deny entry that matched; empty for allow-list misses
	Reason string
}

// #endregion veto

// #region decision
// Decision is the output of a policy evaluation.
type Decision struct {
	Allowed bool
	Paths   []string // every path extracted from the diff headers
	Vetoes  []Veto
	Reason  string
}

// #endregion decision
