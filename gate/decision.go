package gate

import "fmt"

// Intent is a pending navigation.
type Intent struct {
	TargetPath string
}

// Outcome tags a Decision.
type Outcome uint8

const (
	OutcomeAllow Outcome = iota + 1
	OutcomeRedirect
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the result of checking an Intent. Location is set only for
// OutcomeRedirect.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Allow lets the navigation proceed.
func Allow() Decision {
	return Decision{Outcome: OutcomeAllow}
}

// RedirectTo replaces the navigation with one to path.
func RedirectTo(path string) Decision {
	return Decision{Outcome: OutcomeRedirect, Location: path}
}

// Allowed reports whether the navigation may proceed.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}

// IsRedirect reports whether the navigation must be replaced.
func (d Decision) IsRedirect() bool {
	return d.Outcome == OutcomeRedirect
}

func (d Decision) String() string {
	if d.IsRedirect() {
		return fmt.Sprintf("redirect(%s)", d.Location)
	}
	return d.Outcome.String()
}
