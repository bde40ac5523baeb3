package gate

import (
	"fmt"
	"strings"
)

// Policy selects how logged-out navigations to exempt paths are treated.
type Policy int

const (
	// PolicyLiteral redirects every logged-out navigation, exempt paths
	// included.
	PolicyLiteral Policy = iota
	// PolicyExemptLogin allows logged-out navigations to exempt paths.
	PolicyExemptLogin
)

func (p Policy) String() string {
	switch p {
	case PolicyLiteral:
		return "literal"
	case PolicyExemptLogin:
		return "exempt-login"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy maps a configuration value to a Policy. The empty string
// selects PolicyLiteral.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "literal":
		return PolicyLiteral, nil
	case "exempt-login", "exempt_login", "exempt":
		return PolicyExemptLogin, nil
	default:
		return PolicyLiteral, fmt.Errorf("unknown gate policy %q", s)
	}
}
