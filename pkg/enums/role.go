package enums

import (
	"fmt"
	"strings"
)

// Role is the platform-wide role carried on access tokens.
type Role string

const (
	RoleStudent   Role = "student"
	RoleInnovator Role = "innovator"
	RoleInvestor  Role = "investor"
	RoleAdmin     Role = "admin"
)

var validRoles = []Role{
	RoleStudent,
	RoleInnovator,
	RoleInvestor,
	RoleAdmin,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole accepts any casing so upstream tokens issued as STUDENT still parse.
func ParseRole(value string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
