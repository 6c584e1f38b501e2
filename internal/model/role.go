package model

import "fmt"

// Role is the semantic meaning of a price column.
type Role string

const (
	RoleOpen          Role = "open"
	RoleHigh          Role = "high"
	RoleLow           Role = "low"
	RoleClose         Role = "close"
	RoleAdjustedClose Role = "adjusted_close"
	RoleVolume        Role = "volume"
)

// Roles lists every role in persisted column order.
var Roles = []Role{RoleOpen, RoleHigh, RoleLow, RoleClose, RoleAdjustedClose, RoleVolume}

// ParseRole maps a role name to its Role.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("role %q: %w", s, ErrInvalidParameter)
}
