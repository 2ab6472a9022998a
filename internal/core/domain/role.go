package domain

import "fmt"

// Role is one of the closed set of application roles.
type Role string

const (
	RoleClient     Role = "client"
	RoleTechnicien Role = "technicien"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
)

var roleRanks = map[Role]int{
	RoleClient:     1,
	RoleTechnicien: 2,
	RoleManager:    3,
	RoleAdmin:      4,
}

// ParseRole returns the Role named by s or an error for values outside the
// hierarchy.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is part of the hierarchy.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Rank returns the ordinal of r and false when r is unknown.
func (r Role) Rank() (int, bool) {
	rank, ok := roleRanks[r]
	return rank, ok
}

// Satisfies reports whether r is at least as privileged as required.
// An unknown role on either side never satisfies.
func (r Role) Satisfies(required Role) bool {
	have, ok := r.Rank()
	if !ok {
		return false
	}
	want, ok := required.Rank()
	if !ok {
		return false
	}
	return have >= want
}
