package auth

import (
	"context"
	"slices"
	"time"

	"changemgmt/models"
)

// Policy is a named authorization rule attached to a route.
type Policy int

const (
	AdminOnly Policy = iota + 1
	EmployeeOnly
	AdminOrEmployee
)

func (p Policy) String() string {
	switch p {
	case AdminOnly:
		return "AdminOnly"
	case EmployeeOnly:
		return "EmployeeOnly"
	case AdminOrEmployee:
		return "AdminOrEmployee"
	}
	return "Unknown"
}

// Allows reports whether a principal holding role satisfies the policy.
func (p Policy) Allows(role models.Role) bool {
	switch p {
	case AdminOnly:
		return role == models.RoleAdmin
	case EmployeeOnly:
		return role == models.RoleEmployee
	case AdminOrEmployee:
		return role == models.RoleAdmin || role == models.RoleEmployee
	}
	return false
}

// Principal is the authenticated caller.
type Principal struct {
	Username  string
	Roles     []models.Role
	TokenID   string
	ExpiresAt time.Time
}

func (p *Principal) HasRole(role models.Role) bool {
	return p != nil && slices.Contains(p.Roles, role)
}

func (p *Principal) IsAdmin() bool {
	return p.HasRole(models.RoleAdmin)
}

// Satisfies reports whether any of the principal's roles satisfies policy.
func (p *Principal) Satisfies(policy Policy) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if policy.Allows(r) {
			return true
		}
	}
	return false
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by the Authenticate middleware.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
