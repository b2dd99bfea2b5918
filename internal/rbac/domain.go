package rbac

import (
	"context"
	"strings"
)

// Role is the coarse authorization class attached to every bearer token.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleStaff    Role = "STAFF"
	RoleAdmin    Role = "ADMIN"
	// RoleSystem is used by automated callers such as the payment gateway webhook.
	RoleSystem Role = "SYSTEM"
)

// ParseRole normalises a role claim. Unknown values yield false.
func ParseRole(raw string) (Role, bool) {
	switch role := Role(strings.ToUpper(strings.TrimSpace(raw))); role {
	case RoleCustomer, RoleStaff, RoleAdmin, RoleSystem:
		return role, true
	default:
		return "", false
	}
}

// Principal describes the authenticated actor.
type Principal struct {
	UserID int64 `json:"user_id"`
	Role   Role  `json:"role"`
}

// Is reports whether the principal holds one of roles.
func (p Principal) Is(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// IsStaff is true for shop staff and administrators.
func (p Principal) IsStaff() bool {
	return p.Is(RoleStaff, RoleAdmin)
}

// Owns reports whether the principal is the customer referenced by customerID.
func (p Principal) Owns(customerID *int64) bool {
	return p.Role == RoleCustomer && customerID != nil && *customerID == p.UserID
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in ctx.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the authenticated principal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
