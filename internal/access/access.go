// Package access decides whether an authenticated identity may perform a
// gated operation.
package access

import (
	"context"
	"fmt"

	"pharmacy/m/domain"
)

// RoleResolver looks up the current role of an identity.
type RoleResolver interface {
	RoleOf(ctx context.Context, id int64) (domain.Role, error)
}

type Gate struct {
	roles RoleResolver
}

func NewGate(roles RoleResolver) *Gate {
	return &Gate{roles: roles}
}

// Resolve returns the role identity holds right now. An identity whose user
// has been deleted fails with domain.ErrNotFound.
func (g *Gate) Resolve(ctx context.Context, identity int64) (domain.Role, error) {
	if identity <= 0 {
		return "", fmt.Errorf("identity %d: %w", identity, domain.ErrNotFound)
	}
	return g.roles.RoleOf(ctx, identity)
}

// Permits returns nil when role is one of allowed and ErrForbidden otherwise.
func Permits(role domain.Role, allowed ...domain.Role) error {
	for _, r := range allowed {
		if role == r {
			return nil
		}
	}
	return fmt.Errorf("role %q: %w", role, domain.ErrForbidden)
}
