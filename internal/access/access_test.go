package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"pharmacy/m/domain"
)

type fakeRoles map[int64]domain.Role

func (f fakeRoles) RoleOf(_ context.Context, id int64) (domain.Role, error) {
	if id == 99 {
		return "", domain.ErrDatabaseUnavailable
	}
	role, ok := f[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return role, nil
}

func TestGateResolve(t *testing.T) {
	gate := NewGate(fakeRoles{1: domain.RoleAdmin, 3: domain.RoleStaff})
	ctx := context.Background()

	role, err := gate.Resolve(ctx, 3)
	assert.NoError(t, err)
	assert.Equal(t, domain.RoleStaff, role)

	_, err = gate.Resolve(ctx, 9)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = gate.Resolve(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = gate.Resolve(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrDatabaseUnavailable)
}

func TestPermits(t *testing.T) {
	tests := []struct {
		name    string
		role    domain.Role
		allowed []domain.Role
		ok      bool
	}{
		{"admin on admin route", domain.RoleAdmin, []domain.Role{domain.RoleAdmin}, true},
		{"pharmacy admin listing users", domain.RolePharmacyAdmin, []domain.Role{domain.RoleAdmin, domain.RolePharmacyAdmin}, true},
		{"pharmacy admin on admin route", domain.RolePharmacyAdmin, []domain.Role{domain.RoleAdmin}, false},
		{"staff on admin route", domain.RoleStaff, []domain.Role{domain.RoleAdmin}, false},
		{"empty allow list", domain.RoleAdmin, nil, false},
		{"unknown role", domain.Role("owner"), []domain.Role{domain.RoleAdmin, domain.RoleStaff}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Permits(tt.role, tt.allowed...)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrForbidden)
		})
	}
}
