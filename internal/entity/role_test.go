package entity_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evep-health/evep/internal/entity"
)

func TestRoleIsValid(t *testing.T) {
	t.Parallel()

	for _, role := range []entity.Role{
		entity.RoleGuest, entity.RoleVendor, entity.RoleStudent, entity.RoleParent,
		entity.RoleTeacher, entity.RoleMedicalStaff, entity.RoleNurse, entity.RoleDoctor,
		entity.RoleMedicalAdmin, entity.RoleAdmin, entity.RoleSuperAdmin,
	} {
		require.True(t, role.IsValid(), role)
	}

	require.False(t, entity.Role("").IsValid())
	require.False(t, entity.Role("hacker").IsValid())
	require.False(t, entity.Role("ADMIN").IsValid())
}

func TestRoleRank_UnknownIsNegative(t *testing.T) {
	t.Parallel()

	require.Equal(t, -1, entity.Role("intruder").Rank())
	require.Equal(t, 0, entity.RoleGuest.Rank())
	require.Equal(t, 10, entity.RoleSuperAdmin.Rank())
	require.Greater(t, entity.RoleDoctor.Rank(), entity.RoleNurse.Rank())
	require.Greater(t, entity.RoleStudent.Rank(), entity.RoleVendor.Rank())
}

func TestHasHierarchicalAccess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		role     entity.Role
		minimum  entity.Role
		expected bool
	}{
		{"Role above minimum", entity.RoleDoctor, entity.RoleNurse, true},
		{"Role equals minimum", entity.RoleNurse, entity.RoleNurse, true},
		{"Role below minimum", entity.RoleTeacher, entity.RoleNurse, false},
		{"Super admin passes everything", entity.RoleSuperAdmin, entity.RoleAdmin, true},
		{"Guest is the floor", entity.RoleGuest, entity.RoleVendor, false},
		{"Unknown role denied", entity.Role("intruder"), entity.RoleGuest, false},
		{"Unknown minimum denied", entity.RoleSuperAdmin, entity.Role("nonexistent"), false},
		{"Both unknown denied", entity.Role(""), entity.Role(""), false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, test.expected, entity.HasHierarchicalAccess(test.role, test.minimum))
		})
	}
}
