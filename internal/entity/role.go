package entity

// Role is a closed enumeration of EVEP role tags. Every table in this
// package is keyed on it; an unknown tag resolves to no access everywhere.
type Role string

const (
	RoleGuest        Role = "guest"
	RoleVendor       Role = "vendor"
	RoleStudent      Role = "student"
	RoleParent       Role = "parent"
	RoleTeacher      Role = "teacher"
	RoleMedicalStaff Role = "medical_staff"
	RoleNurse        Role = "nurse"
	RoleDoctor       Role = "doctor"
	RoleMedicalAdmin Role = "medical_admin"
	RoleAdmin        Role = "admin"
	RoleSuperAdmin   Role = "super_admin"
)

// roleRanks is the total privilege order used by HasHierarchicalAccess.
// vendor sits at the lowest authenticated tier.
var roleRanks = map[Role]int{
	RoleGuest:        0,
	RoleVendor:       1,
	RoleStudent:      2,
	RoleParent:       3,
	RoleTeacher:      4,
	RoleMedicalStaff: 5,
	RoleNurse:        6,
	RoleDoctor:       7,
	RoleMedicalAdmin: 8,
	RoleAdmin:        9,
	RoleSuperAdmin:   10,
}

func (r Role) IsValid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Rank returns the privilege rank of the role, or -1 for an unknown tag.
func (r Role) Rank() int {
	rank, ok := roleRanks[r]
	if !ok {
		return -1
	}

	return rank
}

// HasHierarchicalAccess reports whether role's privilege rank is at least
// minimum's. Unknown roles on either side are denied.
func HasHierarchicalAccess(role, minimum Role) bool {
	roleRank := role.Rank()
	minRank := minimum.Rank()

	if roleRank < 0 || minRank < 0 {
		return false
	}

	return roleRank >= minRank
}

func containsRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}

	return false
}
