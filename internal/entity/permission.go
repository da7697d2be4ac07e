package entity

const (
	PermissionViewPatients     = "view_patients"
	PermissionManagePatients   = "manage_patients"
	PermissionViewStudents     = "view_students"
	PermissionManageStudents   = "manage_students"
	PermissionViewTeachers     = "view_teachers"
	PermissionManageTeachers   = "manage_teachers"
	PermissionRunScreenings    = "run_screenings"
	PermissionReviewScreenings = "review_screenings"
	PermissionViewInventory    = "view_inventory"
	PermissionManageInventory  = "manage_inventory"
	PermissionManageMobileUnit = "manage_mobile_unit"
	PermissionViewReports      = "view_reports"
	PermissionManageUsers      = "manage_users"
	PermissionManageRoles      = "manage_roles"
	PermissionViewOwnResults   = "view_own_results"
)

// PermissionRecord describes one permission id. The table is compiled into
// the binary and never mutated at runtime.
type PermissionRecord struct {
	ID          string
	Category    string
	Resource    string
	Action      string
	Description string
}

var Permissions = []PermissionRecord{
	{PermissionViewPatients, "medical", "patients", "view", "View patient records"},
	{PermissionManagePatients, "medical", "patients", "manage", "Create and edit patient records"},
	{PermissionViewStudents, "school", "students", "view", "View student records"},
	{PermissionManageStudents, "school", "students", "manage", "Create and edit student records"},
	{PermissionViewTeachers, "school", "teachers", "view", "View teacher records"},
	{PermissionManageTeachers, "school", "teachers", "manage", "Create and edit teacher records"},
	{PermissionRunScreenings, "screening", "screenings", "run", "Perform vision screenings"},
	{PermissionReviewScreenings, "screening", "screenings", "review", "Review and sign off screening results"},
	{PermissionViewInventory, "inventory", "inventory", "view", "View equipment inventory"},
	{PermissionManageInventory, "inventory", "inventory", "manage", "Manage equipment inventory"},
	{PermissionManageMobileUnit, "operations", "mobile_units", "manage", "Coordinate mobile screening units"},
	{PermissionViewReports, "reporting", "reports", "view", "View screening reports"},
	{PermissionManageUsers, "administration", "users", "manage", "Manage platform users"},
	{PermissionManageRoles, "administration", "roles", "manage", "Manage role assignments"},
	{PermissionViewOwnResults, "personal", "results", "view", "View own screening results"},
}

// PermissionsByRole returns the static permission set of a role. Unknown
// roles get nothing (fail-closed).
func PermissionsByRole(role Role) []string {
	rolePermissions := map[Role][]string{
		RoleStudent: {
			PermissionViewOwnResults,
		},
		RoleParent: {
			PermissionViewOwnResults,
		},
		RoleVendor: {
			PermissionViewInventory,
		},
		RoleTeacher: {
			PermissionViewStudents,
			PermissionViewOwnResults,
		},
		RoleMedicalStaff: {
			PermissionViewPatients,
			PermissionRunScreenings,
			PermissionViewInventory,
		},
		RoleNurse: {
			PermissionViewPatients,
			PermissionManagePatients,
			PermissionRunScreenings,
			PermissionViewInventory,
		},
		RoleDoctor: {
			PermissionViewPatients,
			PermissionManagePatients,
			PermissionRunScreenings,
			PermissionReviewScreenings,
			PermissionViewReports,
		},
		RoleMedicalAdmin: {
			PermissionViewPatients,
			PermissionManagePatients,
			PermissionRunScreenings,
			PermissionReviewScreenings,
			PermissionViewInventory,
			PermissionManageInventory,
			PermissionManageMobileUnit,
			PermissionViewReports,
		},
		RoleAdmin: {
			PermissionViewPatients,
			PermissionManagePatients,
			PermissionViewStudents,
			PermissionManageStudents,
			PermissionViewTeachers,
			PermissionManageTeachers,
			PermissionViewInventory,
			PermissionManageInventory,
			PermissionManageMobileUnit,
			PermissionViewReports,
			PermissionManageUsers,
		},
		RoleSuperAdmin: {
			PermissionViewPatients,
			PermissionManagePatients,
			PermissionViewStudents,
			PermissionManageStudents,
			PermissionViewTeachers,
			PermissionManageTeachers,
			PermissionRunScreenings,
			PermissionReviewScreenings,
			PermissionViewInventory,
			PermissionManageInventory,
			PermissionManageMobileUnit,
			PermissionViewReports,
			PermissionManageUsers,
			PermissionManageRoles,
		},
	}

	permissions, exists := rolePermissions[role]
	if !exists {
		return nil
	}

	return permissions
}

func HasPermission(role Role, permission string) bool {
	for _, p := range PermissionsByRole(role) {
		if p == permission {
			return true
		}
	}

	return false
}
