package entity

type MenuEntry struct {
	Path        string
	Description string
	Roles       []Role
}

// MenuConfig maps SPA routes to the roles allowed to see them. Order follows
// the navigation drawer.
var MenuConfig = []MenuEntry{
	{
		Path:        "/dashboard",
		Description: "Overview dashboard",
		Roles: []Role{
			RoleStudent, RoleParent, RoleTeacher, RoleMedicalStaff, RoleNurse,
			RoleDoctor, RoleMedicalAdmin, RoleAdmin, RoleSuperAdmin,
		},
	},
	{
		Path:        "/patients",
		Description: "Patient records",
		Roles:       []Role{RoleMedicalStaff, RoleNurse, RoleDoctor, RoleMedicalAdmin, RoleAdmin, RoleSuperAdmin},
	},
	{
		Path:        "/students",
		Description: "Student records",
		Roles:       []Role{RoleTeacher, RoleAdmin, RoleSuperAdmin},
	},
	{
		Path:        "/teachers",
		Description: "Teacher records",
		Roles:       []Role{RoleAdmin, RoleSuperAdmin},
	},
	{
		Path:        "/screenings",
		Description: "Vision screening sessions",
		Roles:       []Role{RoleMedicalStaff, RoleNurse, RoleDoctor, RoleMedicalAdmin, RoleSuperAdmin},
	},
	{
		Path:        "/inventory",
		Description: "Equipment inventory",
		Roles:       []Role{RoleVendor, RoleMedicalStaff, RoleNurse, RoleMedicalAdmin, RoleAdmin, RoleSuperAdmin},
	},
	{
		Path:        "/mobile-units",
		Description: "Mobile unit coordination",
		Roles:       []Role{RoleMedicalAdmin, RoleAdmin, RoleSuperAdmin},
	},
	{
		Path:        "/reports",
		Description: "Screening reports",
		Roles:       []Role{RoleDoctor, RoleMedicalAdmin, RoleAdmin, RoleSuperAdmin},
	},
	{
		Path:        "/users",
		Description: "User administration",
		Roles:       []Role{RoleAdmin, RoleSuperAdmin},
	},
	{
		Path:        "/settings",
		Description: "Platform settings",
		Roles:       []Role{RoleSuperAdmin},
	},
}

// HasMenuAccess reports whether the path exists in the menu table and the
// role is in its allowed set. Unknown paths and roles are denied.
func HasMenuAccess(role Role, path string) bool {
	for _, entry := range MenuConfig {
		if entry.Path == path {
			return containsRole(entry.Roles, role)
		}
	}

	return false
}

// MenuRoles returns the allowed role set of a path, or nil if the path is
// not configured.
func MenuRoles(path string) []Role {
	for _, entry := range MenuConfig {
		if entry.Path == path {
			return entry.Roles
		}
	}

	return nil
}

// MenuForRole returns the menu entries visible to a role, in drawer order.
func MenuForRole(role Role) []MenuEntry {
	var visible []MenuEntry

	for _, entry := range MenuConfig {
		if containsRole(entry.Roles, role) {
			visible = append(visible, entry)
		}
	}

	return visible
}
