package entity

type ScreeningCategory string

const (
	ScreeningCategoryBasic       ScreeningCategory = "basic"
	ScreeningCategoryAdvanced    ScreeningCategory = "advanced"
	ScreeningCategorySpecialized ScreeningCategory = "specialized"
	ScreeningCategoryDiagnostic  ScreeningCategory = "diagnostic"
)

type ScreeningTypeRecord struct {
	Value    string
	Label    string
	Category ScreeningCategory
	Roles    []Role
}

// ScreeningTypes is ordered: the UI groups entries by category in table
// order, so insertion order is part of the contract.
var ScreeningTypes = []ScreeningTypeRecord{
	{
		Value:    "distance_acuity",
		Label:    "Distance Visual Acuity",
		Category: ScreeningCategoryBasic,
		Roles:    []Role{RoleTeacher, RoleMedicalStaff, RoleNurse, RoleDoctor, RoleMedicalAdmin, RoleAdmin, RoleSuperAdmin},
	},
	{
		Value:    "near_acuity",
		Label:    "Near Visual Acuity",
		Category: ScreeningCategoryBasic,
		Roles:    []Role{RoleTeacher, RoleMedicalStaff, RoleNurse, RoleDoctor, RoleMedicalAdmin, RoleAdmin, RoleSuperAdmin},
	},
	{
		Value:    "color_vision",
		Label:    "Color Vision",
		Category: ScreeningCategoryBasic,
		Roles:    []Role{RoleMedicalStaff, RoleNurse, RoleDoctor, RoleMedicalAdmin, RoleAdmin, RoleSuperAdmin},
	},
	{
		Value:    "depth_perception",
		Label:    "Depth Perception",
		Category: ScreeningCategoryAdvanced,
		Roles:    []Role{RoleNurse, RoleDoctor, RoleMedicalAdmin, RoleSuperAdmin},
	},
	{
		Value:    "contrast_sensitivity",
		Label:    "Contrast Sensitivity",
		Category: ScreeningCategoryAdvanced,
		Roles:    []Role{RoleNurse, RoleDoctor, RoleMedicalAdmin, RoleSuperAdmin},
	},
	{
		Value:    "autorefraction",
		Label:    "Autorefraction",
		Category: ScreeningCategorySpecialized,
		Roles:    []Role{RoleNurse, RoleDoctor, RoleMedicalAdmin, RoleSuperAdmin},
	},
	{
		Value:    "refraction",
		Label:    "Subjective Refraction",
		Category: ScreeningCategorySpecialized,
		Roles:    []Role{RoleDoctor, RoleMedicalAdmin, RoleSuperAdmin},
	},
	{
		Value:    "slit_lamp",
		Label:    "Slit Lamp Examination",
		Category: ScreeningCategoryDiagnostic,
		Roles:    []Role{RoleDoctor, RoleMedicalAdmin, RoleAdmin, RoleSuperAdmin},
	},
	{
		Value:    "fundus_imaging",
		Label:    "Fundus Imaging",
		Category: ScreeningCategoryDiagnostic,
		Roles:    []Role{RoleDoctor, RoleMedicalAdmin, RoleAdmin, RoleSuperAdmin},
	},
}

// AvailableScreeningTypes filters the table by role membership, preserving
// table order.
func AvailableScreeningTypes(role Role) []ScreeningTypeRecord {
	var available []ScreeningTypeRecord

	for _, st := range ScreeningTypes {
		if containsRole(st.Roles, role) {
			available = append(available, st)
		}
	}

	return available
}

// CanAccessScreeningType reports whether the role may run the screening type
// with the given value. Unknown values are denied.
func CanAccessScreeningType(role Role, value string) bool {
	for _, st := range ScreeningTypes {
		if st.Value == value {
			return containsRole(st.Roles, role)
		}
	}

	return false
}
