package entity

import (
	"github.com/gofrs/uuid/v5"
	jwt "github.com/golang-jwt/jwt/v5"
)

// User is an immutable snapshot delivered by login/refresh. It is never
// mutated field by field on the client side.
type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Role           Role       `json:"role"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	Permissions    []string   `json:"permissions,omitempty"`
}

// EffectivePermissions is the explicit permission set when present,
// otherwise the role's static defaults.
func (u User) EffectivePermissions() []string {
	if len(u.Permissions) > 0 {
		return u.Permissions
	}

	return PermissionsByRole(u.Role)
}

type UserJwtInfo struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

type UserJwtClaims struct {
	User UserJwtInfo
	jwt.RegisteredClaims
}
