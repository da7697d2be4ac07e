// Package guard decides whether a session may reach a guarded target. The
// decision is a pure function of session state and the requirement, so it is
// shared between HTTP middleware and tests without any router involved.
package guard

import (
	"net/url"

	"github.com/evep-health/evep/internal/entity"
)

const LoginPath = "/login"

type State string

const (
	StateChecking              State = "checking"
	StateGranted               State = "granted"
	StateDeniedUnauthenticated State = "denied_unauthenticated"
	StateDeniedRole            State = "denied_role"
	StateDeniedPermission      State = "denied_permission"
)

// Requirement describes the constraints a guarded target imposes. Zero
// fields mean the constraint is absent; an authenticated session alone is
// then enough.
type Requirement struct {
	// MenuPath gates on the static menu table.
	MenuPath string
	// Roles gates on explicit membership.
	Roles []entity.Role
	// MinimumRole gates on the privilege hierarchy.
	MinimumRole entity.Role
	// Permission gates on the user's effective permission set.
	Permission string
}

// Decision names the outcome and, on denial, enough detail for support
// diagnosis: the required roles and the actual one are reported, never
// silently swallowed.
type Decision struct {
	State              State         `json:"state"`
	RequiredRoles      []entity.Role `json:"required_roles,omitempty"`
	RequiredPermission string        `json:"required_permission,omitempty"`
	ActualRole         entity.Role   `json:"actual_role,omitempty"`
	// RedirectTo is set for denied_unauthenticated and preserves the
	// original target so login can return the user there.
	RedirectTo string `json:"redirect_to,omitempty"`
}

func (d Decision) Granted() bool {
	return d.State == StateGranted
}

// Evaluate recomputes the decision from current state; it holds no memory,
// so callers re-evaluate on every session change.
func Evaluate(sess entity.Session, loading bool, target string, req Requirement) Decision {
	if loading {
		return Decision{State: StateChecking}
	}

	if !sess.Valid() {
		return Decision{
			State:      StateDeniedUnauthenticated,
			RedirectTo: loginRedirect(target),
		}
	}

	role := sess.Role()

	if len(req.Roles) > 0 && !roleIn(req.Roles, role) {
		return Decision{
			State:         StateDeniedRole,
			RequiredRoles: req.Roles,
			ActualRole:    role,
		}
	}

	if req.MenuPath != "" && !entity.HasMenuAccess(role, req.MenuPath) {
		return Decision{
			State:         StateDeniedRole,
			RequiredRoles: entity.MenuRoles(req.MenuPath),
			ActualRole:    role,
		}
	}

	if req.MinimumRole != "" && !entity.HasHierarchicalAccess(role, req.MinimumRole) {
		return Decision{
			State:         StateDeniedRole,
			RequiredRoles: []entity.Role{req.MinimumRole},
			ActualRole:    role,
		}
	}

	if req.Permission != "" && !hasPermission(sess.User, req.Permission) {
		return Decision{
			State:              StateDeniedPermission,
			RequiredPermission: req.Permission,
			ActualRole:         role,
		}
	}

	return Decision{State: StateGranted, ActualRole: role}
}

func loginRedirect(target string) string {
	if target == "" {
		return LoginPath
	}

	return LoginPath + "?next=" + url.QueryEscape(target)
}

func roleIn(roles []entity.Role, role entity.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}

	return false
}

func hasPermission(user *entity.User, permission string) bool {
	if user == nil {
		return false
	}

	for _, p := range user.EffectivePermissions() {
		if p == permission {
			return true
		}
	}

	return false
}
