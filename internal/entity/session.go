package entity

// Session is the persisted authentication state of one client process.
// Invariant: AccessToken and User are both present or both absent, so a
// session is never half logged in.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	SessionHash  string `json:"session_hash,omitempty"`
	User         *User  `json:"user,omitempty"`
}

func (s Session) Valid() bool {
	return s.AccessToken != "" && s.User != nil
}

// Role is the session's role tag, or empty when logged out. Callers that
// feed this into the access tables rely on empty resolving to no access.
func (s Session) Role() Role {
	if s.User == nil {
		return ""
	}

	return s.User.Role
}
