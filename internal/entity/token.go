package entity

import "time"

type UserTokens struct {
	AccessToken     string        `json:"access_token"`
	RefreshToken    string        `json:"refresh_token"`
	SessionHash     string        `json:"session_hash,omitempty"`
	RefreshTokenTTL time.Duration `json:"-"`
}
