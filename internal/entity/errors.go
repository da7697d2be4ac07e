package entity

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserBlocked       = errors.New("user is blocked")
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrTooManyRequests   = errors.New("too many requests")
)

var (
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrTokenNotFound      = errors.New("token not found")
	ErrInvalidSessionHash = errors.New("invalid session hash")
	ErrSessionExpired     = errors.New("session expired")
)

var (
	ErrEmailInvalidLen    = errors.New("email length exceeds 255 characters")
	ErrEmailInvalidFormat = errors.New("incorrect email format")
	ErrPasswordInvalidLen = errors.New("password must be from 8 to 64 symbols")
)
