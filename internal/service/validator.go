package service

import (
	"regexp"
	"strings"

	"github.com/evep-health/evep/internal/entity"
)

const (
	EmailMaxLen    = 255
	PasswordMinLen = 8
	PasswordMaxLen = 64
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9.+_-]+@[a-zA-Z0-9-]+(\.[a-zA-Z0-9-]+)*\.[a-zA-Z]{2,}$`)

func ValidateEmail(email string) error {
	if email == "" || len(email) > EmailMaxLen {
		return entity.ErrEmailInvalidLen
	}

	if !emailRegexp.MatchString(email) {
		return entity.ErrEmailInvalidFormat
	}

	if strings.Contains(email, "..") {
		return entity.ErrEmailInvalidFormat
	}

	return nil
}

func ValidatePassword(password string) error {
	if len(password) < PasswordMinLen || len(password) > PasswordMaxLen {
		return entity.ErrPasswordInvalidLen
	}

	return nil
}

func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	email = strings.Trim(email, "()[]<>")
	email = strings.ReplaceAll(email, " ", "")
	email = strings.ToLower(email)

	if err := ValidateEmail(email); err != nil {
		return "", err
	}

	return email, nil
}
