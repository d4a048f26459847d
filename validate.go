package authclient

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)
)

const (
	minPasswordLength = 8
	maxPasswordLength = 256
)

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return invalid("email", "is required")
	}
	if !emailPattern.MatchString(email) {
		return invalid("email", "is not a valid address")
	}
	return nil
}

// validateSecret checks a password being presented, not chosen.
func validateSecret(field, value string) error {
	if value == "" {
		return invalid(field, "is required")
	}
	if utf8.RuneCountInString(value) > maxPasswordLength {
		return invalid(field, "is too long")
	}
	return nil
}

// validateNewPassword checks a password being chosen.
func validateNewPassword(field, value string) error {
	if err := validateSecret(field, value); err != nil {
		return err
	}
	if utf8.RuneCountInString(value) < minPasswordLength {
		return invalid(field, "is too short")
	}
	return nil
}

func validateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return invalid("username", "is required")
	}
	if !usernamePattern.MatchString(username) {
		return invalid("username", "must be 3-32 letters, digits, '.', '_' or '-'")
	}
	return nil
}

func validateToken(field, token string) error {
	if strings.TrimSpace(token) == "" {
		return invalid(field, "is required")
	}
	return nil
}

func (r LoginRequest) validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	return validateSecret("password", r.Password)
}

func (r AdminLoginRequest) validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return invalid("username", "is required")
	}
	return validateSecret("password", r.Password)
}

func (r RegisterRequest) validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if err := validateUsername(r.Username); err != nil {
		return err
	}
	if err := validateNewPassword("password", r.Password); err != nil {
		return err
	}
	if !r.PrivacyAccepted {
		return invalid("privacy", "policy must be accepted")
	}
	return nil
}

func (r ResetPasswordRequest) validate() error {
	if err := validateToken("token", r.Token); err != nil {
		return err
	}
	return validateNewPassword("new_password", r.NewPassword)
}

func (r ChangePasswordRequest) validate() error {
	if err := validateSecret("current_password", r.CurrentPassword); err != nil {
		return err
	}
	if err := validateNewPassword("new_password", r.NewPassword); err != nil {
		return err
	}
	if r.CurrentPassword == r.NewPassword {
		return invalid("new_password", "must differ from the current password")
	}
	return nil
}
