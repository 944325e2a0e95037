package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// AuthValidator validates signup and login payloads
type AuthValidator struct{}

// NewAuthValidator creates a new AuthValidator
func NewAuthValidator() *AuthValidator {
	return &AuthValidator{}
}

// ValidateName checks that a display name is present and reasonable
func (v *AuthValidator) ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > 100 {
		return fmt.Errorf("name must be at most 100 characters")
	}
	return nil
}

// ValidateEmail checks that an email address is present and well-formed
func (v *AuthValidator) ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("email is not valid")
	}
	return nil
}

// ValidatePassword enforces the minimum password policy
func (v *AuthValidator) ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if len(password) > 72 {
		// bcrypt truncates beyond 72 bytes
		return fmt.Errorf("password must be at most 72 characters")
	}
	return nil
}

// ValidateSignupRequest validates all signup fields
func (v *AuthValidator) ValidateSignupRequest(name, email, password string) error {
	if err := v.ValidateName(name); err != nil {
		return err
	}
	if err := v.ValidateEmail(email); err != nil {
		return err
	}
	return v.ValidatePassword(password)
}

// ValidateLoginRequest validates login fields
func (v *AuthValidator) ValidateLoginRequest(email, password string) error {
	if err := v.ValidateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}
