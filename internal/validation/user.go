// Package validation holds the input rules for account fields.
package validation

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"pictogram/internal/models"
)

// Field length bounds.
const (
	UsernameMin = 3
	UsernameMax = 12
	NameMin     = 2
	NameMax     = 16
	PasswordMin = 8
	PasswordMax = 24
	EmailMax    = 254
	BioMax      = 150
)

// Signup is the account creation input.
type Signup struct {
	Firstname       string
	Lastname        string
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

// ValidateSignup checks every signup field and returns the first violation.
// Names and the confirmation are optional but validated when present.
func ValidateSignup(in Signup) error {
	if err := ValidateUsername(in.Username); err != nil {
		return err
	}
	if err := ValidateEmail(in.Email); err != nil {
		return err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return err
	}
	if err := ValidatePasswordConfirm(in.Password, in.PasswordConfirm); err != nil {
		return err
	}
	if err := ValidateName("Firstname", in.Firstname); err != nil {
		return err
	}
	return ValidateName("Lastname", in.Lastname)
}

// ValidateUsername enforces 3-12 characters without whitespace.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	switch {
	case n == 0:
		return models.NewValidationError("@username is required.")
	case n < UsernameMin:
		return models.NewValidationError("@username cannot be shorter than 3 characters.")
	case n > UsernameMax:
		return models.NewValidationError("@username cannot be longer than 12 characters.")
	case strings.ContainsAny(username, " \t\r\n/"):
		return models.NewValidationError("@username cannot contain spaces or slashes.")
	}
	return nil
}

// ValidateEmail checks the address format.
func ValidateEmail(email string) error {
	if email == "" {
		return models.NewValidationError("Email address is required.")
	}
	if len(email) > EmailMax {
		return models.NewValidationError("Invalid email address.")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return models.NewValidationError("Invalid email address.")
	}
	at := strings.LastIndex(email, "@")
	if at < 1 || !strings.Contains(email[at+1:], ".") {
		return models.NewValidationError("Invalid email address.")
	}
	return nil
}

// ValidatePassword enforces 8-24 characters.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	switch {
	case n == 0:
		return models.NewValidationError("Password is required.")
	case n < PasswordMin:
		return models.NewValidationError("Password cannot be shorter than 8 characters.")
	case n > PasswordMax:
		return models.NewValidationError("Password cannot be longer than 24 characters.")
	}
	return nil
}

// ValidatePasswordConfirm checks an optional confirmation against the password.
func ValidatePasswordConfirm(password, confirm string) error {
	if confirm != "" && confirm != password {
		return models.NewValidationError("Password doesn't match.")
	}
	return nil
}

// ValidateName checks an optional first or last name.
func ValidateName(field, value string) error {
	if value == "" {
		return nil
	}
	n := utf8.RuneCountInString(value)
	if n < NameMin {
		return models.NewValidationError(field + " cannot be shorter than 2 characters.")
	}
	if n > NameMax {
		return models.NewValidationError(field + " cannot be longer than 16 characters.")
	}
	return nil
}

// ValidateBio bounds the profile bio.
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > BioMax {
		return models.NewValidationError("Bio cannot be longer than 150 characters.")
	}
	return nil
}

// ValidateCaption bounds a post caption.
func ValidateCaption(caption string) error {
	if utf8.RuneCountInString(caption) > models.MaxCaptionLength {
		return models.NewValidationError("Caption cannot be longer than 256 characters.")
	}
	return nil
}
