package validation

import (
	"strings"
	"testing"

	"pictogram/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "alice", false},
		{"Exactly Min Length", "abc", false},
		{"Exactly Max Length", strings.Repeat("a", 12), false},
		{"Empty", "", true},
		{"Too Short", "ab", true},
		{"Too Long", strings.Repeat("a", 13), true},
		{"Space", "ali ce", true},
		{"Slash", "ali/ce", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.True(t, models.IsCode(err, models.CodeValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "password1", false},
		{"Exactly Min Length", "12345678", false},
		{"Exactly Max Length", strings.Repeat("p", 24), false},
		{"Too Short", "short", true},
		{"Too Long", strings.Repeat("p", 25), true},
		{"Empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "a@x.com", false},
		{"Empty", "", true},
		{"Invalid Format", "not-an-email", true},
		{"Missing Domain", "user@", true},
		{"No Dot In Domain", "user@localhost", true},
		{"Display Name", "Alice <a@x.com>", true},
		{"Too Long", strings.Repeat("a", 250) + "@x.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSignup(t *testing.T) {
	t.Parallel()
	base := Signup{Username: "alice", Email: "a@x.com", Password: "password1"}
	assert.NoError(t, ValidateSignup(base))

	mismatch := base
	mismatch.PasswordConfirm = "password2"
	err := ValidateSignup(mismatch)
	assert.EqualError(t, err, "Password doesn't match.")

	shortName := base
	shortName.Firstname = "A"
	assert.EqualError(t, ValidateSignup(shortName), "Firstname cannot be shorter than 2 characters.")

	full := base
	full.Firstname, full.Lastname, full.PasswordConfirm = "Alice", "Liddell", "password1"
	assert.NoError(t, ValidateSignup(full))
}

func TestValidateCaption(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateCaption(strings.Repeat("c", 256)))
	assert.Error(t, ValidateCaption(strings.Repeat("c", 257)))
	assert.NoError(t, ValidateBio(""))
	assert.Error(t, ValidateBio(strings.Repeat("b", 151)))
}
