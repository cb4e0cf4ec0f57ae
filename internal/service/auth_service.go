package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pictogram/internal/cache"
	"pictogram/internal/mailer"
	"pictogram/internal/middleware"
	"pictogram/internal/models"
	"pictogram/internal/repository"
	"pictogram/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// ResetTokenTTL is how long a password reset link stays valid.
const ResetTokenTTL = 10 * time.Minute

// MsgPasswordMismatch is returned when a login or confirmation password is wrong.
const MsgPasswordMismatch = "Password doesn't match."

// AuthService owns credentials: signup, login, password reset and changes.
// Session issuance stays with the HTTP layer.
type AuthService struct {
	users  repository.UserRepository
	mail   mailer.Mailer
	cache  *cache.Cache
	appURL string
	cost   int
	now    func() time.Time
}

// NewAuthService returns a new AuthService. cache may be nil.
func NewAuthService(users repository.UserRepository, mail mailer.Mailer, c *cache.Cache, appURL string) *AuthService {
	return &AuthService{
		users:  users,
		mail:   mail,
		cache:  c,
		appURL: strings.TrimRight(appURL, "/"),
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.cost = cost
	return s
}

func (s *AuthService) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(b), nil
}

// PasswordMatches compares plain against the stored bcrypt hash.
func PasswordMatches(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Signup creates an account and sends the welcome mail. A mail failure is
// logged and does not fail the signup.
func (s *AuthService) Signup(ctx context.Context, in validation.Signup) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.ValidateSignup(in); err != nil {
		return nil, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Firstname: strings.TrimSpace(in.Firstname),
		Lastname:  strings.TrimSpace(in.Lastname),
		Username:  in.Username,
		Email:     in.Email,
		Password:  hash,
		Active:    true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, repository.TranslateError(err)
	}

	if err := s.mail.Send(ctx, user.Email, mailer.TemplateWelcome, map[string]string{
		"firstname": user.Firstname,
		"url":       s.appURL,
	}); err != nil {
		middleware.Logger.WarnContext(ctx, "welcome mail not delivered",
			slog.Uint64("user_id", uint64(user.ID)),
			slog.String("error", err.Error()),
		)
	}
	return user, nil
}

// Login authenticates username/password. A deactivated account is
// reactivated by a successful login.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, models.NewValidationError("Please type your username and password.")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewNotFoundError("User not found. You can signup with that user.")
		}
		return nil, err
	}
	if !PasswordMatches(user.Password, password) {
		return nil, models.NewUnauthorizedError(MsgPasswordMismatch)
	}

	if !user.Active {
		if err := s.users.Update(ctx, user.ID, map[string]any{"active": true}); err != nil {
			return nil, err
		}
		user.Active = true
		s.cache.InvalidateProfiles(ctx, user.ID)
		middleware.Logger.InfoContext(ctx, "account reactivated by login", slog.Uint64("user_id", uint64(user.ID)))
	}
	return user, nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ForgotPassword stores a hashed single-use token and mails the reset link.
// When the mail cannot be sent the token is cleared again.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.NewValidationError("Please type your email address to reset your password.")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return models.NewValidationError("Please type a valid email address.")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.NewNotFoundError("User not found with that email.")
		}
		return err
	}

	token, err := newResetToken()
	if err != nil {
		return models.NewInternalError(err)
	}
	expires := s.now().Add(ResetTokenTTL)
	if err := s.users.Update(ctx, user.ID, map[string]any{
		"password_reset_token":      hashResetToken(token),
		"password_reset_expires_at": expires,
	}); err != nil {
		return err
	}

	sendErr := s.mail.Send(ctx, user.Email, mailer.TemplateResetPassword, map[string]string{
		"firstname": user.Firstname,
		"url":       fmt.Sprintf("%s/reset-password/%s", s.appURL, token),
	})
	if sendErr == nil {
		return nil
	}

	middleware.Logger.ErrorContext(ctx, "password reset mail not delivered",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("error", sendErr.Error()),
	)
	if err := s.clearResetToken(ctx, user.ID); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to clear reset token", slog.String("error", err.Error()))
	}
	return &models.AppError{
		Code:    models.CodeInternal,
		Message: "Password reset link couldn't sent to your email address. Try again later.",
		Err:     sendErr,
	}
}

func (s *AuthService) clearResetToken(ctx context.Context, userID uint) error {
	return s.users.Update(ctx, userID, map[string]any{
		"password_reset_token":      "",
		"password_reset_expires_at": nil,
	})
}

// ResetPassword sets a new password for the owner of a valid, unexpired token.
func (s *AuthService) ResetPassword(ctx context.Context, token, password, passwordConfirm string) (*models.User, error) {
	user, err := s.users.GetByResetToken(ctx, hashResetToken(token), s.now())
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewNotFoundError("The password reset link has expired or has broken. Please try again later.")
		}
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidatePasswordConfirm(password, passwordConfirm); err != nil {
		return nil, err
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user.ID, map[string]any{
		"password":                  hash,
		"password_reset_token":      "",
		"password_reset_expires_at": nil,
	}); err != nil {
		return nil, err
	}
	user.Password = hash
	user.PasswordResetToken = ""
	user.PasswordResetExpiresAt = nil
	return user, nil
}

// ChangePasswordInput carries a password change request.
type ChangePasswordInput struct {
	CurrentPassword string
	Password        string
	PasswordConfirm string
}

// ChangePassword replaces the password of user after re-checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, user *models.User, in ChangePasswordInput) error {
	if in.CurrentPassword == "" {
		return models.NewValidationError("Please confirm your current password.")
	}
	if in.Password == "" || in.PasswordConfirm == "" {
		return models.NewValidationError("Please set your new password.")
	}
	if !PasswordMatches(user.Password, in.CurrentPassword) {
		return models.NewUnauthorizedError("Your current password doesn't match.")
	}
	if PasswordMatches(user.Password, in.Password) {
		return models.NewConflictError("Your new password cannot be the same as your previous password.")
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return err
	}
	if err := validation.ValidatePasswordConfirm(in.Password, in.PasswordConfirm); err != nil {
		return err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return err
	}
	if err := s.users.Update(ctx, user.ID, map[string]any{"password": hash}); err != nil {
		return err
	}
	user.Password = hash
	return nil
}

// ChangeEmail replaces the email of user after re-checking the password.
func (s *AuthService) ChangeEmail(ctx context.Context, user *models.User, currentPassword, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if currentPassword == "" {
		return models.NewValidationError("Please confirm your current password.")
	}
	if email == "" {
		return models.NewValidationError("Please set your new email address.")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return models.NewValidationError("Please type a valid email address.")
	}
	if !PasswordMatches(user.Password, currentPassword) {
		return models.NewUnauthorizedError("Your current password doesn't match.")
	}
	if email == user.Email {
		return models.NewValidationError("That email address is already the same as the existing one.")
	}

	if err := s.users.Update(ctx, user.ID, map[string]any{"email": email}); err != nil {
		return repository.TranslateError(err)
	}
	user.Email = email
	s.cache.InvalidateProfiles(ctx, user.ID)
	return nil
}
