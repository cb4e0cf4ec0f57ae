package server

import (
	"fmt"

	"pictogram/internal/models"
	"pictogram/internal/service"
	"pictogram/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Signup handles POST /users/signup
// @Summary User signup
// @Description Register a new user account and open a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{firstname=string,lastname=string,username=string,email=string,password=string,passwordConfirm=string} true "Signup request"
// @Success 201 {object} models.Envelope
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Firstname       string `json:"firstname"`
		Lastname        string `json:"lastname"`
		Username        string `json:"username"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := s.authService.Signup(c.UserContext(), validation.Signup{
		Firstname:       req.Firstname,
		Lastname:        req.Lastname,
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		return err
	}

	return s.sendSession(c, fiber.StatusCreated, user, "You've signed up successfully. Welcome to Pictogram!")
}

// Login handles POST /users/login
// @Summary User login
// @Description Authenticate by username and password; reactivates a deactivated account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Login credentials"
// @Success 200 {object} models.Envelope
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := s.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return s.sendSession(c, fiber.StatusOK, user, fmt.Sprintf("Welcome back %s!", user.Username))
}

// ForgotPassword handles POST /users/forgot-password
// @Summary Request a password reset link
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string} true "Account email"
// @Success 200 {object} models.Envelope
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /users/forgot-password [post]
func (s *Server) ForgotPassword(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := s.authService.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}

	return models.Respond(c, fiber.StatusOK, "The password reset link has been sent to your email address.", nil)
}

// ResetPassword handles PATCH /users/reset-password/:token
// @Summary Reset the password with an emailed token
// @Tags auth
// @Accept json
// @Produce json
// @Param token path string true "Reset token"
// @Param request body object{password=string,passwordConfirm=string} true "New password"
// @Success 200 {object} models.Envelope
// @Failure 404 {object} models.ErrorResponse
// @Router /users/reset-password/{token} [patch]
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	var req struct {
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := s.authService.ResetPassword(c.UserContext(), c.Params("token"), req.Password, req.PasswordConfirm)
	if err != nil {
		return err
	}

	return s.sendSession(c, fiber.StatusOK, user, "Your password has been updated successfully.")
}

// GetCurrentUser handles GET /users/authorization/current-user
// @Summary Get the authenticated user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Envelope
// @Failure 401 {object} models.ErrorResponse
// @Router /users/authorization/current-user [get]
func (s *Server) GetCurrentUser(c *fiber.Ctx) error {
	return models.Respond(c, fiber.StatusOK, "", fiber.Map{"user": currentUser(c)})
}

// Logout handles POST /users/logout
// @Summary Logout
// @Description Clears the session cookie and revokes the presented credential
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Envelope
// @Router /users/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	s.revokeSession(c)
	return models.Respond(c, fiber.StatusOK, "You're logged out successfully.", nil)
}

// ChangePassword handles PATCH /users/change-password
// @Summary Change the password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{currentPassword=string,password=string,passwordConfirm=string} true "Passwords"
// @Success 200 {object} models.Envelope
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/change-password [patch]
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user := currentUser(c)
	if err := s.authService.ChangePassword(c.UserContext(), user, service.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	}); err != nil {
		return err
	}

	s.revokeSession(c)
	return s.sendSession(c, fiber.StatusOK, user, "Your password has been updated successfully.")
}

// ChangeEmail handles PATCH /users/change-email
// @Summary Change the email address
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{currentPassword=string,email=string} true "New email"
// @Success 200 {object} models.Envelope
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/change-email [patch]
func (s *Server) ChangeEmail(c *fiber.Ctx) error {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		Email           string `json:"email"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user := currentUser(c)
	if err := s.authService.ChangeEmail(c.UserContext(), user, req.CurrentPassword, req.Email); err != nil {
		return err
	}

	s.revokeSession(c)
	return s.sendSession(c, fiber.StatusOK, user, "Your email address has been changed successfully.")
}
