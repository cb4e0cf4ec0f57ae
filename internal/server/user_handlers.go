package server

import (
	"fmt"
	"log/slog"

	"pictogram/internal/middleware"
	"pictogram/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetUsers handles GET /users
// @Summary Discover users
// @Description Returns a handful of random active users
// @Tags users
// @Produce json
// @Success 200 {object} models.Envelope
// @Router /users [get]
func (s *Server) GetUsers(c *fiber.Ctx) error {
	users, err := s.userService.RandomUsers(c.UserContext())
	if err != nil {
		return err
	}
	return models.RespondList(c, len(users), fiber.Map{"users": users})
}

// GetUserByID handles GET /users/id/:id
// @Summary Get a user profile by ID
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.Envelope
// @Failure 404 {object} models.ErrorResponse
// @Router /users/id/{id} [get]
func (s *Server) GetUserByID(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	profile, err := s.userService.GetProfile(c.UserContext(), id)
	if err != nil {
		return err
	}
	return models.Respond(c, fiber.StatusOK, "", fiber.Map{"user": profile})
}

// GetUserByUsername handles GET /users/username/:username
// @Summary Get a user profile by username
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.Envelope
// @Failure 404 {object} models.ErrorResponse
// @Router /users/username/{username} [get]
func (s *Server) GetUserByUsername(c *fiber.Ctx) error {
	profile, err := s.userService.GetProfileByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return err
	}
	return models.Respond(c, fiber.StatusOK, "", fiber.Map{"user": profile})
}

// SearchUsers handles GET /users/search/:username
// @Summary Search users by username
// @Tags users
// @Produce json
// @Param username path string true "Case-insensitive fragment"
// @Success 200 {object} models.Envelope
// @Router /users/search/{username} [get]
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	users, err := s.userService.SearchUsers(c.UserContext(), c.Params("username"))
	if err != nil {
		return err
	}
	return models.RespondList(c, len(users), fiber.Map{"users": users})
}

// Follow handles POST /users/follow/:username
// @Summary Follow a user
// @Tags graph
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username to follow"
// @Success 200 {object} models.Envelope
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/follow/{username} [post]
func (s *Server) Follow(c *fiber.Ctx) error {
	target, err := s.graphService.Follow(c.UserContext(), currentUser(c), c.Params("username"))
	if err != nil {
		return err
	}
	return models.Respond(c, fiber.StatusOK, fmt.Sprintf("Now, you are following %s", target.Username), nil)
}

// Unfollow handles POST /users/unfollow/:username
// @Summary Unfollow a user
// @Tags graph
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username to unfollow"
// @Success 200 {object} models.Envelope
// @Failure 404 {object} models.ErrorResponse
// @Router /users/unfollow/{username} [post]
func (s *Server) Unfollow(c *fiber.Ctx) error {
	target, err := s.graphService.Unfollow(c.UserContext(), currentUser(c), c.Params("username"))
	if err != nil {
		return err
	}
	return models.Respond(c, fiber.StatusOK, fmt.Sprintf("Now, you aren't following %s", target.Username), nil)
}

// UploadPhoto handles POST /users/upload
// @Summary Upload a profile photo
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param photo formData file true "Profile photo"
// @Success 200 {object} models.Envelope
// @Failure 403 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /users/upload [post]
func (s *Server) UploadPhoto(c *fiber.Ctx) error {
	content, err := readUpload(c, "photo", "No photo found to upload.")
	if err != nil {
		return err
	}

	url, err := s.userService.UploadPhoto(c.UserContext(), currentUser(c), content)
	if err != nil {
		return err
	}
	return models.Respond(c, fiber.StatusOK, "Profile photo has been updated successfully.", fiber.Map{"url": url})
}

// RemovePhoto handles POST /users/remove
// @Summary Remove the profile photo
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Envelope
// @Failure 422 {object} models.ErrorResponse
// @Router /users/remove [post]
func (s *Server) RemovePhoto(c *fiber.Ctx) error {
	removed, err := s.userService.RemovePhoto(c.UserContext(), currentUser(c))
	if err != nil {
		return err
	}
	if !removed {
		return models.Respond(c, fiber.StatusOK, "No profile picture found. Nothing to delete.", nil)
	}
	return models.Respond(c, fiber.StatusOK, "Your profile picture has been removed successfully.", nil)
}

// UpdateMe handles PATCH /users/update
// @Summary Update the profile
// @Description Only firstname, lastname, username and bio are editable
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{firstname=string,lastname=string,username=string,bio=string} true "Profile fields"
// @Success 200 {object} models.Envelope
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/update [patch]
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	body, err := bodyFields(c)
	if err != nil {
		return err
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), currentUser(c), body)
	if err != nil {
		return err
	}
	return models.Respond(c, fiber.StatusOK, "Your profile has been updated successfully.", fiber.Map{"user": user})
}

// GetNotifications handles GET /users/notifications
// @Summary Read the notification mailbox
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Envelope
// @Router /users/notifications [get]
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	items, err := s.userService.Notifications(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return models.RespondList(c, len(items), fiber.Map{"notifications": items})
}

// MarkNotificationsSeen handles PATCH /users/notifications/seen
// @Summary Mark every notification as seen
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Envelope
// @Router /users/notifications/seen [patch]
func (s *Server) MarkNotificationsSeen(c *fiber.Ctx) error {
	n, err := s.userService.MarkNotificationsSeen(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return models.Respond(c, fiber.StatusOK, "", fiber.Map{"updated": n})
}

// DeactivateMe handles DELETE /users/deactivate
// @Summary Deactivate the account
// @Description Hides the account until the next login
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{currentPassword=string} true "Password confirmation"
// @Success 200 {object} models.Envelope
// @Failure 401 {object} models.ErrorResponse
// @Router /users/deactivate [delete]
func (s *Server) DeactivateMe(c *fiber.Ctx) error {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	if err := s.userService.Deactivate(c.UserContext(), currentUser(c), req.CurrentPassword); err != nil {
		return err
	}

	s.revokeSession(c)
	return models.Respond(c, fiber.StatusOK,
		"Your account has been deactivated successfully. To activate again, please login.", nil)
}

// DeleteMe handles DELETE /users/delete
// @Summary Delete the account
// @Description Cascades over photos, posts, stories, comments, likes, follow edges and notifications
// @Tags graph
// @Accept json
// @Security BearerAuth
// @Param request body object{currentPassword=string} true "Password confirmation"
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Router /users/delete [delete]
func (s *Server) DeleteMe(c *fiber.Ctx) error {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	report, err := s.graphService.DeleteAccount(c.UserContext(), currentUser(c), req.CurrentPassword)
	if err != nil {
		return err
	}
	if failed := report.Failed(); len(failed) > 0 {
		middleware.Logger.WarnContext(c.UserContext(), "account deleted with incomplete cleanup",
			slog.Uint64("user_id", uint64(report.UserID)),
			slog.Any("failed_steps", failed),
		)
	}

	s.revokeSession(c)
	return c.SendStatus(fiber.StatusNoContent)
}
