package server

import (
	"pictogram/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetStories handles GET /stories
// @Summary List stories grouped by author
// @Tags stories
// @Produce json
// @Success 200 {object} models.Envelope
// @Router /stories [get]
func (s *Server) GetStories(c *fiber.Ctx) error {
	groups, err := s.storyService.ListStories(c.UserContext())
	if err != nil {
		return err
	}
	return models.RespondList(c, len(groups), fiber.Map{"stories": groups})
}

// CreateStory handles POST /stories/upload
// @Summary Share a story
// @Tags stories
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param story formData file true "Story photo"
// @Success 201 {object} models.Envelope
// @Failure 403 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /stories/upload [post]
func (s *Server) CreateStory(c *fiber.Ctx) error {
	content, err := readUpload(c, "story", "No story photo found to share.")
	if err != nil {
		return err
	}

	story, err := s.storyService.CreateStory(c.UserContext(), currentUser(c), content)
	if err != nil {
		return err
	}
	return models.Respond(c, fiber.StatusCreated, "Story has been uploaded.", fiber.Map{"story": story})
}
