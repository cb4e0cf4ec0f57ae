package server

import (
	"pictogram/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /posts
// @Summary List recent posts
// @Tags posts
// @Produce json
// @Param limit query int false "Maximum posts (default 15)"
// @Success 200 {object} models.Envelope
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListPosts(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return models.RespondList(c, len(posts), fiber.Map{"posts": posts})
}

// GetPost handles GET /posts/:id
// @Summary Get a post with its comments and likes
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Envelope
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return err
	}
	return models.Respond(c, fiber.StatusOK, "", fiber.Map{"post": post})
}

// CreatePost handles POST /posts/upload
// @Summary Upload a post
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param post formData file true "Post photo"
// @Param caption formData string false "Caption"
// @Success 201 {object} models.Envelope
// @Failure 403 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /posts/upload [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	content, err := readUpload(c, "post", "No post photo found to upload.")
	if err != nil {
		return err
	}

	post, err := s.postService.CreatePost(c.UserContext(), currentUser(c), content, c.FormValue("caption"))
	if err != nil {
		return err
	}
	return models.Respond(c, fiber.StatusCreated, "Your post has been uploaded successfully.", fiber.Map{"post": post})
}

// LikePost handles POST /posts/like/:id
// @Summary Toggle a like
// @Tags graph
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Envelope
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/like/{id} [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	liked, err := s.graphService.ToggleLike(c.UserContext(), currentUser(c), id)
	if err != nil {
		return err
	}
	if liked {
		return models.Respond(c, fiber.StatusOK, "Liked!", nil)
	}
	return models.Respond(c, fiber.StatusOK, "Unliked.", nil)
}

// UpdatePost handles POST /posts/update/:id
// @Summary Update a post caption
// @Description Owner only; photo, postedBy and postedAt are immutable
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body object{caption=string} true "New caption"
// @Success 200 {object} models.Envelope
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/update/{id} [post]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	body, err := bodyFields(c)
	if err != nil {
		return err
	}

	if err := s.postService.UpdatePost(c.UserContext(), currentUser(c), id, body); err != nil {
		return err
	}
	return models.Respond(c, fiber.StatusOK, "Your post has been updated successfully.", nil)
}

// DeletePost handles DELETE /posts/delete/:id
// @Summary Delete a post
// @Description Owner only; removes the photo, comments and likes
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /posts/delete/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := s.postService.DeletePost(c.UserContext(), currentUser(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateComment handles POST /posts/comments/:id
// @Summary Comment on a post
// @Tags graph
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body object{comment=string} true "Comment"
// @Success 201 {object} models.Envelope
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/comments/{id} [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		Comment string `json:"comment"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	comment, err := s.graphService.AddComment(c.UserContext(), currentUser(c), id, req.Comment)
	if err != nil {
		return err
	}
	return models.Respond(c, fiber.StatusCreated, "Commented!", fiber.Map{"comment": comment})
}

// DeleteComment handles DELETE /posts/comments/:id
// @Summary Delete an own comment
// @Description Deletes commentId when given, otherwise the caller's latest comment on the post
// @Tags graph
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param commentId query int false "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		CommentID uint `json:"commentId"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if q := c.QueryInt("commentId", 0); q > 0 {
		req.CommentID = uint(q)
	}

	if err := s.graphService.RemoveComment(c.UserContext(), currentUser(c), id, req.CommentID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
