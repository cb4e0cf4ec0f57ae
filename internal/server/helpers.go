package server

import (
	"io"
	"log/slog"
	"strings"
	"unicode"

	"pictogram/internal/middleware"
	"pictogram/internal/models"
	"pictogram/internal/session"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by AuthRequired.
const (
	localUser   = "user"
	localClaims = "claims"
)

// currentUser returns the user loaded by AuthRequired.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localUser).(*models.User)
	return user
}

func currentClaims(c *fiber.Ctx) *session.Claims {
	claims, _ := c.Locals(localClaims).(*session.Claims)
	return claims
}

// parseID extracts a route parameter by name as a positive uint.
// The error message is derived from the parameter name (e.g. "id" -> "Invalid ID",
// "commentId" -> "Invalid comment ID").
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("Invalid " + humanizeParam(param))
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// parseBody decodes a JSON (or form) body into dest.
func parseBody(c *fiber.Ctx, dest any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dest); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}

// bodyFields decodes the body into a generic map, for endpoints that must
// reject the presence of particular keys.
func bodyFields(c *fiber.Ctx) (map[string]any, error) {
	body := map[string]any{}
	if err := parseBody(c, &body); err != nil {
		return nil, err
	}
	return body, nil
}

// readUpload returns the bytes of the multipart file in field. missingMsg is
// reported when no file was sent.
func readUpload(c *fiber.Ctx, field, missingMsg string) ([]byte, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, models.NewValidationError(missingMsg)
	}

	src, err := file.Open()
	if err != nil {
		return nil, models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, models.NewValidationError("Unable to read uploaded file")
	}
	return content, nil
}

// sendSession issues a credential for user, sets the cookie and writes the
// envelope carrying the token.
func (s *Server) sendSession(c *fiber.Ctx, status int, user *models.User, message string) error {
	token, claims, err := s.sessions.Issue(user.ID)
	if err != nil {
		return models.NewInternalError(err)
	}
	session.SetCookie(c, token, claims.ExpiresAt)

	return c.Status(status).JSON(models.Envelope{
		Status:  models.StatusSuccess,
		Message: message,
		Token:   token,
		Data:    fiber.Map{"user": user},
	})
}

// revokeSession blacklists the presented credential and clears the cookie.
// Revocation failures are not fatal: the credential still expires.
func (s *Server) revokeSession(c *fiber.Ctx) {
	if err := s.sessions.Revoke(c.UserContext(), currentClaims(c)); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "credential revocation failed", slog.String("error", err.Error()))
	}
	session.ClearCookie(c)
}
