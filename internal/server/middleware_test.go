package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pictogram/internal/models"
	"pictogram/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_AuthRequired(t *testing.T) {
	ts := newTestServer(t)
	alice, token := ts.user(t, "alice")

	expired, _, err := session.NewIssuer(testSecret, -time.Hour, nil).Issue(alice.ID)
	require.NoError(t, err)
	forged, _, err := session.NewIssuer("some-other-secret-of-enough-length-000000", time.Hour, nil).Issue(alice.ID)
	require.NoError(t, err)
	ghost, _, err := ts.sessions.Issue(9999)
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		cookie         string
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "Valid Token",
			authHeader:     "Bearer " + token,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Valid Token via Cookie",
			cookie:         token,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Missing Header and Cookie",
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   models.CodeUnauthorized,
		},
		{
			name:           "Expired Token",
			authHeader:     "Bearer " + expired,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   models.CodeTokenExpired,
		},
		{
			name:           "Wrong Signature",
			authHeader:     "Bearer " + forged,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   models.CodeUnauthorized,
		},
		{
			name:           "Unknown User",
			authHeader:     "Bearer " + ghost,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   models.CodeUnauthorized,
		},
		{
			name:           "Malformed Bearer Format",
			authHeader:     "Token " + token,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   models.CodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users/authorization/current-user", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: session.CookieName, Value: tt.cookie})
			}

			resp, body := ts.do(t, req, "")
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, body["code"])
				assert.Equal(t, models.StatusFail, body["status"])
			}
		})
	}
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/app-error", func(c *fiber.Ctx) error {
		return models.NewUnprocessableError("Couldn't delete your post.", errors.New("bucket unavailable"))
	})
	app.Get("/plain-error", func(c *fiber.Ctx) error {
		return errors.New("connection reset by peer")
	})
	app.Get("/duplicate", func(c *fiber.Ctx) error {
		return models.NewInternalError(errors.New("UNIQUE constraint failed: users.username"))
	})

	tests := []struct {
		path    string
		status  int
		message string
		state   string
	}{
		{"/app-error", http.StatusUnprocessableEntity, "Couldn't delete your post.", models.StatusFail},
		{"/plain-error", http.StatusInternalServerError, "Internal server error", models.StatusError},
		{"/duplicate", http.StatusConflict, "This user already exists.", models.StatusFail},
		{"/missing", http.StatusNotFound, "Cannot GET /missing", models.StatusFail},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body models.ErrorResponse
			require.NoError(t, decodeJSON(resp, &body))
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, tt.state, body.Status)
		})
	}
}

func TestHealthChecks(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, httptest.NewRequest(http.MethodGet, "/health/live", nil), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "up", body["status"])

	resp, body = ts.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"database": "healthy", "redis": "healthy"}, body["checks"])

	t.Run("redis outage does not gate readiness", func(t *testing.T) {
		ts.mr.SetError("LOADING Redis is loading the dataset in memory")
		defer ts.mr.SetError("")
		resp, body := ts.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil), "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "unhealthy", body["checks"].(map[string]any)["redis"])
	})
}
