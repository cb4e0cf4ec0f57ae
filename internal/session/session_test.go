package session

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pictogram/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newIssuer(t *testing.T) (*Issuer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewIssuer(testSecret, time.Hour, rdb), mr
}

func TestIssueAndVerify(t *testing.T) {
	iss, _ := newIssuer(t)
	token, claims, err := iss.Issue(42)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.JTI)

	got, err := iss.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), got.UserID)
	assert.Equal(t, claims.JTI, got.JTI)
}

func TestVerify_Failures(t *testing.T) {
	iss, _ := newIssuer(t)
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		_, err := iss.Verify(ctx, "")
		assert.True(t, models.IsCode(err, models.CodeUnauthorized))
		assert.Contains(t, err.Error(), MsgNotLoggedIn)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := iss.Verify(ctx, "not-a-token")
		assert.True(t, models.IsCode(err, models.CodeUnauthorized))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewIssuer("other", time.Hour, nil)
		token, _, err := other.Issue(1)
		require.NoError(t, err)
		_, err = iss.Verify(ctx, token)
		assert.True(t, models.IsCode(err, models.CodeUnauthorized))
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := jwt.MapClaims{"sub": "1", "iss": issuer, "aud": "someone-else", "exp": time.Now().Add(time.Hour).Unix()}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = iss.Verify(ctx, token)
		assert.True(t, models.IsCode(err, models.CodeUnauthorized))
	})

	t.Run("expired", func(t *testing.T) {
		past := NewIssuer(testSecret, time.Hour, nil)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _, err := past.Issue(1)
		require.NoError(t, err)
		_, err = iss.Verify(ctx, token)
		assert.True(t, models.IsCode(err, models.CodeTokenExpired))
		assert.Contains(t, err.Error(), MsgExpired)
	})
}

func TestRevoke(t *testing.T) {
	iss, mr := newIssuer(t)
	ctx := context.Background()
	token, claims, err := iss.Issue(7)
	require.NoError(t, err)

	require.NoError(t, iss.Revoke(ctx, claims))
	assert.True(t, mr.Exists("blacklist:"+claims.JTI))

	_, err = iss.Verify(ctx, token)
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists("blacklist:"+claims.JTI))
}

func TestRevoke_WithoutRedis(t *testing.T) {
	iss := NewIssuer(testSecret, time.Hour, nil)
	_, claims, err := iss.Issue(1)
	require.NoError(t, err)
	assert.NoError(t, iss.Revoke(context.Background(), claims))
	assert.False(t, iss.IsRevoked(context.Background(), claims.JTI))
}

func TestCookiesAndBearer(t *testing.T) {
	app := fiber.New()
	app.Get("/set", func(c *fiber.Ctx) error {
		SetCookie(c, "tok", time.Now().Add(time.Hour))
		return c.SendString(BearerToken(c))
	})
	app.Get("/clear", func(c *fiber.Ctx) error {
		ClearCookie(c)
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/set", nil)
	req.Header.Set("Authorization", "Bearer abc.def")
	resp, err := app.Test(req)
	require.NoError(t, err)
	cookie := resp.Header.Get("Set-Cookie")
	assert.True(t, strings.HasPrefix(cookie, CookieName+"=tok"))
	assert.Contains(t, strings.ToLower(cookie), "httponly")
	assert.Contains(t, strings.ToLower(cookie), "secure")
	assert.Contains(t, strings.ToLower(cookie), "samesite=none")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "abc.def", string(body))

	resp, err = app.Test(httptest.NewRequest("GET", "/clear", nil))
	require.NoError(t, err)
	assert.Contains(t, resp.Header.Get("Set-Cookie"), CookieName+"=;")
}
