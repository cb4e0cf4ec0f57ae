// Package session issues and verifies the signed session credential and
// tracks revoked credentials in Redis.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pictogram/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the cookie carrying the credential.
	CookieName = "jsonwebtoken"

	issuer   = "pictogram-api"
	audience = "pictogram-client"

	revokedKeyPrefix = "blacklist:"
)

// Credential failure messages.
const (
	MsgNotLoggedIn = "You're not logged in. Please login."
	MsgInvalid     = "Authorization failed. Please login."
	MsgExpired     = "Authentication has expired. Please login again."
)

// Claims is the verified content of a credential.
type Claims struct {
	UserID    uint
	JTI       string
	ExpiresAt time.Time
}

// Issuer signs and verifies HS256 credentials.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	rdb    *redis.Client
	now    func() time.Time
}

// NewIssuer returns an Issuer. rdb may be nil, in which case revocation is a no-op.
func NewIssuer(secret string, ttl time.Duration, rdb *redis.Client) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, rdb: rdb, now: time.Now}
}

// TTL is the lifetime of issued credentials.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a credential for userID.
func (i *Issuer) Issue(userID uint) (string, *Claims, error) {
	if len(i.secret) == 0 {
		return "", nil, fmt.Errorf("JWT secret not configured")
	}

	now := i.now()
	claims := &Claims{
		UserID:    userID,
		JTI:       fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
		ExpiresAt: now.Add(i.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        claims.JTI,
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify validates signature, issuer, audience, expiry and revocation.
// It fails with TOKEN_EXPIRED for an expired credential and UNAUTHORIZED otherwise.
func (i *Issuer) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, models.NewUnauthorizedError(MsgNotLoggedIn)
	}

	var registered jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &registered, func(token *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.NewExpiredError(MsgExpired)
		}
		return nil, models.NewUnauthorizedError(MsgInvalid)
	}

	userID, err := strconv.ParseUint(registered.Subject, 10, 32)
	if err != nil || userID == 0 {
		return nil, models.NewUnauthorizedError(MsgInvalid)
	}

	if i.IsRevoked(ctx, registered.ID) {
		return nil, models.NewUnauthorizedError(MsgInvalid)
	}

	return &Claims{
		UserID:    uint(userID),
		JTI:       registered.ID,
		ExpiresAt: registered.ExpiresAt.Time,
	}, nil
}

// Revoke blacklists the credential until it would have expired anyway.
func (i *Issuer) Revoke(ctx context.Context, claims *Claims) error {
	if i.rdb == nil || claims == nil || claims.JTI == "" {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(i.now())
	if ttl <= 0 {
		return nil
	}
	return i.rdb.Set(ctx, revokedKeyPrefix+claims.JTI, "1", ttl).Err()
}

// IsRevoked reports whether jti has been revoked. Redis errors count as not revoked.
func (i *Issuer) IsRevoked(ctx context.Context, jti string) bool {
	if i.rdb == nil || jti == "" {
		return false
	}
	n, err := i.rdb.Exists(ctx, revokedKeyPrefix+jti).Result()
	return err == nil && n > 0
}

// BearerToken extracts the credential from the Authorization header.
func BearerToken(c *fiber.Ctx) string {
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// SetCookie writes the credential cookie.
func SetCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}

// ClearCookie expires the credential cookie.
func ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}
