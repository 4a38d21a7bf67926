package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/appointment-api/pkg/auth"
	apperrors "github.com/jwalitptl/appointment-api/pkg/errors"
	"github.com/jwalitptl/appointment-api/pkg/httputil"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"

	// AccessTokenCookie is read when no Authorization header is sent.
	AccessTokenCookie = "accessToken"
)

type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	tokens TokenValidator
}

func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the access token and puts the caller id and role in
// the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			httputil.AbortWithError(c, err)
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			httputil.AbortWithError(c, apperrors.Unauthorized("invalid token", err))
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			httputil.AbortWithError(c, apperrors.Unauthorized("invalid token subject", err))
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireRole rejects callers whose token carries a different role.
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != role {
			httputil.AbortWithError(c, apperrors.Forbidden("permission denied"))
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", apperrors.Unauthorized("invalid authorization format", nil)
		}
		return parts[1], nil
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie, nil
	}
	return "", apperrors.Unauthorized("missing authorization header", nil)
}

// UserID returns the authenticated caller. It is only valid behind Authenticate.
func UserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
