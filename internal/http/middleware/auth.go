package middleware

import (
	"net/http"
	"strings"

	"busyatri/internal/domain"
	"busyatri/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey   = "userID"
	userNameKey = "userName"
	userRoleKey = "userRole"
)

// TokenParser verifies a bearer token.
type TokenParser interface {
	ParseToken(raw string) (services.Claims, error)
}

// Auth attaches the caller's identity when a valid bearer token is sent.
// Requests without a token pass through anonymous; a bad token is rejected.
func Auth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			c.Next()
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			abortUnauthorized(c, "malformed authorization header")
			return
		}
		claims, err := parser.ParseToken(strings.TrimSpace(raw))
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(userNameKey, claims.Name)
		c.Set(userRoleKey, claims.Role)

		rc := domain.FromContext(c.Request.Context())
		rc.UserID = claims.UserID
		rc.Name = claims.Name
		rc.Role = claims.Role
		c.Request = c.Request.WithContext(domain.WithRequestContext(c.Request.Context(), rc))
		c.Next()
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(userIDKey) == "" {
			abortUnauthorized(c, "login required")
			return
		}
		c.Next()
	}
}

// RequireRoles allows only requests whose role is in allowedRoles.
//
//	r.POST("/trips", RequireAuth(), RequireRoles("admin"), handler)
func RequireRoles(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString(userRoleKey)
		if role == "" {
			abortUnauthorized(c, "role missing from context")
			return
		}
		if _, ok := allowed[strings.ToLower(strings.TrimSpace(role))]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":      "forbidden: role not allowed",
				"code":       "forbidden",
				"request_id": GetRequestID(c),
			})
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":      msg,
		"code":       "unauthorized",
		"request_id": GetRequestID(c),
	})
}
