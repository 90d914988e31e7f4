package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"bitwise74/pulse-api/internal/model"
	"bitwise74/pulse-api/internal/token"
	"bitwise74/pulse-api/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TokenChecker interface {
	ParseAccess(tokenStr string) (*token.Claims, error)
	IsRevoked(ctx context.Context, tokenStr string) (bool, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// NewJWTMiddleware authenticates requests with an "Authorization: Bearer"
// access token and sets userID, role and user on the context
func NewJWTMiddleware(tokens TokenChecker, users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Missing authorization token",
				"requestID": requestID,
			})
			return
		}

		claims, err := tokens.ParseAccess(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authorization token invalid or expired",
				"requestID": requestID,
			})
			return
		}

		revoked, err := tokens.IsRevoked(c.Request.Context(), tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to check token revocation", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authorization token revoked",
				"requestID": requestID,
			})
			return
		}

		// Role and status can change after the token was issued
		u, err := users.FindByID(c.Request.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":     "User not found",
					"requestID": requestID,
				})
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to check if user exists", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		if u.ApplicationStatus == model.StatusRejected {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":     "Account not approved",
				"requestID": requestID,
			})
			return
		}

		c.Set("userID", u.ID)
		c.Set("role", u.Role)
		c.Set("user", u)
		c.Next()
	}
}

// RequireRole lets through users with one of roles. Must run after
// NewJWTMiddleware.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("role")

		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "Insufficient permissions",
			"requestID": c.GetString("requestID"),
		})
	}
}
