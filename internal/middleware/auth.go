// Package middleware holds the gin middleware of the HTTP API.
package middleware

import (
	"context"
	"fincra-wisdom/internal/model"
	"fincra-wisdom/pkg/log"
	"fincra-wisdom/pkg/token"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware.
const (
	ContextUser   = "user"
	ContextClaims = "claims"
	ContextToken  = "token"
)

// ProfileLoader loads the account behind a token. service.UserService implements it.
type ProfileLoader interface {
	GetProfile(ctx context.Context, email string) (*model.User, error)
}

// Blacklist reports revoked tokens. repository.TokenRepository implements it.
type Blacklist interface {
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": msg})
}

// AuthMiddleware authenticates the bearer token and stores the *model.User in the
// context under ContextUser. Blocked users are rejected with 403.
func AuthMiddleware(jwtManager *token.JWTManager, users ProfileLoader, blacklist Blacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "authorization header required")
			return
		}
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			abort(c, http.StatusUnauthorized, "invalid authorization header")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil || claims.Refresh {
			abort(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		revoked, err := blacklist.IsBlacklisted(c.Request.Context(), tokenString)
		if err != nil {
			log.Error("failed to check token blacklist", err)
			abort(c, http.StatusInternalServerError, "internal server error")
			return
		}
		if revoked {
			abort(c, http.StatusUnauthorized, "token has been revoked")
			return
		}

		user, err := users.GetProfile(c.Request.Context(), claims.Email)
		if err != nil {
			abort(c, http.StatusUnauthorized, "user not found")
			return
		}
		if user.IsBlocked {
			abort(c, http.StatusForbidden, "account is blocked")
			return
		}

		c.Set(ContextUser, user)
		c.Set(ContextClaims, claims)
		c.Set(ContextToken, tokenString)
		c.Next()
	}
}

// CurrentUser returns the user stored by AuthMiddleware, or nil.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}
