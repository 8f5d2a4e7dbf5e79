package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware lets admins and superadmins through. It must run after AuthMiddleware.
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abort(c, http.StatusInternalServerError, "user not resolved")
			return
		}
		if !user.IsAdmin() {
			abort(c, http.StatusForbidden, "admin access required")
			return
		}
		c.Next()
	}
}
