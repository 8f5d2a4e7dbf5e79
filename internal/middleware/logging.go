package middleware

import (
	"fincra-wisdom/pkg/log"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per request. Bodies are not logged: they carry
// passwords and uploaded files.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		fields := []interface{}{
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		}
		if user := CurrentUser(c); user != nil {
			fields = append(fields, "user", user.Email)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		if c.Writer.Status() >= 500 {
			log.Errorw("HTTP request", fields...)
			return
		}
		log.Infow("HTTP request", fields...)
	}
}
