// Package handler contains the gin handlers of the HTTP API.
package handler

import (
	"errors"
	"fincra-wisdom/internal/service"
	"fincra-wisdom/pkg/log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: false, Message: message})
}

var statusByKind = map[service.ErrorKind]int{
	service.KindInvalidInput: http.StatusBadRequest,
	service.KindUnauthorized: http.StatusUnauthorized,
	service.KindForbidden:    http.StatusForbidden,
	service.KindNotFound:     http.StatusNotFound,
	service.KindConflict:     http.StatusConflict,
	service.KindInternal:     http.StatusInternalServerError,
}

// respondError maps a service error to its status and envelope. Internal details
// are logged and only echoed in debug mode.
func respondError(c *gin.Context, err error) {
	var appErr *service.AppError
	if !errors.As(err, &appErr) {
		appErr = service.Internal("internal server error", err)
	}
	status, ok := statusByKind[appErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := Envelope{Success: false, Message: appErr.Message}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		log.Errorw("request failed", "path", c.FullPath(), "error", err)
		if gin.Mode() == gin.DebugMode && appErr.Err != nil {
			body.Error = appErr.Err.Error()
		}
	}
	c.JSON(status, body)
}

// pathID parses a numeric path parameter, answering 400 when it is malformed.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondMessage(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// formID parses an optional numeric form field; a missing or malformed value is 0.
func formID(c *gin.Context, name string) uint {
	id, err := strconv.ParseUint(c.PostForm(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}
