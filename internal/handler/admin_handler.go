package handler

import (
	"fincra-wisdom/internal/middleware"
	"fincra-wisdom/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves user administration.
type AdminHandler struct {
	users service.UserService
}

func NewAdminHandler(users service.UserService) *AdminHandler {
	return &AdminHandler{users: users}
}

// ListUsers handles GET /admin/users?page=&size=.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, err := h.users.ListUsers(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "size", 20))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, page)
}

type blockRequest struct {
	Blocked *bool `json:"blocked" binding:"required"`
}

// SetBlocked handles PUT /admin/users/:id/block with body {"blocked": bool}.
func (h *AdminHandler) SetBlocked(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "blocked is required")
		return
	}
	user, err := h.users.SetBlocked(c.Request.Context(), id, *req.Blocked, middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}
