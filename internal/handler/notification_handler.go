package handler

import (
	"fincra-wisdom/internal/middleware"
	"fincra-wisdom/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// NotificationHandler serves the caller's notification inbox.
type NotificationHandler struct {
	notifications service.NotificationService
}

func NewNotificationHandler(notifications service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c *gin.Context) {
	list, err := h.notifications.ListForRecipient(c.Request.Context(), middleware.CurrentUser(c).Email)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notifications.UnreadCount(c.Request.Context(), middleware.CurrentUser(c).Email)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"count": count})
}

// MarkRead handles PUT /notifications/:id/read. Another user's id is a 404.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	n, err := h.notifications.MarkAsRead(c.Request.Context(), id, middleware.CurrentUser(c).Email)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, n)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	updated, err := h.notifications.MarkAllAsRead(c.Request.Context(), middleware.CurrentUser(c).Email)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"updated": updated})
}
