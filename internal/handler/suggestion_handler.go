package handler

import (
	"fincra-wisdom/internal/middleware"
	"fincra-wisdom/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SuggestionHandler serves the document suggestion workflow.
type SuggestionHandler struct {
	suggestions    service.SuggestionService
	maxUploadBytes int64
}

func NewSuggestionHandler(suggestions service.SuggestionService, maxUploadBytes int64) *SuggestionHandler {
	return &SuggestionHandler{suggestions: suggestions, maxUploadBytes: maxUploadBytes}
}

// Suggest handles POST /documents/suggest (multipart).
func (h *SuggestionHandler) Suggest(c *gin.Context) {
	file, closeFile, err := uploadedFile(c, h.maxUploadBytes)
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeFile()

	out, err := h.suggestions.Submit(c.Request.Context(), service.SuggestionInput{
		Title:        c.PostForm("title"),
		CircleID:     formID(c, "circleId"),
		DepartmentID: formID(c, "departmentId"),
		Category:     c.PostForm("category"),
		Description:  c.PostForm("description"),
		File:         file,
	}, middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, out.Suggestion)
}

// List handles GET /documents/suggestions?status=.
func (h *SuggestionHandler) List(c *gin.Context) {
	list, err := h.suggestions.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// Get handles GET /documents/suggestions/:id.
func (h *SuggestionHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sg, err := h.suggestions.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, sg)
}

// Approve handles PUT /documents/suggestions/:id/approve.
func (h *SuggestionHandler) Approve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.suggestions.Approve(c.Request.Context(), id, middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, out.Document)
}

type rejectRequest struct {
	AdminNotes string `json:"adminNotes"`
}

// Reject handles PUT /documents/suggestions/:id/reject with an optional body.
func (h *SuggestionHandler) Reject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req rejectRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondMessage(c, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	out, err := h.suggestions.Reject(c.Request.Context(), id, req.AdminNotes, middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, out.Suggestion)
}
