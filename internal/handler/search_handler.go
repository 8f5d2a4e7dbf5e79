package handler

import (
	"fincra-wisdom/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SearchHandler serves keyword search and the ask endpoint.
type SearchHandler struct {
	search service.SearchService
}

func NewSearchHandler(search service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// Search handles GET /search?q=&limit=.
func (h *SearchHandler) Search(c *gin.Context) {
	docs, err := h.search.Search(c.Request.Context(), c.Query("q"), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, docs)
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

// Ask handles POST /ai/ask.
func (h *SearchHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "question is required")
		return
	}
	res, err := h.search.Ask(c.Request.Context(), req.Question)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, res)
}
