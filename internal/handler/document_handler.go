package handler

import (
	"fincra-wisdom/internal/middleware"
	"fincra-wisdom/internal/service"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// DocumentHandler serves published documents.
type DocumentHandler struct {
	documents      service.DocumentService
	maxUploadBytes int64
}

func NewDocumentHandler(documents service.DocumentService, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{documents: documents, maxUploadBytes: maxUploadBytes}
}

// Upload handles the admin multipart upload at POST /documents.
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, closeFile, err := uploadedFile(c, h.maxUploadBytes)
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeFile()

	doc, err := h.documents.Upload(c.Request.Context(), service.DocumentUploadInput{
		Title:        c.PostForm("title"),
		DepartmentID: formID(c, "departmentId"),
		Category:     c.PostForm("category"),
		Summary:      c.PostForm("summary"),
		Tags:         strings.Split(c.PostForm("tags"), ","),
		Author:       c.PostForm("author"),
		Version:      c.PostForm("version"),
		File:         file,
	}, middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, doc)
}

// ListByDepartment handles GET /departments/:id/documents.
func (h *DocumentHandler) ListByDepartment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	docs, err := h.documents.ListByDepartment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, docs)
}

// View handles GET /documents/:id and counts the view.
func (h *DocumentHandler) View(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, err := h.documents.View(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, doc)
}

// Download handles POST /documents/:id/download.
func (h *DocumentHandler) Download(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	info, err := h.documents.Download(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, info)
}

func (h *DocumentHandler) Recent(c *gin.Context) {
	docs, err := h.documents.Recent(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, docs)
}

func (h *DocumentHandler) Popular(c *gin.Context) {
	docs, err := h.documents.Popular(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, docs)
}
