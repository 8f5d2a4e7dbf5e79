package handler

import (
	"errors"
	"fincra-wisdom/internal/service"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
)

// uploadedFile opens the "file" form field. A missing file yields a nil result and no
// error so the service can report it. The returned closer must be called.
func uploadedFile(c *gin.Context, maxBytes int64) (*service.UploadedFile, func(), error) {
	header, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, service.InvalidInput("invalid multipart form")
	}
	if maxBytes > 0 && header.Size > maxBytes {
		return nil, func() {}, service.InvalidInput("file too large")
	}
	f, err := header.Open()
	if err != nil {
		return nil, func() {}, service.Internal("failed to read uploaded file", err)
	}
	return &service.UploadedFile{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: contentType(header),
		Reader:      f,
	}, func() { _ = f.Close() }, nil
}

func contentType(h *multipart.FileHeader) string {
	if ct := h.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
