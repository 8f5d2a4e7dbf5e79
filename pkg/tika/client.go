// Package tika extracts plain text from office documents through an Apache Tika server.
package tika

import (
	"context"
	"fincra-wisdom/internal/config"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// maxExtractedBytes caps how much text is kept from one document.
const maxExtractedBytes = 2 << 20

// Client talks to a Tika server.
type Client struct {
	serverURL string
	client    *http.Client
}

// NewClient returns a Client for cfg.ServerURL.
func NewClient(cfg config.TikaConfig) *Client {
	return &Client{
		serverURL: strings.TrimRight(cfg.ServerURL, "/"),
		client:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Enabled reports whether a server URL is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.serverURL != ""
}

// ExtractText sends the file to Tika, inferring the MIME type from fileName.
func (c *Client) ExtractText(ctx context.Context, fileReader io.Reader, fileName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.serverURL+"/tika", fileReader)
	if err != nil {
		return "", fmt.Errorf("create tika request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Content-Type", detectMimeType(fileName))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call tika: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("tika returned %d: %s", resp.StatusCode, string(body))
	}

	text, err := io.ReadAll(io.LimitReader(resp.Body, maxExtractedBytes))
	if err != nil {
		return "", fmt.Errorf("read tika response: %w", err)
	}
	return strings.TrimSpace(string(text)), nil
}

func detectMimeType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		return "application/octet-stream"
	}
	if ext == ".md" {
		return "text/markdown"
	}
	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}
