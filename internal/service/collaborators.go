package service

import (
	"context"
	"fincra-wisdom/pkg/storage"
	"fincra-wisdom/pkg/tasks"
	"io"
	"time"
)

// FileStorage stores uploaded files. *storage.ObjectStore implements it.
type FileStorage interface {
	Upload(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (*storage.UploadResult, error)
	Delete(ctx context.Context, publicID string) error
	DownloadURL(ctx context.Context, publicID, fileName string, expiry time.Duration) (string, error)
}

// IndexPublisher queues search index updates. *kafka.Producer implements it.
type IndexPublisher interface {
	Publish(ctx context.Context, task tasks.DocumentIndexTask) error
}

// UploadedFile is one file received from a multipart form.
type UploadedFile struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// publishIndex queues task when a publisher is configured and returns a warning on failure.
func publishIndex(ctx context.Context, pub IndexPublisher, task tasks.DocumentIndexTask) string {
	if pub == nil {
		return ""
	}
	if err := pub.Publish(ctx, task); err != nil {
		return "index task not queued: " + err.Error()
	}
	return ""
}
