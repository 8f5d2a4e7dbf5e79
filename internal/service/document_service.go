package service

import (
	"bytes"
	"context"
	"fincra-wisdom/internal/model"
	"fincra-wisdom/internal/repository"
	"fincra-wisdom/pkg/log"
	"fincra-wisdom/pkg/tasks"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 10
	maxListLimit     = 50
	downloadURLTTL   = time.Hour
)

// TextExtractor pulls plain text out of an uploaded file. *tika.Client implements it.
type TextExtractor interface {
	Enabled() bool
	ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error)
}

// DocumentUploadInput is an admin's direct upload of a published document.
type DocumentUploadInput struct {
	Title        string
	DepartmentID uint
	Category     string
	Summary      string
	Tags         []string
	Author       string
	Version      string
	File         *UploadedFile
}

// DownloadInfo is a time-limited link to a document's file.
type DownloadInfo struct {
	URL       string    `json:"url"`
	FileName  string    `json:"fileName"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// DocumentService serves published documents.
type DocumentService interface {
	Upload(ctx context.Context, input DocumentUploadInput, uploader *model.User) (*model.Document, error)
	ListByDepartment(ctx context.Context, departmentID uint) ([]model.Document, error)
	View(ctx context.Context, id uint) (*model.Document, error)
	Download(ctx context.Context, id uint) (*DownloadInfo, error)
	Recent(ctx context.Context, limit int) ([]model.Document, error)
	Popular(ctx context.Context, limit int) ([]model.Document, error)
}

type documentService struct {
	documents   repository.DocumentRepository
	departments repository.DepartmentRepository
	files       FileStorage
	extractor   TextExtractor
	publisher   IndexPublisher
	now         func() time.Time
}

// NewDocumentService wires the document service. extractor and publisher may be nil.
func NewDocumentService(
	documents repository.DocumentRepository,
	departments repository.DepartmentRepository,
	files FileStorage,
	extractor TextExtractor,
	publisher IndexPublisher,
) DocumentService {
	return &documentService{
		documents:   documents,
		departments: departments,
		files:       files,
		extractor:   extractor,
		publisher:   publisher,
		now:         time.Now,
	}
}

func (s *documentService) Upload(ctx context.Context, input DocumentUploadInput, uploader *model.User) (*model.Document, error) {
	if !uploader.IsAdmin() {
		return nil, Forbidden("admin access required")
	}
	if input.File == nil || input.File.Reader == nil {
		return nil, InvalidInput("no file")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" || input.DepartmentID == 0 {
		return nil, InvalidInput("missing required fields")
	}
	fileType, ok := model.FileTypeOf(input.File.Name)
	if !ok {
		return nil, InvalidInput("unsupported file type")
	}
	dept, err := s.departments.FindByID(ctx, input.DepartmentID)
	if err != nil {
		return nil, lookupError("department", err)
	}

	// The body is read once and reused for storage and text extraction.
	data, err := io.ReadAll(input.File.Reader)
	if err != nil {
		return nil, InvalidInput("could not read uploaded file")
	}

	objectName := "documents/" + uuid.NewString() + "." + fileType
	uploaded, err := s.files.Upload(ctx, objectName, bytes.NewReader(data), int64(len(data)), input.File.ContentType)
	if err != nil {
		return nil, Internal("failed to store file", err)
	}

	author := strings.TrimSpace(input.Author)
	if author == "" {
		author = uploader.Email
	}
	version := strings.TrimSpace(input.Version)
	if version == "" {
		version = "1.0"
	}
	summary := strings.TrimSpace(input.Summary)
	doc := &model.Document{
		Title:          title,
		Slug:           Slugify(title),
		DepartmentID:   dept.ID,
		DepartmentName: dept.Name,
		CircleID:       dept.CircleID,
		CircleName:     dept.CircleName,
		FileURL:        uploaded.URL,
		FileName:       input.File.Name,
		FileType:       fileType,
		FileSize:       int64(len(data)),
		StorageID:      uploaded.PublicID,
		Content:        summary,
		Summary:        summary,
		Author:         author,
		Version:        version,
		Tags:           cleanTags(input.Tags),
		Category:       model.NormalizeCategory(input.Category),
		PublishedAt:    s.now(),
	}
	if text := s.extractText(ctx, data, input.File.Name); text != "" {
		doc.Content = text
	}
	doc.BuildSearchableText()

	if err := s.documents.CreateWithCount(ctx, doc); err != nil {
		if delErr := s.files.Delete(ctx, uploaded.PublicID); delErr != nil {
			log.Warnw("failed to remove orphaned upload", "storage_id", uploaded.PublicID, "error", delErr)
		}
		return nil, Internal("failed to save document", err)
	}

	if w := publishIndex(ctx, s.publisher, tasks.DocumentIndexTask{DocumentID: doc.ID, Action: tasks.ActionIndex}); w != "" {
		log.Warnw("document upload side effect failed", "document_id", doc.ID, "warning", w)
	}
	log.Infow("document uploaded", "document_id", doc.ID, "department_id", dept.ID, "uploader", uploader.Email)
	return doc, nil
}

// extractText returns "" when extraction is disabled or fails; it never fails the upload.
func (s *documentService) extractText(ctx context.Context, data []byte, fileName string) string {
	if s.extractor == nil || !s.extractor.Enabled() {
		return ""
	}
	text, err := s.extractor.ExtractText(ctx, bytes.NewReader(data), fileName)
	if err != nil {
		log.Warnw("text extraction failed", "file_name", fileName, "error", err)
		return ""
	}
	return text
}

func (s *documentService) ListByDepartment(ctx context.Context, departmentID uint) ([]model.Document, error) {
	if _, err := s.departments.FindByID(ctx, departmentID); err != nil {
		return nil, lookupError("department", err)
	}
	docs, err := s.documents.FindByDepartment(ctx, departmentID)
	if err != nil {
		return nil, Internal("failed to list documents", err)
	}
	return docs, nil
}

// View counts a view and returns the full document.
func (s *documentService) View(ctx context.Context, id uint) (*model.Document, error) {
	if err := s.documents.IncrementViews(ctx, id, s.now()); err != nil {
		return nil, lookupError("document", err)
	}
	doc, err := s.documents.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError("document", err)
	}
	return doc, nil
}

// Download counts a download and returns a presigned URL for the file.
func (s *documentService) Download(ctx context.Context, id uint) (*DownloadInfo, error) {
	doc, err := s.documents.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError("document", err)
	}
	if err := s.documents.IncrementDownloads(ctx, id); err != nil {
		return nil, lookupError("document", err)
	}

	info := &DownloadInfo{URL: doc.FileURL, FileName: doc.FileName}
	if doc.StorageID == "" {
		return info, nil
	}
	url, err := s.files.DownloadURL(ctx, doc.StorageID, doc.FileName, downloadURLTTL)
	if err != nil {
		return nil, Internal("failed to create download link", err)
	}
	info.URL = url
	info.ExpiresAt = s.now().Add(downloadURLTTL)
	return info, nil
}

func (s *documentService) Recent(ctx context.Context, limit int) ([]model.Document, error) {
	docs, err := s.documents.Recent(ctx, clampLimit(limit))
	if err != nil {
		return nil, Internal("failed to list documents", err)
	}
	return docs, nil
}

func (s *documentService) Popular(ctx context.Context, limit int) ([]model.Document, error) {
	docs, err := s.documents.Popular(ctx, clampLimit(limit))
	if err != nil {
		return nil, Internal("failed to list documents", err)
	}
	return docs, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func cleanTags(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		for _, tag := range strings.Split(raw, ",") {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}
