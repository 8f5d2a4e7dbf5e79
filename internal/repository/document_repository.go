package repository

import (
	"context"
	"fincra-wisdom/internal/model"
	"strings"
	"time"

	"gorm.io/gorm"
)

// DocumentRepository persists published documents.
type DocumentRepository interface {
	// CreateWithCount inserts doc and bumps its department's documentCount atomically.
	CreateWithCount(ctx context.Context, doc *model.Document) error
	FindByID(ctx context.Context, id uint) (*model.Document, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Document, error)
	FindByDepartment(ctx context.Context, departmentID uint) ([]model.Document, error)
	IncrementViews(ctx context.Context, id uint, at time.Time) error
	IncrementDownloads(ctx context.Context, id uint) error
	Recent(ctx context.Context, limit int) ([]model.Document, error)
	Popular(ctx context.Context, limit int) ([]model.Document, error)
	// Search is the keyword fallback used when Elasticsearch is not configured.
	Search(ctx context.Context, query string, limit int) ([]model.Document, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// listColumns leaves out the large text columns for list views.
var listColumns = []string{
	"id", "title", "slug", "department_id", "department_name", "circle_id", "circle_name",
	"file_url", "file_name", "file_type", "file_size", "summary", "author", "version", "tags",
	"category", "view_count", "download_count", "last_viewed_at", "published_at",
	"suggestion_id", "created_at", "updated_at",
}

func (r *documentRepository) CreateWithCount(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		return incrementDocumentCount(tx, doc.DepartmentID)
	})
}

func (r *documentRepository) FindByID(ctx context.Context, id uint) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).First(&doc, id).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindByIDs loads the documents in ids, keeping the order of ids and skipping missing ones.
func (r *documentRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Document, error) {
	if len(ids) == 0 {
		return []model.Document{}, nil
	}
	var docs []model.Document
	if err := r.db.WithContext(ctx).Select(listColumns).Where("id IN ?", ids).Find(&docs).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]model.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	ordered := make([]model.Document, 0, len(docs))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			ordered = append(ordered, d)
		}
	}
	return ordered, nil
}

func (r *documentRepository) FindByDepartment(ctx context.Context, departmentID uint) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).Select(listColumns).
		Where("department_id = ?", departmentID).
		Order("published_at DESC").
		Find(&docs).Error
	return docs, err
}

func (r *documentRepository) IncrementViews(ctx context.Context, id uint, at time.Time) error {
	return r.bump(ctx, id, map[string]interface{}{
		"view_count":     gorm.Expr("view_count + ?", 1),
		"last_viewed_at": at,
	})
}

func (r *documentRepository) IncrementDownloads(ctx context.Context, id uint) error {
	return r.bump(ctx, id, map[string]interface{}{
		"download_count": gorm.Expr("download_count + ?", 1),
	})
}

func (r *documentRepository) bump(ctx context.Context, id uint, cols map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", id).UpdateColumns(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *documentRepository) Recent(ctx context.Context, limit int) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).Select(listColumns).Order("published_at DESC").Limit(limit).Find(&docs).Error
	return docs, err
}

func (r *documentRepository) Popular(ctx context.Context, limit int) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).Select(listColumns).
		Order("view_count DESC").Order("published_at DESC").
		Limit(limit).Find(&docs).Error
	return docs, err
}

func (r *documentRepository) Search(ctx context.Context, query string, limit int) ([]model.Document, error) {
	db := r.db.WithContext(ctx).Select(listColumns)
	for _, term := range strings.Fields(strings.ToLower(query)) {
		like := "%" + escapeLike(term) + "%"
		db = db.Where("(LOWER(title) LIKE ? OR LOWER(summary) LIKE ? OR searchable_text LIKE ?)", like, like, like)
	}
	var docs []model.Document
	err := db.Order("view_count DESC").Order("published_at DESC").Limit(limit).Find(&docs).Error
	return docs, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
