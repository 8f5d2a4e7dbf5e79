package repository

import (
	"context"
	"fincra-wisdom/internal/model"

	"gorm.io/gorm"
)

// SuggestionRepository persists suggested documents.
type SuggestionRepository interface {
	Create(ctx context.Context, s *model.SuggestedDocument) error
	FindByID(ctx context.Context, id uint) (*model.SuggestedDocument, error)
	// FindAll lists suggestions newest first, optionally filtered by status.
	FindAll(ctx context.Context, status string) ([]model.SuggestedDocument, error)
	Update(ctx context.Context, s *model.SuggestedDocument) error
	Delete(ctx context.Context, id uint) error
	// Promote publishes doc, increments its department's count and deletes the
	// suggestion in one transaction. On error nothing is changed.
	Promote(ctx context.Context, suggestionID uint, doc *model.Document) error
}

type suggestionRepository struct {
	db *gorm.DB
}

func NewSuggestionRepository(db *gorm.DB) SuggestionRepository {
	return &suggestionRepository{db: db}
}

func (r *suggestionRepository) Create(ctx context.Context, s *model.SuggestedDocument) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *suggestionRepository) FindByID(ctx context.Context, id uint) (*model.SuggestedDocument, error) {
	var s model.SuggestedDocument
	err := r.db.WithContext(ctx).First(&s, id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *suggestionRepository) FindAll(ctx context.Context, status string) ([]model.SuggestedDocument, error) {
	var out []model.SuggestedDocument
	db := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if status != "" {
		db = db.Where("status = ?", status)
	}
	err := db.Find(&out).Error
	return out, err
}

func (r *suggestionRepository) Update(ctx context.Context, s *model.SuggestedDocument) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *suggestionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.SuggestedDocument{}, id).Error
}

func (r *suggestionRepository) Promote(ctx context.Context, suggestionID uint, doc *model.Document) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		if err := incrementDocumentCount(tx, doc.DepartmentID); err != nil {
			return err
		}
		res := tx.Delete(&model.SuggestedDocument{}, suggestionID)
		if res.Error != nil {
			return res.Error
		}
		// Another request promoted it first.
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
