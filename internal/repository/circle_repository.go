package repository

import (
	"context"
	"fincra-wisdom/internal/model"

	"gorm.io/gorm"
)

// CircleRepository persists circles.
type CircleRepository interface {
	Create(ctx context.Context, circle *model.Circle) error
	FindAll(ctx context.Context) ([]model.Circle, error)
	FindByID(ctx context.Context, id uint) (*model.Circle, error)
	FindBySlug(ctx context.Context, slug string) (*model.Circle, error)
	Update(ctx context.Context, circle *model.Circle) error
	// DeleteCascade removes the circle with every department and document under it
	// in one transaction and returns the ids of the deleted documents.
	DeleteCascade(ctx context.Context, id uint) ([]uint, error)
}

type circleRepository struct {
	db *gorm.DB
}

func NewCircleRepository(db *gorm.DB) CircleRepository {
	return &circleRepository{db: db}
}

func preloadDepartments(db *gorm.DB) *gorm.DB {
	return db.Order("departments.name ASC")
}

func (r *circleRepository) Create(ctx context.Context, circle *model.Circle) error {
	return r.db.WithContext(ctx).Create(circle).Error
}

// FindAll lists circles by display order then name, each with its departments.
func (r *circleRepository) FindAll(ctx context.Context) ([]model.Circle, error) {
	var circles []model.Circle
	err := r.db.WithContext(ctx).
		Preload("Departments", preloadDepartments).
		Order("sort_order ASC").Order("name ASC").
		Find(&circles).Error
	return circles, err
}

func (r *circleRepository) FindByID(ctx context.Context, id uint) (*model.Circle, error) {
	var circle model.Circle
	err := r.db.WithContext(ctx).First(&circle, id).Error
	if err != nil {
		return nil, err
	}
	return &circle, nil
}

func (r *circleRepository) FindBySlug(ctx context.Context, slug string) (*model.Circle, error) {
	var circle model.Circle
	err := r.db.WithContext(ctx).
		Preload("Departments", preloadDepartments).
		Where("slug = ?", slug).
		First(&circle).Error
	if err != nil {
		return nil, err
	}
	return &circle, nil
}

// Update saves the circle's own columns; departments are left untouched.
func (r *circleRepository) Update(ctx context.Context, circle *model.Circle) error {
	return r.db.WithContext(ctx).Omit("Departments").Save(circle).Error
}

func (r *circleRepository) DeleteCascade(ctx context.Context, id uint) ([]uint, error) {
	var docIDs []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var circle model.Circle
		if err := tx.Select("id").First(&circle, id).Error; err != nil {
			return err
		}

		deptIDs := tx.Model(&model.Department{}).Select("id").Where("circle_id = ?", id)
		if err := tx.Model(&model.Document{}).Where("department_id IN (?)", deptIDs).Pluck("id", &docIDs).Error; err != nil {
			return err
		}
		if len(docIDs) > 0 {
			if err := tx.Where("id IN ?", docIDs).Delete(&model.Document{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("circle_id = ?", id).Delete(&model.Department{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Circle{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return docIDs, nil
}
