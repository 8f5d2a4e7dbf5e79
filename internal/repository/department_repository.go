package repository

import (
	"context"
	"fincra-wisdom/internal/model"

	"gorm.io/gorm"
)

// DepartmentRepository persists departments.
type DepartmentRepository interface {
	Create(ctx context.Context, dept *model.Department) error
	FindByID(ctx context.Context, id uint) (*model.Department, error)
	FindByCircle(ctx context.Context, circleID uint) ([]model.Department, error)
	Update(ctx context.Context, dept *model.Department) error
	// DeleteCascade removes the department and its documents in one transaction and
	// returns the ids of the deleted documents.
	DeleteCascade(ctx context.Context, id uint) ([]uint, error)
}

type departmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) DepartmentRepository {
	return &departmentRepository{db: db}
}

func (r *departmentRepository) Create(ctx context.Context, dept *model.Department) error {
	return r.db.WithContext(ctx).Create(dept).Error
}

func (r *departmentRepository) FindByID(ctx context.Context, id uint) (*model.Department, error) {
	var dept model.Department
	err := r.db.WithContext(ctx).First(&dept, id).Error
	if err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepository) FindByCircle(ctx context.Context, circleID uint) ([]model.Department, error) {
	var depts []model.Department
	err := r.db.WithContext(ctx).Where("circle_id = ?", circleID).Order("name ASC").Find(&depts).Error
	return depts, err
}

// Update saves the editable columns. DocumentCount is owned by incrementDocumentCount
// and is never written from a possibly stale struct.
func (r *departmentRepository) Update(ctx context.Context, dept *model.Department) error {
	return r.db.WithContext(ctx).Model(dept).
		Select("Name", "Slug", "TeamLead", "TeamLeadEmail", "Description", "Icon").
		Updates(dept).Error
}

func (r *departmentRepository) DeleteCascade(ctx context.Context, id uint) ([]uint, error) {
	var docIDs []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dept model.Department
		if err := tx.Select("id").First(&dept, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Document{}).Where("department_id = ?", id).Pluck("id", &docIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("department_id = ?", id).Delete(&model.Document{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Department{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return docIDs, nil
}

// incrementDocumentCount adds one to the department's counter in SQL. A missing
// department yields gorm.ErrRecordNotFound so the surrounding transaction rolls back.
func incrementDocumentCount(tx *gorm.DB, departmentID uint) error {
	res := tx.Model(&model.Department{}).
		Where("id = ?", departmentID).
		UpdateColumn("document_count", gorm.Expr("document_count + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
