package service

import (
	"context"
	"fincra-wisdom/internal/model"
	"fincra-wisdom/internal/repository"
	"fincra-wisdom/pkg/log"
	"fincra-wisdom/pkg/tasks"
	"strings"
)

// CircleInput holds the editable fields of a circle.
type CircleInput struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

// DepartmentInput holds the editable fields of a department.
type DepartmentInput struct {
	CircleID      uint   `json:"circleId"`
	Name          string `json:"name"`
	TeamLead      string `json:"teamLead"`
	TeamLeadEmail string `json:"teamLeadEmail"`
	Description   string `json:"description"`
	Icon          string `json:"icon"`
}

// TaxonomyService manages circles and departments.
//
// Renames re-derive the slug but do not rewrite the circleName / departmentName
// copies held by departments, documents and suggestions.
type TaxonomyService interface {
	CreateCircle(ctx context.Context, in CircleInput) (*model.Circle, error)
	ListCircles(ctx context.Context) ([]model.Circle, error)
	GetCircle(ctx context.Context, slug string) (*model.Circle, error)
	UpdateCircle(ctx context.Context, id uint, in CircleInput) (*model.Circle, error)
	DeleteCircle(ctx context.Context, id uint) error

	CreateDepartment(ctx context.Context, in DepartmentInput) (*model.Department, error)
	GetDepartment(ctx context.Context, id uint) (*model.Department, error)
	ListDepartments(ctx context.Context, circleSlug string) ([]model.Department, error)
	UpdateDepartment(ctx context.Context, id uint, in DepartmentInput) (*model.Department, error)
	DeleteDepartment(ctx context.Context, id uint) error
}

type taxonomyService struct {
	circles     repository.CircleRepository
	departments repository.DepartmentRepository
	publisher   IndexPublisher
}

func NewTaxonomyService(circles repository.CircleRepository, departments repository.DepartmentRepository, publisher IndexPublisher) TaxonomyService {
	return &taxonomyService{circles: circles, departments: departments, publisher: publisher}
}

func (s *taxonomyService) CreateCircle(ctx context.Context, in CircleInput) (*model.Circle, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, InvalidInput("circle name is required")
	}
	circle := &model.Circle{
		Name:        name,
		Slug:        Slugify(name),
		Icon:        in.Icon,
		Color:       in.Color,
		Description: in.Description,
		Order:       in.Order,
	}
	if err := s.circles.Create(ctx, circle); err != nil {
		if isDuplicateKey(err) {
			return nil, Conflict("a circle with this name already exists")
		}
		return nil, Internal("failed to create circle", err)
	}
	circle.Departments = []model.Department{}
	return circle, nil
}

func (s *taxonomyService) ListCircles(ctx context.Context) ([]model.Circle, error) {
	circles, err := s.circles.FindAll(ctx)
	if err != nil {
		return nil, Internal("failed to list circles", err)
	}
	return circles, nil
}

func (s *taxonomyService) GetCircle(ctx context.Context, slug string) (*model.Circle, error) {
	circle, err := s.circles.FindBySlug(ctx, slug)
	if err != nil {
		return nil, lookupError("circle", err)
	}
	return circle, nil
}

func (s *taxonomyService) UpdateCircle(ctx context.Context, id uint, in CircleInput) (*model.Circle, error) {
	circle, err := s.circles.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError("circle", err)
	}
	if name := strings.TrimSpace(in.Name); name != "" && name != circle.Name {
		circle.Name = name
		circle.Slug = Slugify(name)
	}
	circle.Icon = in.Icon
	circle.Color = in.Color
	circle.Description = in.Description
	circle.Order = in.Order

	if err := s.circles.Update(ctx, circle); err != nil {
		if isDuplicateKey(err) {
			return nil, Conflict("a circle with this name already exists")
		}
		return nil, Internal("failed to update circle", err)
	}
	return circle, nil
}

func (s *taxonomyService) DeleteCircle(ctx context.Context, id uint) error {
	docIDs, err := s.circles.DeleteCascade(ctx, id)
	if err != nil {
		return lookupError("circle", err)
	}
	log.Infow("circle deleted", "circle_id", id, "documents_removed", len(docIDs))
	s.unindex(ctx, docIDs)
	return nil
}

func (s *taxonomyService) CreateDepartment(ctx context.Context, in DepartmentInput) (*model.Department, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.CircleID == 0 {
		return nil, InvalidInput("department name and circle are required")
	}
	circle, err := s.circles.FindByID(ctx, in.CircleID)
	if err != nil {
		return nil, lookupError("circle", err)
	}
	dept := &model.Department{
		Name:          name,
		Slug:          Slugify(name),
		CircleID:      circle.ID,
		CircleName:    circle.Name,
		TeamLead:      in.TeamLead,
		TeamLeadEmail: strings.ToLower(strings.TrimSpace(in.TeamLeadEmail)),
		Description:   in.Description,
		Icon:          in.Icon,
	}
	if err := s.departments.Create(ctx, dept); err != nil {
		if isDuplicateKey(err) {
			return nil, Conflict("a department with this name already exists in the circle")
		}
		return nil, Internal("failed to create department", err)
	}
	return dept, nil
}

func (s *taxonomyService) GetDepartment(ctx context.Context, id uint) (*model.Department, error) {
	dept, err := s.departments.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError("department", err)
	}
	return dept, nil
}

func (s *taxonomyService) ListDepartments(ctx context.Context, circleSlug string) ([]model.Department, error) {
	circle, err := s.circles.FindBySlug(ctx, circleSlug)
	if err != nil {
		return nil, lookupError("circle", err)
	}
	depts, err := s.departments.FindByCircle(ctx, circle.ID)
	if err != nil {
		return nil, Internal("failed to list departments", err)
	}
	return depts, nil
}

func (s *taxonomyService) UpdateDepartment(ctx context.Context, id uint, in DepartmentInput) (*model.Department, error) {
	dept, err := s.departments.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError("department", err)
	}
	if name := strings.TrimSpace(in.Name); name != "" && name != dept.Name {
		dept.Name = name
		dept.Slug = Slugify(name)
	}
	dept.TeamLead = in.TeamLead
	dept.TeamLeadEmail = strings.ToLower(strings.TrimSpace(in.TeamLeadEmail))
	dept.Description = in.Description
	dept.Icon = in.Icon

	if err := s.departments.Update(ctx, dept); err != nil {
		if isDuplicateKey(err) {
			return nil, Conflict("a department with this name already exists in the circle")
		}
		return nil, Internal("failed to update department", err)
	}
	return dept, nil
}

func (s *taxonomyService) DeleteDepartment(ctx context.Context, id uint) error {
	docIDs, err := s.departments.DeleteCascade(ctx, id)
	if err != nil {
		return lookupError("department", err)
	}
	log.Infow("department deleted", "department_id", id, "documents_removed", len(docIDs))
	s.unindex(ctx, docIDs)
	return nil
}

// unindex queues index removal for cascade-deleted documents.
func (s *taxonomyService) unindex(ctx context.Context, docIDs []uint) {
	for _, id := range docIDs {
		if w := publishIndex(ctx, s.publisher, tasks.DocumentIndexTask{DocumentID: id, Action: tasks.ActionDelete}); w != "" {
			log.Warnw("index removal not queued", "document_id", id, "warning", w)
		}
	}
}
