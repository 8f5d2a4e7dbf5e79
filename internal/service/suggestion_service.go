package service

import (
	"context"
	"errors"
	"fincra-wisdom/internal/model"
	"fincra-wisdom/internal/repository"
	"fincra-wisdom/pkg/log"
	"fincra-wisdom/pkg/mail"
	"fincra-wisdom/pkg/tasks"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const adminSuggestionsPath = "/admin/suggestions"

// WorkflowOptions configures the suggestion workflow. AdminEmails is the static
// recipient list for new-suggestion fan-out.
type WorkflowOptions struct {
	AdminEmails       []string
	SideEffectTimeout time.Duration
	AppBaseURL        string
}

// SuggestionInput is a user's document suggestion.
type SuggestionInput struct {
	Title        string
	CircleID     uint
	DepartmentID uint
	Category     string
	Description  string
	File         *UploadedFile
}

// SuggestionOutcome is the result of submitting or rejecting a suggestion. Warnings
// lists side effects that failed; they are logged and never fail the operation.
type SuggestionOutcome struct {
	Suggestion *model.SuggestedDocument
	Warnings   []string
}

// ApprovalOutcome is the result of promoting a suggestion.
type ApprovalOutcome struct {
	Document *model.Document
	Warnings []string
}

// SuggestionService runs the suggest, review and publish workflow.
type SuggestionService interface {
	Submit(ctx context.Context, input SuggestionInput, submitter *model.User) (*SuggestionOutcome, error)
	List(ctx context.Context, status string) ([]model.SuggestedDocument, error)
	Get(ctx context.Context, id uint) (*model.SuggestedDocument, error)
	Approve(ctx context.Context, id uint, admin *model.User) (*ApprovalOutcome, error)
	Reject(ctx context.Context, id uint, adminNotes string, admin *model.User) (*SuggestionOutcome, error)
}

type suggestionService struct {
	suggestions repository.SuggestionRepository
	circles     repository.CircleRepository
	departments repository.DepartmentRepository
	files       FileStorage
	notifier    NotificationService
	mailer      mail.Sender
	publisher   IndexPublisher
	opts        WorkflowOptions
	now         func() time.Time
}

// NewSuggestionService wires the workflow. publisher may be nil when indexing is disabled.
func NewSuggestionService(
	suggestions repository.SuggestionRepository,
	circles repository.CircleRepository,
	departments repository.DepartmentRepository,
	files FileStorage,
	notifier NotificationService,
	mailer mail.Sender,
	publisher IndexPublisher,
	opts WorkflowOptions,
) SuggestionService {
	if opts.SideEffectTimeout <= 0 {
		opts.SideEffectTimeout = 10 * time.Second
	}
	opts.AppBaseURL = strings.TrimRight(opts.AppBaseURL, "/")
	return &suggestionService{
		suggestions: suggestions,
		circles:     circles,
		departments: departments,
		files:       files,
		notifier:    notifier,
		mailer:      mailer,
		publisher:   publisher,
		opts:        opts,
		now:         time.Now,
	}
}

func (s *suggestionService) Submit(ctx context.Context, input SuggestionInput, submitter *model.User) (*SuggestionOutcome, error) {
	if input.File == nil || input.File.Reader == nil {
		return nil, InvalidInput("no file")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" || input.CircleID == 0 || input.DepartmentID == 0 {
		return nil, InvalidInput("missing required fields")
	}

	circle, dept, err := s.resolvePlacement(ctx, input.CircleID, input.DepartmentID)
	if err != nil {
		return nil, err
	}

	fileType, ok := model.FileTypeOf(input.File.Name)
	if !ok {
		return nil, InvalidInput("unsupported file type")
	}

	objectName := "suggestions/" + uuid.NewString() + "." + fileType
	uploaded, err := s.files.Upload(ctx, objectName, input.File.Reader, input.File.Size, input.File.ContentType)
	if err != nil {
		return nil, Internal("failed to store file", err)
	}

	suggestion := &model.SuggestedDocument{
		Title:          title,
		Slug:           Slugify(title),
		DepartmentID:   dept.ID,
		DepartmentName: dept.Name,
		CircleID:       circle.ID,
		CircleName:     circle.Name,
		FileURL:        uploaded.URL,
		FileName:       input.File.Name,
		FileType:       fileType,
		FileSize:       input.File.Size,
		StorageID:      uploaded.PublicID,
		Status:         model.SuggestionPending,
		Summary:        strings.TrimSpace(input.Description),
		Category:       model.NormalizeCategory(input.Category),
	}
	if submitter != nil {
		suggestion.SubmitterID = submitter.ID
		suggestion.SubmitterEmail = submitter.Email
	}

	if err := s.suggestions.Create(ctx, suggestion); err != nil {
		s.withSideEffectTimeout(ctx, func(ctx context.Context) {
			if delErr := s.files.Delete(ctx, uploaded.PublicID); delErr != nil {
				log.Warnw("failed to remove orphaned upload", "storage_id", uploaded.PublicID, "error", delErr)
			}
		})
		return nil, Internal("failed to save suggestion", err)
	}

	outcome := &SuggestionOutcome{Suggestion: suggestion}
	outcome.Warnings = s.notifyAdmins(ctx, suggestion, submitterLabel(submitter))
	s.logWarnings("submit", suggestion.ID, outcome.Warnings)
	return outcome, nil
}

// resolvePlacement loads the circle and department, requiring the department to
// belong to the circle.
func (s *suggestionService) resolvePlacement(ctx context.Context, circleID, departmentID uint) (*model.Circle, *model.Department, error) {
	circle, err := s.circles.FindByID(ctx, circleID)
	if err != nil {
		return nil, nil, lookupError("department or circle", err)
	}
	dept, err := s.departments.FindByID(ctx, departmentID)
	if err != nil {
		return nil, nil, lookupError("department or circle", err)
	}
	if dept.CircleID != circle.ID {
		return nil, nil, NotFound("department or circle")
	}
	return circle, dept, nil
}

// notifyAdmins fans out to every configured admin. Each recipient is isolated so one
// failure does not stop delivery to the rest.
func (s *suggestionService) notifyAdmins(ctx context.Context, sg *model.SuggestedDocument, submitter string) []string {
	var warnings []string
	title := "New document suggestion"
	message := fmt.Sprintf("%s suggested %q for %s.", submitter, sg.Title, sg.DepartmentName)

	for _, admin := range s.opts.AdminEmails {
		if w := s.notify(ctx, admin, title, message, adminSuggestionsPath); w != "" {
			warnings = append(warnings, w)
		}
		if w := s.sendNotice(ctx, admin, title+": "+sg.Title, mail.Notice{
			Heading:  title,
			Greeting: "Hello,",
			Body:     message,
			Notes:    sg.Summary,
			LinkURL:  s.opts.AppBaseURL + adminSuggestionsPath,
			LinkText: "Review suggestions",
		}); w != "" {
			warnings = append(warnings, w)
		}
	}
	return warnings
}

func (s *suggestionService) List(ctx context.Context, status string) ([]model.SuggestedDocument, error) {
	switch status {
	case "", model.SuggestionPending, model.SuggestionApproved, model.SuggestionRejected:
	default:
		return nil, InvalidInput("unknown suggestion status")
	}
	list, err := s.suggestions.FindAll(ctx, status)
	if err != nil {
		return nil, Internal("failed to list suggestions", err)
	}
	return list, nil
}

func (s *suggestionService) Get(ctx context.Context, id uint) (*model.SuggestedDocument, error) {
	sg, err := s.suggestions.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError("suggestion", err)
	}
	return sg, nil
}

func (s *suggestionService) Approve(ctx context.Context, id uint, admin *model.User) (*ApprovalOutcome, error) {
	if !admin.IsAdmin() {
		return nil, Forbidden("admin access required")
	}
	sg, err := s.suggestions.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError("suggestion", err)
	}
	if sg.Status == model.SuggestionRejected {
		return nil, InvalidInput("suggestion has been rejected")
	}
	if _, err := s.departments.FindByID(ctx, sg.DepartmentID); err != nil {
		return nil, lookupError("department or circle", err)
	}

	author := sg.SubmitterEmail
	if author == "" {
		author = "Unknown"
	}
	suggestionID := sg.ID
	doc := &model.Document{
		Title:          sg.Title,
		Slug:           sg.Slug,
		DepartmentID:   sg.DepartmentID,
		DepartmentName: sg.DepartmentName,
		CircleID:       sg.CircleID,
		CircleName:     sg.CircleName,
		FileURL:        sg.FileURL,
		FileName:       sg.FileName,
		FileType:       sg.FileType,
		FileSize:       sg.FileSize,
		StorageID:      sg.StorageID,
		Summary:        sg.Summary,
		Content:        sg.Summary,
		Author:         author,
		Version:        "1.0",
		Category:       model.NormalizeCategory(sg.Category),
		PublishedAt:    s.now(),
		SuggestionID:   &suggestionID,
	}
	doc.BuildSearchableText()

	if err := s.suggestions.Promote(ctx, sg.ID, doc); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, NotFound("suggestion")
		case isDuplicateKey(err):
			return nil, Conflict("suggestion already approved")
		default:
			return nil, Internal("failed to approve suggestion", err)
		}
	}

	outcome := &ApprovalOutcome{Document: doc}
	if sg.SubmitterEmail != "" {
		link := departmentLink(doc.DepartmentID)
		title := "Document suggestion approved"
		message := fmt.Sprintf("Your suggestion %q has been approved and published in %s.", doc.Title, doc.DepartmentName)
		if w := s.notify(ctx, sg.SubmitterEmail, title, message, link); w != "" {
			outcome.Warnings = append(outcome.Warnings, w)
		}
		if w := s.sendNotice(ctx, sg.SubmitterEmail, title+": "+doc.Title, mail.Notice{
			Heading:  title,
			Greeting: "Hello,",
			Body:     message,
			LinkURL:  s.opts.AppBaseURL + link,
			LinkText: "View department",
		}); w != "" {
			outcome.Warnings = append(outcome.Warnings, w)
		}
	}
	s.withSideEffectTimeout(ctx, func(ctx context.Context) {
		if w := publishIndex(ctx, s.publisher, tasks.DocumentIndexTask{DocumentID: doc.ID, Action: tasks.ActionIndex}); w != "" {
			outcome.Warnings = append(outcome.Warnings, w)
		}
	})

	s.logWarnings("approve", sg.ID, outcome.Warnings)
	log.Infow("suggestion approved", "suggestion_id", sg.ID, "document_id", doc.ID, "admin", admin.Email)
	return outcome, nil
}

func (s *suggestionService) Reject(ctx context.Context, id uint, adminNotes string, admin *model.User) (*SuggestionOutcome, error) {
	if !admin.IsAdmin() {
		return nil, Forbidden("admin access required")
	}
	sg, err := s.suggestions.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError("suggestion", err)
	}
	if sg.Status == model.SuggestionRejected {
		return nil, InvalidInput("suggestion has been rejected")
	}

	reviewedAt := s.now()
	sg.Status = model.SuggestionRejected
	sg.AdminNotes = strings.TrimSpace(adminNotes)
	sg.ReviewedBy = admin.Email
	sg.ReviewedAt = &reviewedAt
	if err := s.suggestions.Update(ctx, sg); err != nil {
		return nil, Internal("failed to reject suggestion", err)
	}

	outcome := &SuggestionOutcome{Suggestion: sg}
	if sg.StorageID != "" {
		s.withSideEffectTimeout(ctx, func(ctx context.Context) {
			if err := s.files.Delete(ctx, sg.StorageID); err != nil {
				outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("file %s not deleted: %v", sg.StorageID, err))
			}
		})
	}

	if sg.SubmitterEmail != "" {
		title := "Document suggestion rejected"
		message := fmt.Sprintf("Your suggestion %q was not approved.", sg.Title)
		if sg.AdminNotes != "" {
			message += " Reason: " + sg.AdminNotes
		}
		if w := s.notify(ctx, sg.SubmitterEmail, title, message, ""); w != "" {
			outcome.Warnings = append(outcome.Warnings, w)
		}
		if w := s.sendNotice(ctx, sg.SubmitterEmail, title+": "+sg.Title, mail.Notice{
			Heading:  title,
			Greeting: "Hello,",
			Body:     fmt.Sprintf("Your suggestion %q was not approved.", sg.Title),
			Notes:    sg.AdminNotes,
		}); w != "" {
			outcome.Warnings = append(outcome.Warnings, w)
		}
	}

	s.logWarnings("reject", sg.ID, outcome.Warnings)
	log.Infow("suggestion rejected", "suggestion_id", sg.ID, "admin", admin.Email)
	return outcome, nil
}

// notify creates one in-app notification within the side-effect timeout and returns
// a warning instead of an error.
func (s *suggestionService) notify(ctx context.Context, to, title, message, link string) string {
	var warning string
	s.withSideEffectTimeout(ctx, func(ctx context.Context) {
		if _, err := s.notifier.Notify(ctx, to, title, message, link); err != nil {
			warning = fmt.Sprintf("notification to %s failed: %v", to, err)
		}
	})
	return warning
}

// sendNotice renders and sends one email within the side-effect timeout and returns
// a warning instead of an error.
func (s *suggestionService) sendNotice(ctx context.Context, to, subject string, n mail.Notice) string {
	if s.mailer == nil {
		return ""
	}
	htmlBody, textBody, err := mail.RenderNotice(n)
	if err != nil {
		return fmt.Sprintf("email to %s not rendered: %v", to, err)
	}

	var warning string
	s.withSideEffectTimeout(ctx, func(ctx context.Context) {
		err := s.mailer.Send(ctx, mail.Message{To: []string{to}, Subject: subject, HTML: htmlBody, Text: textBody})
		if err != nil {
			warning = fmt.Sprintf("email to %s failed: %v", to, err)
		}
	})
	return warning
}

// withSideEffectTimeout runs fn with a bounded context that survives cancellation of
// the request context.
func (s *suggestionService) withSideEffectTimeout(ctx context.Context, fn func(ctx context.Context)) {
	sideCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.SideEffectTimeout)
	defer cancel()
	fn(sideCtx)
}

func (s *suggestionService) logWarnings(op string, suggestionID uint, warnings []string) {
	for _, w := range warnings {
		log.Warnw("suggestion side effect failed", "operation", op, "suggestion_id", suggestionID, "warning", w)
	}
}

func departmentLink(departmentID uint) string {
	return fmt.Sprintf("/departments/%d", departmentID)
}

func submitterLabel(u *model.User) string {
	switch {
	case u == nil:
		return "Someone"
	case u.Name != "":
		return u.Name + " (" + u.Email + ")"
	case u.Email != "":
		return u.Email
	default:
		return "Someone"
	}
}
