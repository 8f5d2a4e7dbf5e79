package service

import (
	"context"
	"fincra-wisdom/internal/model"
	"fincra-wisdom/internal/repository"
	"strings"
)

// inboxLimit caps how many notifications ListForRecipient returns.
const inboxLimit = 50

// NotificationService creates in-app notifications and manages their read state.
type NotificationService interface {
	Notify(ctx context.Context, recipientEmail, title, message, link string) (*model.Notification, error)
	ListForRecipient(ctx context.Context, email string) ([]model.Notification, error)
	UnreadCount(ctx context.Context, email string) (int64, error)
	MarkAsRead(ctx context.Context, id uint, email string) (*model.Notification, error)
	MarkAllAsRead(ctx context.Context, email string) (int64, error)
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

// Notify stores one unread notification. Callers treat its failure as best-effort.
func (s *notificationService) Notify(ctx context.Context, recipientEmail, title, message, link string) (*model.Notification, error) {
	recipientEmail = strings.ToLower(strings.TrimSpace(recipientEmail))
	if recipientEmail == "" {
		return nil, InvalidInput("recipient email is required")
	}
	n := &model.Notification{
		RecipientEmail: recipientEmail,
		Title:          title,
		Message:        message,
		Link:           link,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, Internal("failed to create notification", err)
	}
	return n, nil
}

func (s *notificationService) ListForRecipient(ctx context.Context, email string) ([]model.Notification, error) {
	list, err := s.repo.FindByRecipient(ctx, strings.ToLower(email), inboxLimit)
	if err != nil {
		return nil, Internal("failed to list notifications", err)
	}
	return list, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, email string) (int64, error) {
	count, err := s.repo.CountUnread(ctx, strings.ToLower(email))
	if err != nil {
		return 0, Internal("failed to count notifications", err)
	}
	return count, nil
}

// MarkAsRead marks one of the recipient's notifications read. Ids owned by another
// recipient are reported as NotFound. Marking a read notification again is a no-op.
func (s *notificationService) MarkAsRead(ctx context.Context, id uint, email string) (*model.Notification, error) {
	email = strings.ToLower(email)
	n, err := s.repo.FindForRecipient(ctx, id, email)
	if err != nil {
		return nil, lookupError("notification", err)
	}
	if n.Read {
		return n, nil
	}
	if err := s.repo.MarkRead(ctx, id, email); err != nil {
		return nil, Internal("failed to update notification", err)
	}
	n.Read = true
	return n, nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, email string) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, strings.ToLower(email))
	if err != nil {
		return 0, Internal("failed to update notifications", err)
	}
	return updated, nil
}
