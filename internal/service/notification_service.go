package service

import (
	"context"
	"fmt"
	"time"

	"teamwear/internal/model"
	"teamwear/internal/repository"

	"github.com/google/uuid"
)

type NotificationResponse struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	Title         string  `json:"title"`
	Message       string  `json:"message"`
	RelatedTaskID *string `json:"related_task_id"`
	Read          bool    `json:"read"`
	CreatedAt     string  `json:"created_at"`
}

type NotificationService interface {
	List(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) List(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	items, total, err := s.repo.ListForUser(ctx, uid, unreadOnly, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	result := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		result = append(result, toNotificationResponse(n))
	}
	return result, total, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return 0, err
	}
	count, err := s.repo.CountUnread(ctx, uid)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// MarkRead only touches notifications addressed to userID; anything else is
// reported as not found.
func (s *notificationService) MarkRead(ctx context.Context, id, userID string) error {
	nid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid notification id", ErrInvalidInput)
	}
	uid, err := parseUserID(userID)
	if err != nil {
		return err
	}
	ok, err := s.repo.MarkRead(ctx, nid, uid)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.MarkAllRead(ctx, uid)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}

func toNotificationResponse(n model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:            n.ID.String(),
		Type:          n.Type,
		Title:         n.Title,
		Message:       n.Message,
		RelatedTaskID: optionalString(n.RelatedTaskID),
		Read:          n.Read,
		CreatedAt:     n.CreatedAt.Format(time.RFC3339),
	}
}
