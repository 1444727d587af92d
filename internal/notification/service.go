package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fkhayef/librarycore/internal/apperror"
	"github.com/fkhayef/librarycore/internal/clock"
)

// Service handles notification business logic
type Service struct {
	repo   *Repository
	clock  clock.Clock
	logger zerolog.Logger
}

// NewService creates a new notification service
func NewService(repo *Repository, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		clock:  clk,
		logger: logger.With().Str("component", "notification").Logger(),
	}
}

// Notify creates a notification for recipientID about an entity
func (s *Service) Notify(ctx context.Context, recipientID, message string, entityType EntityType, entityID string) (*Notification, error) {
	et := string(entityType)
	n := &Notification{
		ID:                uuid.NewString(),
		RecipientID:       recipientID,
		Message:           message,
		RelatedEntityType: &et,
		RelatedEntityID:   &entityID,
		CreatedAt:         s.clock.Now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// TryNotify is Notify for best-effort callers: failures are logged, not
// returned
func (s *Service) TryNotify(ctx context.Context, recipientID, message string, entityType EntityType, entityID string) {
	if recipientID == "" {
		return
	}
	if _, err := s.Notify(ctx, recipientID, message, entityType, entityID); err != nil {
		s.logger.Warn().
			Err(err).
			Str("event", "notification_failed").
			Str("recipient_id", recipientID).
			Str("entity_type", string(entityType)).
			Str("entity_id", entityID).
			Msg("failed to deliver notification")
	}
}

// ListByRecipientID retrieves the notifications of an actor
func (s *Service) ListByRecipientID(ctx context.Context, recipientID string, page, perPage int, unreadOnly bool) ([]*Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByRecipientID(ctx, recipientID, perPage, offset, unreadOnly)
}

// MarkAsRead marks a notification as read. Other actors' notifications
// are reported as missing.
func (s *Service) MarkAsRead(ctx context.Context, id, actorID string) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("notification: %w", apperror.ErrNotFound)
	}
	if n.RecipientID != actorID {
		return apperror.ErrPermissionDenied
	}

	return s.repo.MarkAsRead(ctx, id)
}

// MarkAllAsRead marks all notifications as read for an actor
func (s *Service) MarkAllAsRead(ctx context.Context, actorID string) error {
	return s.repo.MarkAllAsRead(ctx, actorID)
}

// GetUnreadCount returns the count of unread notifications
func (s *Service) GetUnreadCount(ctx context.Context, actorID string) (int, error) {
	return s.repo.GetUnreadCount(ctx, actorID)
}
