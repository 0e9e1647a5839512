package notification

import (
	"encoding/json"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	apperrors "storage-marketplace/internal"
	notificationmodel "storage-marketplace/internal/core/datamodel/notification"
)

type Repository interface {
	Create(n *notificationmodel.Notification) error
	GetByID(id int64) (*notificationmodel.Notification, error)
	GetByRecipient(recipientID int64, limit int) ([]*notificationmodel.Notification, error)
	MarkActionCompleted(id int64) (bool, error)
}

// Service persists notifications and guards notification-triggered admin
// actions. Delivery to devices is out of scope; rows in the notification log
// are the system of record.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Notify(recipientID int64, title, message, category, priority string, metadata map[string]interface{}) (*notificationmodel.Notification, error) {
	var raw json.RawMessage
	if metadata != nil {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to encode notification metadata", err)
		}
		raw = encoded
	}

	n := &notificationmodel.Notification{
		RecipientID: recipientID,
		Title:       title,
		Message:     message,
		Category:    category,
		Priority:    priority,
		Metadata:    raw,
	}
	if err := s.repo.Create(n); err != nil {
		s.logger.Error("failed to create notification", "error", err, "recipient_id", recipientID, "category", category)
		return nil, apperrors.NewInternalError("failed to create notification", err)
	}

	s.logger.Info("notification created",
		"notification_id", n.ID,
		"recipient_id", recipientID,
		"category", category,
		"priority", priority)
	return n, nil
}

func (s *Service) ListByRecipient(recipientID int64, limit int) ([]*notificationmodel.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	notifications, err := s.repo.GetByRecipient(recipientID, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list notifications", err)
	}
	return notifications, nil
}

func (s *Service) GetByID(id int64) (*notificationmodel.Notification, error) {
	n, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("Notification not found", apperrors.ErrCodeValidationFailed)
		}
		return nil, apperrors.NewInternalError("failed to load notification", err)
	}
	return n, nil
}

// CompleteAction flips the action_completed flag exactly once. The second and
// later attempts return ErrActionAlreadyDone, which is how repeated admin
// clicks on the same notification are rejected.
func (s *Service) CompleteAction(notificationID int64) error {
	flipped, err := s.repo.MarkActionCompleted(notificationID)
	if err != nil {
		s.logger.Error("failed to mark notification action completed", "error", err, "notification_id", notificationID)
		return apperrors.NewInternalError("failed to complete notification action", err)
	}
	if !flipped {
		return apperrors.ErrActionAlreadyDone
	}
	s.logger.Info("notification action completed", "notification_id", notificationID)
	return nil
}
