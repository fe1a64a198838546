package service

import (
	"context"
	"log/slog"

	"snapgram/internal/cache"
	"snapgram/internal/models"
	"snapgram/internal/notifications"
	"snapgram/internal/observability"
	"snapgram/internal/repository"
)

// NotifyInput describes one notification. Sender is the acting user and is
// embedded in the live event so clients can render it without a fetch.
type NotifyInput struct {
	RecipientID uint
	Sender      models.User
	Type        models.NotificationType
	PostID      *uint
	Text        string
}

// NotificationService stores notifications and pushes them to live clients.
type NotificationService struct {
	repo      repository.NotificationRepository
	publisher Publisher
}

func NewNotificationService(repo repository.NotificationRepository, publisher Publisher) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher}
}

// Notify inserts the notification, then publishes it best-effort. A failed
// publish is logged and counted; the stored row is kept.
func (s *NotificationService) Notify(ctx context.Context, in NotifyInput) (*models.Notification, error) {
	ctx, end := observability.StartSpan(ctx, "notification.notify")
	n := &models.Notification{
		RecipientID: in.RecipientID,
		SenderID:    in.Sender.ID,
		Type:        in.Type,
		PostID:      in.PostID,
		Text:        truncate(in.Text, 250),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		end(err)
		return nil, err
	}
	end(nil)
	cache.InvalidateUnread(ctx, in.RecipientID)
	observability.NotificationsCreated.WithLabelValues(string(in.Type)).Inc()

	n.Sender = in.Sender.Public()
	s.push(ctx, n)
	return n, nil
}

func (s *NotificationService) push(ctx context.Context, n *models.Notification) {
	if s.publisher == nil {
		return
	}
	payload, err := notifications.Event{Type: notifications.EventNewNotification, Payload: n}.Encode()
	if err == nil {
		err = s.publisher.PublishUser(ctx, n.RecipientID, payload)
	}
	if err != nil {
		observability.LivePushFailures.Inc()
		slog.WarnContext(ctx, "live push failed",
			"notification_id", n.ID, "recipient_id", n.RecipientID, "error", err)
	}
}

// List returns the latest notifications for userID with the unread count.
// The count is cache-aside and dropped whenever it can change.
func (s *NotificationService) List(ctx context.Context, userID uint) ([]models.Notification, int64, error) {
	items, err := s.repo.ListForRecipient(ctx, userID, NotificationListLimit)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return items, unread, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var unread int64
	err := cache.Aside(ctx, cache.UnreadKey(userID), &unread, cache.UnreadTTL, func() error {
		n, err := s.repo.CountUnread(ctx, userID)
		unread = n
		return err
	})
	return unread, err
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	cache.InvalidateUnread(ctx, userID)
	return n, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	if err := s.repo.MarkRead(ctx, userID, notificationID); err != nil {
		return err
	}
	cache.InvalidateUnread(ctx, userID)
	return nil
}
