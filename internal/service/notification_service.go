package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/helpdesk-io/ticketing-service/internal/domain"
	"github.com/helpdesk-io/ticketing-service/internal/events"
	"github.com/helpdesk-io/ticketing-service/internal/repository"
	apperrors "github.com/helpdesk-io/ticketing-service/pkg/util"
)

const recentNotificationLimit = 20

// DeliveryQueue hands persisted notifications to the background email worker.
// Enqueue is fire-and-forget: delivery failures never affect ticket writes.
type DeliveryQueue interface {
	EnqueueDelivery(notificationID string)
}

// UnreadCache caches per-user unread counts; all methods are best-effort.
type UnreadCache interface {
	Get(ctx context.Context, userID string) (int, bool)
	Set(ctx context.Context, userID string, count int)
	Invalidate(ctx context.Context, userID string)
}

// NotificationService turns domain events into per-recipient notifications
// and serves the read API. Recipients are derived per event type, always
// deduplicated and never including the actor.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	queue         DeliveryQueue
	cache         UnreadCache
	logger        *zap.Logger
}

func NewNotificationService(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	queue DeliveryQueue,
	cache UnreadCache,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		queue:         queue,
		cache:         cache,
		logger:        logger,
	}
}

// RegisterHandlers subscribes the service to every ticket event.
func (s *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, s.handleTicketCreated)
	dispatcher.Subscribe(events.EventTicketStatusChanged, s.handleStatusChanged)
	dispatcher.Subscribe(events.EventTicketAssigned, s.handleAssigned)
	dispatcher.Subscribe(events.EventTicketCommentAdded, s.handleCommentAdded)
}

// ListRecent returns the user's most recent notifications, newest first.
func (s *NotificationService) ListRecent(ctx context.Context, userID string) ([]domain.Notification, error) {
	notifications, err := s.notifications.ListRecentByUser(ctx, userID, recentNotificationLimit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return notifications, nil
}

// UnreadCount returns the number of unread notifications, served from cache
// when fresh.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	if count, ok := s.cache.Get(ctx, userID); ok {
		return count, nil
	}
	count, err := s.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	s.cache.Set(ctx, userID, count)
	return count, nil
}

// MarkRead marks a single notification as read. Notifications belonging to
// other users, and malformed identifiers, surface as not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if _, err := uuid.Parse(notificationID); err != nil {
		return apperrors.NewNotFound("notification", map[string]any{"notification_id": notificationID})
	}
	if err := s.notifications.MarkRead(ctx, notificationID, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("notification", map[string]any{"notification_id": notificationID})
		}
		return apperrors.MapError(err)
	}
	s.cache.Invalidate(ctx, userID)
	return nil
}

// MarkAllRead marks every unread notification of the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.notifications.MarkAllRead(ctx, userID); err != nil {
		return apperrors.MapError(err)
	}
	s.cache.Invalidate(ctx, userID)
	return nil
}

func (s *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	staff, err := s.users.ListByRoles(ctx, []domain.Role{domain.RoleAdmin, domain.RoleAutomationTeam})
	if err != nil {
		s.logger.Error("listing staff for notification fan-out failed", zap.Error(err))
		return err
	}
	recipients := make([]string, 0, len(staff))
	for _, member := range staff {
		recipients = append(recipients, member.ID)
	}
	s.deliver(ctx, event, recipients,
		fmt.Sprintf("New Ticket: %s", payload.Title),
		fmt.Sprintf("A new ticket has been created by %s", event.Actor.Name),
		domain.ChannelBoth,
	)
	return nil
}

func (s *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	var recipients []string
	if payload.CreatorID != nil {
		recipients = append(recipients, *payload.CreatorID)
	}
	s.deliver(ctx, event, recipients,
		fmt.Sprintf("Status Update: %s", payload.Title),
		fmt.Sprintf("Your ticket status changed from %s to %s by %s", payload.OldStatus, payload.NewStatus, event.Actor.Name),
		domain.ChannelBoth,
	)
	return nil
}

func (s *NotificationService) handleAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	s.deliver(ctx, event, []string{payload.AssigneeID},
		fmt.Sprintf("Ticket Assigned: %s", payload.Title),
		fmt.Sprintf("You have been assigned to this ticket by %s", event.Actor.Name),
		domain.ChannelBoth,
	)
	return nil
}

func (s *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCommentAddedPayload)
	if !ok {
		return nil
	}
	var recipients []string
	if payload.CreatorID != nil {
		recipients = append(recipients, *payload.CreatorID)
	}
	if payload.AssigneeID != nil {
		recipients = append(recipients, *payload.AssigneeID)
	}

	channel := domain.ChannelBoth
	message := fmt.Sprintf("%s added a comment", event.Actor.Name)
	if payload.CommentType == domain.CommentTypeInternal {
		// Internal notes loop in the whole staff, on screen only.
		channel = domain.ChannelOnScreen
		message = fmt.Sprintf("%s added an internal note", event.Actor.Name)
		staff, err := s.users.ListByRoles(ctx, []domain.Role{domain.RoleAdmin, domain.RoleAutomationTeam})
		if err != nil {
			s.logger.Error("listing staff for notification fan-out failed", zap.Error(err))
			return err
		}
		for _, member := range staff {
			recipients = append(recipients, member.ID)
		}
	}
	s.deliver(ctx, event, recipients,
		fmt.Sprintf("New Comment on: %s", payload.Title),
		message,
		channel,
	)
	return nil
}

// deliver persists one notification per unique recipient, skipping the actor,
// then invalidates unread caches and enqueues email delivery where the
// channel calls for it.
func (s *NotificationService) deliver(ctx context.Context, event events.Event, recipients []string, title, message string, channel domain.NotificationChannel) {
	seen := make(map[string]struct{}, len(recipients))
	ticketID := event.TicketID
	for _, userID := range recipients {
		if userID == "" || userID == event.Actor.UserID {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		notification := &domain.Notification{
			UserID:   userID,
			TicketID: &ticketID,
			Title:    title,
			Message:  message,
			Channel:  channel,
		}
		if err := s.notifications.Create(ctx, notification); err != nil {
			s.logger.Error("persisting notification failed",
				zap.String("user_id", userID),
				zap.String("ticket_id", ticketID),
				zap.Error(err))
			continue
		}
		s.cache.Invalidate(ctx, userID)
		if channel.RequiresEmail() && s.queue != nil {
			s.queue.EnqueueDelivery(notification.ID)
		}
	}
}
