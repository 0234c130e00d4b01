package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdesk-io/ticketing-service/internal/domain"
	"github.com/helpdesk-io/ticketing-service/internal/events"
)

type notificationFixture struct {
	service       *NotificationService
	notifications *fakeNotificationRepo
	users         *fakeUserRepo
	queue         *fakeQueue
	cache         *fakeUnreadCache
	dispatcher    events.Dispatcher

	admin   domain.User
	agent   domain.User
	agent2  domain.User
	regular domain.User
}

func newNotificationFixture() *notificationFixture {
	admin := domain.User{ID: "admin-1", Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin, Active: true}
	agent := domain.User{ID: "agent-1", Name: "Bob", Email: "bob@example.com", Role: domain.RoleAutomationTeam, Active: true}
	agent2 := domain.User{ID: "agent-2", Name: "Eve", Email: "eve@example.com", Role: domain.RoleAutomationTeam, Active: true}
	regular := domain.User{ID: "user-1", Name: "Cam", Email: "cam@example.com", Role: domain.RoleUser, Active: true}

	notifications := newFakeNotificationRepo()
	users := newFakeUserRepo(admin, agent, agent2, regular)
	queue := &fakeQueue{}
	cache := newFakeUnreadCache()
	dispatcher := events.NewInMemoryDispatcher()

	svc := NewNotificationService(notifications, users, queue, cache, zap.NewNop())
	svc.RegisterHandlers(dispatcher)

	return &notificationFixture{
		service:       svc,
		notifications: notifications,
		users:         users,
		queue:         queue,
		cache:         cache,
		dispatcher:    dispatcher,
		admin:         admin,
		agent:         agent,
		agent2:        agent2,
		regular:       regular,
	}
}

func (f *notificationFixture) publish(t *testing.T, eventType events.EventType, actor domain.User, payload any) {
	t.Helper()
	err := f.dispatcher.Publish(context.Background(), events.Event{
		ID:        "evt-1",
		Type:      eventType,
		TicketID:  "ticket-1",
		Actor:     events.Actor{UserID: actor.ID, Name: actor.Name, Role: actor.Role},
		Timestamp: time.Now(),
		Payload:   payload,
	})
	require.NoError(t, err)
}

func TestTicketCreatedNotifiesStaffExceptActor(t *testing.T) {
	f := newNotificationFixture()

	f.publish(t, events.EventTicketCreated, f.regular, events.TicketCreatedPayload{
		Title: "Printer room automation broken",
	})

	assert.Len(t, f.notifications.forUser(f.admin.ID), 1)
	assert.Len(t, f.notifications.forUser(f.agent.ID), 1)
	assert.Len(t, f.notifications.forUser(f.agent2.ID), 1)
	assert.Empty(t, f.notifications.forUser(f.regular.ID))

	// Channel "both" means every recipient also gets an email.
	assert.Len(t, f.queue.ids, 3)
}

func TestTicketCreatedByStaffSkipsActor(t *testing.T) {
	f := newNotificationFixture()

	f.publish(t, events.EventTicketCreated, f.agent, events.TicketCreatedPayload{Title: "Cron host disk full"})

	assert.Empty(t, f.notifications.forUser(f.agent.ID))
	assert.Len(t, f.notifications.forUser(f.admin.ID), 1)
}

func TestStatusChangedNotifiesCreatorUnlessActor(t *testing.T) {
	f := newNotificationFixture()
	creatorID := f.regular.ID

	f.publish(t, events.EventTicketStatusChanged, f.agent, events.TicketStatusChangedPayload{
		Title:     "Printer room automation broken",
		OldStatus: domain.TicketStatusOpen,
		NewStatus: domain.TicketStatusInProgress,
		CreatorID: &creatorID,
	})
	require.Len(t, f.notifications.forUser(f.regular.ID), 1)
	got := f.notifications.forUser(f.regular.ID)[0]
	assert.Equal(t, domain.ChannelBoth, got.Channel)
	assert.Contains(t, got.Message, "open")
	assert.Contains(t, got.Message, "in_progress")

	// Creator changing their own ticket's status gets nothing new.
	f.publish(t, events.EventTicketStatusChanged, f.regular, events.TicketStatusChangedPayload{
		Title:     "Printer room automation broken",
		CreatorID: &creatorID,
	})
	assert.Len(t, f.notifications.forUser(f.regular.ID), 1)
}

func TestAssignedNotifiesAssigneeUnlessSelf(t *testing.T) {
	f := newNotificationFixture()

	f.publish(t, events.EventTicketAssigned, f.admin, events.TicketAssignedPayload{
		Title:      "Printer room automation broken",
		AssigneeID: f.agent.ID,
	})
	assert.Len(t, f.notifications.forUser(f.agent.ID), 1)

	f.publish(t, events.EventTicketAssigned, f.agent, events.TicketAssignedPayload{
		Title:      "Cron host disk full",
		AssigneeID: f.agent.ID,
	})
	assert.Len(t, f.notifications.forUser(f.agent.ID), 1)
}

func TestPublicCommentNotifiesParticipants(t *testing.T) {
	f := newNotificationFixture()
	creatorID := f.regular.ID
	assigneeID := f.agent.ID

	f.publish(t, events.EventTicketCommentAdded, f.admin, events.TicketCommentAddedPayload{
		Title:       "Printer room automation broken",
		CommentType: domain.CommentTypePublic,
		CreatorID:   &creatorID,
		AssigneeID:  &assigneeID,
	})

	assert.Len(t, f.notifications.forUser(f.regular.ID), 1)
	assert.Len(t, f.notifications.forUser(f.agent.ID), 1)
	assert.Empty(t, f.notifications.forUser(f.agent2.ID))
	assert.Empty(t, f.notifications.forUser(f.admin.ID))
}

func TestInternalCommentNotifiesStaffOnScreenOnly(t *testing.T) {
	f := newNotificationFixture()
	creatorID := f.regular.ID
	assigneeID := f.agent.ID

	f.publish(t, events.EventTicketCommentAdded, f.agent, events.TicketCommentAddedPayload{
		Title:       "Printer room automation broken",
		CommentType: domain.CommentTypeInternal,
		CreatorID:   &creatorID,
		AssigneeID:  &assigneeID,
	})

	// Actor excluded even though they are both assignee and staff; the
	// remaining recipients are deduplicated.
	assert.Empty(t, f.notifications.forUser(f.agent.ID))
	require.Len(t, f.notifications.forUser(f.admin.ID), 1)
	require.Len(t, f.notifications.forUser(f.agent2.ID), 1)
	require.Len(t, f.notifications.forUser(f.regular.ID), 1)

	assert.Equal(t, domain.ChannelOnScreen, f.notifications.forUser(f.admin.ID)[0].Channel)
	// On-screen only: nothing queued for email delivery.
	assert.Empty(t, f.queue.ids)
}

func TestUnreadCountUsesCache(t *testing.T) {
	f := newNotificationFixture()
	ctx := context.Background()

	require.NoError(t, f.notifications.Create(ctx, &domain.Notification{UserID: f.regular.ID, Channel: domain.ChannelOnScreen}))

	count, err := f.service.UnreadCount(ctx, f.regular.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Cached value wins until invalidated.
	f.cache.Set(ctx, f.regular.ID, 42)
	count, err = f.service.UnreadCount(ctx, f.regular.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestMarkRead(t *testing.T) {
	f := newNotificationFixture()
	ctx := context.Background()

	n := &domain.Notification{ID: "6f1f3f7b-64c9-4f3e-9f56-8a2f5a6f3c1d", UserID: f.regular.ID, Channel: domain.ChannelOnScreen}
	require.NoError(t, f.notifications.Create(ctx, n))

	require.NoError(t, f.service.MarkRead(ctx, f.regular.ID, n.ID))

	count, err := f.service.UnreadCount(ctx, f.regular.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Someone else's notification and malformed IDs both read as missing.
	requireErrorCode(t, f.service.MarkRead(ctx, f.admin.ID, n.ID), "NOT_FOUND")
	requireErrorCode(t, f.service.MarkRead(ctx, f.regular.ID, "not-a-uuid"), "NOT_FOUND")
}

func TestMarkAllRead(t *testing.T) {
	f := newNotificationFixture()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, f.notifications.Create(ctx, &domain.Notification{UserID: f.regular.ID, Channel: domain.ChannelOnScreen}))
	}
	require.NoError(t, f.service.MarkAllRead(ctx, f.regular.ID))

	count, err := f.service.UnreadCount(ctx, f.regular.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
