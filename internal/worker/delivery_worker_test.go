package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdesk-io/ticketing-service/internal/config"
	"github.com/helpdesk-io/ticketing-service/internal/domain"
	"github.com/helpdesk-io/ticketing-service/internal/repository"
)

type stubNotificationRepo struct {
	mu            sync.Mutex
	notifications map[string]*domain.Notification
}

func (r *stubNotificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications[n.ID] = n
	return nil
}

func (r *stubNotificationRepo) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *n
	return &copied, nil
}

func (r *stubNotificationRepo) ListRecentByUser(context.Context, string, int) ([]domain.Notification, error) {
	return nil, nil
}

func (r *stubNotificationRepo) UnreadCount(context.Context, string) (int, error) { return 0, nil }

func (r *stubNotificationRepo) MarkRead(context.Context, string, string) error { return nil }

func (r *stubNotificationRepo) MarkAllRead(context.Context, string) error { return nil }

func (r *stubNotificationRepo) MarkSent(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return pgx.ErrNoRows
	}
	n.IsSent = true
	n.SentAt = &at
	return nil
}

func (r *stubNotificationRepo) sent(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	return ok && n.IsSent
}

type stubUserRepo struct {
	user *domain.User
}

func (r *stubUserRepo) Create(context.Context, *domain.User) error { return nil }
func (r *stubUserRepo) Update(context.Context, *domain.User) error { return nil }

func (r *stubUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if r.user != nil && r.user.ID == id {
		return r.user, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *stubUserRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

func (r *stubUserRepo) ListByRoles(context.Context, []domain.Role) ([]domain.User, error) {
	return nil, nil
}

func (r *stubUserRepo) ListWithFilter(context.Context, repository.UserFilter) ([]domain.User, error) {
	return nil, nil
}

type flakyMailer struct {
	mu       sync.Mutex
	failures int
	sends    int
}

func (m *flakyMailer) Send(context.Context, string, string, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends++
	if m.sends <= m.failures {
		return errors.New("smtp unavailable")
	}
	return nil
}

func (m *flakyMailer) attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sends
}

func testWorkerConfig() config.NotificationConfig {
	return config.NotificationConfig{
		EmailFrom:         "noreply@example.com",
		DeliveryWorkers:   1,
		DeliveryQueueSize: 8,
		MaxSendAttempts:   3,
		RetryBackoffMS:    1,
	}
}

func newTestWorker(repo *stubNotificationRepo, mailer Mailer) *DeliveryWorker {
	users := &stubUserRepo{user: &domain.User{ID: "user-1", Email: "cam@example.com", Active: true}}
	return NewDeliveryWorker(testWorkerConfig(), repo, users, mailer, zap.NewNop(), nil)
}

func TestDeliverMarksSent(t *testing.T) {
	repo := &stubNotificationRepo{notifications: map[string]*domain.Notification{
		"n-1": {ID: "n-1", UserID: "user-1", Title: "hello", Channel: domain.ChannelBoth},
	}}
	w := newTestWorker(repo, &flakyMailer{})

	require.NoError(t, w.deliver(context.Background(), "n-1"))
	assert.True(t, repo.sent("n-1"))
}

func TestDeliverRetriesThenSucceeds(t *testing.T) {
	repo := &stubNotificationRepo{notifications: map[string]*domain.Notification{
		"n-1": {ID: "n-1", UserID: "user-1", Title: "hello", Channel: domain.ChannelBoth},
	}}
	mailer := &flakyMailer{failures: 2}
	w := newTestWorker(repo, mailer)

	require.NoError(t, w.deliver(context.Background(), "n-1"))
	assert.Equal(t, 3, mailer.attempts())
	assert.True(t, repo.sent("n-1"))
}

func TestDeliverGivesUpAfterMaxAttempts(t *testing.T) {
	repo := &stubNotificationRepo{notifications: map[string]*domain.Notification{
		"n-1": {ID: "n-1", UserID: "user-1", Title: "hello", Channel: domain.ChannelBoth},
	}}
	mailer := &flakyMailer{failures: 10}
	w := newTestWorker(repo, mailer)

	err := w.deliver(context.Background(), "n-1")
	require.Error(t, err)
	assert.Equal(t, 3, mailer.attempts())
	assert.False(t, repo.sent("n-1"))
}

func TestDeliverSkipsAlreadySent(t *testing.T) {
	sentAt := time.Now()
	repo := &stubNotificationRepo{notifications: map[string]*domain.Notification{
		"n-1": {ID: "n-1", UserID: "user-1", IsSent: true, SentAt: &sentAt},
	}}
	mailer := &flakyMailer{}
	w := newTestWorker(repo, mailer)

	require.NoError(t, w.deliver(context.Background(), "n-1"))
	assert.Equal(t, 0, mailer.attempts())
}

func TestWorkerDrainsQueue(t *testing.T) {
	repo := &stubNotificationRepo{notifications: map[string]*domain.Notification{
		"n-1": {ID: "n-1", UserID: "user-1", Channel: domain.ChannelBoth},
		"n-2": {ID: "n-2", UserID: "user-1", Channel: domain.ChannelBoth},
	}}
	w := newTestWorker(repo, &flakyMailer{})

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	w.EnqueueDelivery("n-1")
	w.EnqueueDelivery("n-2")

	require.Eventually(t, func() bool {
		return repo.sent("n-1") && repo.sent("n-2")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	w.Wait()
}
