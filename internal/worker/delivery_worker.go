package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/helpdesk-io/ticketing-service/internal/config"
	"github.com/helpdesk-io/ticketing-service/internal/domain"
	"github.com/helpdesk-io/ticketing-service/internal/repository"
)

// Mailer sends a single email. Implementations talk to the outbound mail
// provider; LogMailer stands in when none is configured.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer writes sends to the log instead of dispatching real mail.
type LogMailer struct {
	From   string
	Logger *zap.Logger
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.Logger.Info("email dispatched",
		zap.String("from", m.From),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)))
	return nil
}

// DeliveryWorker drains a bounded queue of notification IDs and emails each
// recipient, with bounded retries. Terminal failures are logged and dropped;
// they never propagate back to the request that produced the notification.
type DeliveryWorker struct {
	queue         chan string
	notifications repository.NotificationRepository
	users         repository.UserRepository
	mailer        Mailer
	logger        *zap.Logger
	clock         domain.Clock
	maxAttempts   int
	backoff       time.Duration
	workers       int
	wg            sync.WaitGroup
}

func NewDeliveryWorker(
	cfg config.NotificationConfig,
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	mailer Mailer,
	logger *zap.Logger,
	clock domain.Clock,
) *DeliveryWorker {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	workers := cfg.DeliveryWorkers
	if workers <= 0 {
		workers = 1
	}
	queueSize := cfg.DeliveryQueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	maxAttempts := cfg.MaxSendAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &DeliveryWorker{
		queue:         make(chan string, queueSize),
		notifications: notifications,
		users:         users,
		mailer:        mailer,
		logger:        logger,
		clock:         clock,
		maxAttempts:   maxAttempts,
		backoff:       cfg.RetryBackoff(),
		workers:       workers,
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled; Wait
// blocks until they have drained.
func (w *DeliveryWorker) Start(ctx context.Context) {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
}

// Wait blocks until all workers have stopped.
func (w *DeliveryWorker) Wait() {
	w.wg.Wait()
}

// EnqueueDelivery queues a notification for email delivery without blocking.
// When the queue is full the notification stays unsent and is logged.
func (w *DeliveryWorker) EnqueueDelivery(notificationID string) {
	select {
	case w.queue <- notificationID:
	default:
		w.logger.Warn("delivery queue full, notification left unsent",
			zap.String("notification_id", notificationID))
	}
}

func (w *DeliveryWorker) run(ctx context.Context, id int) {
	defer w.wg.Done()
	w.logger.Debug("delivery worker started", zap.Int("worker", id))
	for {
		select {
		case <-ctx.Done():
			return
		case notificationID := <-w.queue:
			if err := w.deliver(ctx, notificationID); err != nil {
				w.logger.Error("notification delivery failed",
					zap.String("notification_id", notificationID),
					zap.Int("worker", id),
					zap.Error(err))
			}
		}
	}
}

func (w *DeliveryWorker) deliver(ctx context.Context, notificationID string) error {
	notification, err := w.notifications.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("notification %s not found", notificationID)
		}
		return err
	}
	if notification.IsSent {
		return nil
	}
	recipient, err := w.users.GetByID(ctx, notification.UserID)
	if err != nil {
		return fmt.Errorf("loading recipient: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		lastErr = w.mailer.Send(ctx, recipient.Email, notification.Title, notification.Message)
		if lastErr == nil {
			return w.notifications.MarkSent(ctx, notification.ID, w.clock.Now())
		}
		if attempt < w.maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.backoff * time.Duration(attempt)):
			}
		}
	}
	return fmt.Errorf("delivery exhausted after %d attempts: %w", w.maxAttempts, lastErr)
}
