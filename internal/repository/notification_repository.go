package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-io/ticketing-service/internal/domain"
)

// NotificationRepository stores per-recipient notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	ListRecentByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
	MarkSent(ctx context.Context, id string, at time.Time) error
}

type notificationRepository struct {
	db Querier
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(db Querier) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, ticket_id, title, message, channel)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		n.UserID,
		n.TicketID,
		n.Title,
		n.Message,
		n.Channel,
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	const query = `
        SELECT id, user_id, ticket_id, title, message, channel, is_read, is_sent, created_at, sent_at
        FROM notifications WHERE id=$1`
	var n domain.Notification
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&n.ID,
		&n.UserID,
		&n.TicketID,
		&n.Title,
		&n.Message,
		&n.Channel,
		&n.IsRead,
		&n.IsSent,
		&n.CreatedAt,
		&n.SentAt,
	); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) ListRecentByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
        SELECT id, user_id, ticket_id, title, message, channel, is_read, is_sent, created_at, sent_at
        FROM notifications WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.TicketID,
			&n.Title,
			&n.Message,
			&n.Channel,
			&n.IsRead,
			&n.IsSent,
			&n.CreatedAt,
			&n.SentAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND NOT is_read`
	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead flips the read flag; the user filter enforces ownership so a user
// cannot mark someone else's notification.
func (r *notificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	const query = `UPDATE notifications SET is_read=TRUE WHERE id=$1 AND user_id=$2`
	cmd, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	const query = `UPDATE notifications SET is_read=TRUE WHERE user_id=$1 AND NOT is_read`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *notificationRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE notifications SET is_sent=TRUE, sent_at=$2 WHERE id=$1`
	cmd, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
