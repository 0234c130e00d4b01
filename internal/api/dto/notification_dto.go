package dto

import (
	"time"

	"github.com/helpdesk-io/ticketing-service/internal/domain"
)

// NotificationResponse is the wire projection of a notification.
type NotificationResponse struct {
	ID        string     `json:"id"`
	TicketID  *string    `json:"ticket_id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Channel   string     `json:"channel"`
	IsRead    bool       `json:"is_read"`
	IsSent    bool       `json:"is_sent"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// UnreadCountResponse backs the badge endpoint.
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

// NewNotificationResponses maps domain notifications.
func NewNotificationResponses(notifications []domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, NotificationResponse{
			ID:        n.ID,
			TicketID:  n.TicketID,
			Title:     n.Title,
			Message:   n.Message,
			Channel:   string(n.Channel),
			IsRead:    n.IsRead,
			IsSent:    n.IsSent,
			CreatedAt: n.CreatedAt,
			SentAt:    n.SentAt,
		})
	}
	return out
}
