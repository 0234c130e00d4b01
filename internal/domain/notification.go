package domain

import "time"

// NotificationChannel selects how a notification is delivered.
type NotificationChannel string

const (
	ChannelEmail    NotificationChannel = "email"
	ChannelOnScreen NotificationChannel = "onscreen"
	ChannelBoth     NotificationChannel = "both"
)

// RequiresEmail reports whether the channel includes outbound email.
func (c NotificationChannel) RequiresEmail() bool {
	return c == ChannelEmail || c == ChannelBoth
}

// Notification is a persisted message for one recipient. SentAt is set iff
// IsSent is true.
type Notification struct {
	ID        string
	UserID    string
	TicketID  *string
	Title     string
	Message   string
	Channel   NotificationChannel
	IsRead    bool
	IsSent    bool
	CreatedAt time.Time
	SentAt    *time.Time
}
