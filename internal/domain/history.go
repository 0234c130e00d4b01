package domain

import "time"

// TicketStatusHistory is an append-only audit entry recorded for every actual
// status change. OldStatus is empty for the creation event.
type TicketStatusHistory struct {
	ID        string
	TicketID  string
	OldStatus TicketStatus
	NewStatus TicketStatus
	ChangedBy *string
	ChangedAt time.Time
	Notes     string
}
