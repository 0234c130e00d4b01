package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusDelivered  TicketStatus = "delivered"
	TicketStatusClosed     TicketStatus = "closed"
)

// ValidTicketStatus reports whether s is a known status.
func ValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusDelivered, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// ValidTicketPriority reports whether p is a known priority.
func ValidTicketPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// TicketCategory enumerates request categories.
type TicketCategory string

const (
	CategoryAutomation     TicketCategory = "automation"
	CategoryBugReport      TicketCategory = "bug_report"
	CategoryFeatureRequest TicketCategory = "feature_request"
	CategoryMaintenance    TicketCategory = "maintenance"
	CategoryOther          TicketCategory = "other"
)

// ValidTicketCategory reports whether c is a known category.
func ValidTicketCategory(c TicketCategory) bool {
	switch c {
	case CategoryAutomation, CategoryBugReport, CategoryFeatureRequest, CategoryMaintenance, CategoryOther:
		return true
	}
	return false
}

// Ticket is the aggregate for helpdesk requests. Tickets are never deleted,
// only transitioned to closed.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Category    TicketCategory
	Priority    TicketPriority
	Status      TicketStatus
	CreatedBy   *string
	AssignedTo  *string
	Tags        []string
	Attachments []string
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}

// ApplyStatus moves the ticket to status and keeps the closed_at bookkeeping
// consistent: entering closed stamps now, leaving closed clears it. Re-closing
// a reopened ticket stamps a fresh time.
func (t *Ticket) ApplyStatus(status TicketStatus, now time.Time) {
	if status == TicketStatusClosed {
		if t.Status != TicketStatusClosed || t.ClosedAt == nil {
			closedAt := now
			t.ClosedAt = &closedAt
		}
	} else {
		t.ClosedAt = nil
	}
	t.Status = status
}

// IsOverdue reports whether the due date has passed while the ticket is still
// actionable. Closed and delivered tickets are never overdue.
func (t *Ticket) IsOverdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	if t.Status == TicketStatusClosed || t.Status == TicketStatusDelivered {
		return false
	}
	return now.After(*t.DueDate)
}

// ResolutionTime returns the hours between creation and closure. The second
// return is false until the ticket has a closed_at stamp.
func (t *Ticket) ResolutionTime() (float64, bool) {
	if t.ClosedAt == nil {
		return 0, false
	}
	return t.ClosedAt.Sub(t.CreatedAt).Hours(), true
}
