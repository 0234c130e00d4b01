package domain

import "time"

// CommentType differentiates public replies from internal notes.
type CommentType string

const (
	CommentTypePublic   CommentType = "public"
	CommentTypeInternal CommentType = "internal"
)

// Comment is an immutable entry in a ticket's thread. Comments are never
// edited or deleted once created.
type Comment struct {
	ID          string
	TicketID    string
	AuthorID    *string
	Content     string
	Type        CommentType
	Attachments []string
	CreatedAt   time.Time
}

// VisibleTo reports whether the viewer may read this comment. Internal notes
// are restricted to staff; public comments follow ticket visibility.
func (c *Comment) VisibleTo(viewer *User, ticket *Ticket) bool {
	if c.Type == CommentTypeInternal {
		return viewer.IsStaff()
	}
	return viewer.CanViewTicket(ticket)
}
