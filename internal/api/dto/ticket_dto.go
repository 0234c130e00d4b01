package dto

import (
	"time"

	"github.com/helpdesk-io/ticketing-service/internal/domain"
)

// CreateTicketRequest files a new ticket.
type CreateTicketRequest struct {
	Title       string     `json:"title" validate:"required,min=10"`
	Description string     `json:"description" validate:"required,min=20"`
	Category    string     `json:"category" validate:"required,oneof=automation bug_report feature_request maintenance other"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate     *time.Time `json:"due_date"`
	Tags        []string   `json:"tags"`
	Attachments []string   `json:"attachments"`
}

// UpdateTicketRequest mutates ticket fields; absent fields are untouched.
// Assignment has its own endpoint.
type UpdateTicketRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=10"`
	Description *string    `json:"description" validate:"omitempty,min=20"`
	Category    *string    `json:"category" validate:"omitempty,oneof=automation bug_report feature_request maintenance other"`
	Priority    *string    `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status      *string    `json:"status" validate:"omitempty,oneof=open in_progress delivered closed"`
	StatusNotes string     `json:"status_notes"`
	DueDate     *time.Time `json:"due_date"`
	Tags        []string   `json:"tags"`
}

// ChangeStatusRequest transitions a ticket.
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open in_progress delivered closed"`
	Notes  string `json:"notes"`
}

// AssignTicketRequest sets or clears the assignee. A null assignee_id
// unassigns.
type AssignTicketRequest struct {
	AssigneeID *string `json:"assignee_id" validate:"omitempty,uuid4"`
}

// CreateCommentRequest appends to the ticket thread.
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required"`
	Type    string `json:"type" validate:"omitempty,oneof=public internal"`
}

// TicketResponse is the wire projection of a ticket.
type TicketResponse struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	Priority       string     `json:"priority"`
	Status         string     `json:"status"`
	CreatedBy      *string    `json:"created_by"`
	AssignedTo     *string    `json:"assigned_to"`
	Tags           []string   `json:"tags"`
	Attachments    []string   `json:"attachments"`
	DueDate        *time.Time `json:"due_date"`
	IsOverdue      bool       `json:"is_overdue"`
	ResolutionTime *float64   `json:"resolution_time_hours"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ClosedAt       *time.Time `json:"closed_at"`
}

// CommentResponse is the wire projection of a comment.
type CommentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	AuthorID  *string   `json:"author_id"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryResponse is one audit trail entry.
type HistoryResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	OldStatus string    `json:"old_status,omitempty"`
	NewStatus string    `json:"new_status"`
	ChangedBy *string   `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
	Notes     string    `json:"notes,omitempty"`
}

// TicketDetailResponse bundles the ticket with its thread and audit trail.
type TicketDetailResponse struct {
	Ticket   TicketResponse    `json:"ticket"`
	Comments []CommentResponse `json:"comments"`
	History  []HistoryResponse `json:"history"`
}

// NewTicketResponse maps a domain ticket, evaluating overdue against now.
func NewTicketResponse(ticket *domain.Ticket, now time.Time) TicketResponse {
	resp := TicketResponse{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Category:    string(ticket.Category),
		Priority:    string(ticket.Priority),
		Status:      string(ticket.Status),
		CreatedBy:   ticket.CreatedBy,
		AssignedTo:  ticket.AssignedTo,
		Tags:        ticket.Tags,
		Attachments: ticket.Attachments,
		DueDate:     ticket.DueDate,
		IsOverdue:   ticket.IsOverdue(now),
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		ClosedAt:    ticket.ClosedAt,
	}
	if hours, ok := ticket.ResolutionTime(); ok {
		resp.ResolutionTime = &hours
	}
	return resp
}

// NewTicketResponses maps a slice of domain tickets.
func NewTicketResponses(tickets []domain.Ticket, now time.Time) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i], now))
	}
	return out
}

// NewCommentResponse maps a domain comment.
func NewCommentResponse(comment *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		TicketID:  comment.TicketID,
		AuthorID:  comment.AuthorID,
		Content:   comment.Content,
		Type:      string(comment.Type),
		CreatedAt: comment.CreatedAt,
	}
}

// NewCommentResponses maps a slice of comments.
func NewCommentResponses(comments []domain.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, NewCommentResponse(&comments[i]))
	}
	return out
}

// NewHistoryResponses maps audit entries.
func NewHistoryResponses(history []domain.TicketStatusHistory) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(history))
	for _, entry := range history {
		out = append(out, HistoryResponse{
			ID:        entry.ID,
			TicketID:  entry.TicketID,
			OldStatus: string(entry.OldStatus),
			NewStatus: string(entry.NewStatus),
			ChangedBy: entry.ChangedBy,
			ChangedAt: entry.ChangedAt,
			Notes:     entry.Notes,
		})
	}
	return out
}
