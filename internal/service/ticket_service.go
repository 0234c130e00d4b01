package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-io/ticketing-service/internal/domain"
	"github.com/helpdesk-io/ticketing-service/internal/events"
	"github.com/helpdesk-io/ticketing-service/internal/repository"
	apperrors "github.com/helpdesk-io/ticketing-service/pkg/util"
)

const (
	minTitleLength       = 10
	minDescriptionLength = 20
)

// TicketService coordinates the ticket lifecycle: creation, mutation, status
// transitions, assignment and the comment thread. Ticket writes and their
// audit entries commit in one transaction; domain events are published only
// after the transaction succeeds.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	history    repository.HistoryRepository
	users      repository.UserRepository
	txm        repository.TxManager
	dispatcher events.Dispatcher
	clock      domain.Clock
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	HistoryRepo repository.HistoryRepository
	UserRepo    repository.UserRepository
	TxManager   repository.TxManager
	Dispatcher  events.Dispatcher
	Clock       domain.Clock
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    domain.TicketCategory
	Priority    domain.TicketPriority
	DueDate     *time.Time
	Tags        []string
	Attachments []string
}

// TicketUpdateInput describes a partial ticket mutation. Nil fields are left
// untouched. SetAssignee distinguishes "leave assignment alone" from
// "unassign" (SetAssignee true, AssigneeID nil).
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Category    *domain.TicketCategory
	Priority    *domain.TicketPriority
	Status      *domain.TicketStatus
	DueDate     *time.Time
	Tags        []string
	SetAssignee bool
	AssigneeID  *string
	StatusNotes string
}

// TicketListFilter describes listing filters; non-staff callers are always
// scoped to their own tickets.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Categories []domain.TicketCategory
	AssignedTo *string
	SearchTerm *string
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		history:    deps.HistoryRepo,
		users:      deps.UserRepo,
		txm:        deps.TxManager,
		dispatcher: deps.Dispatcher,
		clock:      clock,
	}
}

// CreateTicket files a new ticket for the actor. Title and description carry
// minimum lengths; violations are reported per-field.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if len(title) < minTitleLength {
		return nil, apperrors.NewValidationError("title must be at least 10 characters long", map[string]any{"field": "title"})
	}
	if len(description) < minDescriptionLength {
		return nil, apperrors.NewValidationError("description must be at least 20 characters long", map[string]any{"field": "description"})
	}
	if !domain.ValidTicketCategory(input.Category) {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"field": "category"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.ValidTicketPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"field": "priority"})
	}

	creatorID := actor.ID
	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Category:    input.Category,
		Priority:    priority,
		Status:      domain.TicketStatusOpen,
		CreatedBy:   &creatorID,
		Tags:        input.Tags,
		Attachments: input.Attachments,
		DueDate:     input.DueDate,
	}

	err := s.txm.WithinTx(ctx, func(store repository.TxStore) error {
		if err := store.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		return store.History().Create(ctx, &domain.TicketStatusHistory{
			TicketID:  ticket.ID,
			OldStatus: "",
			NewStatus: domain.TicketStatusOpen,
			ChangedBy: &creatorID,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, actor, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Category: ticket.Category,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket the viewer may see.
func (s *TicketService) GetTicket(ctx context.Context, viewer *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !viewer.CanViewTicket(ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// ListTickets returns tickets visible to the actor with filters applied.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	repoFilter := repository.TicketFilter{
		AssignedTo: filter.AssignedTo,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Categories: filter.Categories,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if !actor.IsStaff() {
		creatorID := actor.ID
		repoFilter.CreatedBy = &creatorID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// UpdateTicket applies a partial mutation atomically. Status changes append an
// audit entry; assignment changes to a new non-nil assignee emit an assignment
// event.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.User, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !actor.CanEditTicket(ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	oldStatus := ticket.Status
	oldAssignee := ticket.AssignedTo

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if len(title) < minTitleLength {
			return nil, apperrors.NewValidationError("title must be at least 10 characters long", map[string]any{"field": "title"})
		}
		ticket.Title = title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if len(description) < minDescriptionLength {
			return nil, apperrors.NewValidationError("description must be at least 20 characters long", map[string]any{"field": "description"})
		}
		ticket.Description = description
	}
	if input.Category != nil {
		if !domain.ValidTicketCategory(*input.Category) {
			return nil, apperrors.NewValidationError("unknown category", map[string]any{"field": "category"})
		}
		ticket.Category = *input.Category
	}
	if input.Priority != nil {
		if !domain.ValidTicketPriority(*input.Priority) {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"field": "priority"})
		}
		ticket.Priority = *input.Priority
	}
	if input.DueDate != nil {
		due := *input.DueDate
		ticket.DueDate = &due
	}
	if input.Tags != nil {
		ticket.Tags = input.Tags
	}
	if input.SetAssignee {
		if err := s.validateAssignee(ctx, input.AssigneeID); err != nil {
			return nil, err
		}
		ticket.AssignedTo = input.AssigneeID
	}

	statusChanged := false
	if input.Status != nil && *input.Status != oldStatus {
		if !domain.ValidTicketStatus(*input.Status) {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"field": "status"})
		}
		ticket.ApplyStatus(*input.Status, s.clock.Now())
		statusChanged = true
	}

	actorID := actor.ID
	err = s.txm.WithinTx(ctx, func(store repository.TxStore) error {
		if err := store.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		if statusChanged {
			return store.History().Create(ctx, &domain.TicketStatusHistory{
				TicketID:  ticket.ID,
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
				ChangedBy: &actorID,
				Notes:     input.StatusNotes,
			})
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if statusChanged {
		s.publishEvent(ctx, actor, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Payload: events.TicketStatusChangedPayload{
				Title:     ticket.Title,
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
				CreatorID: ticket.CreatedBy,
				Notes:     input.StatusNotes,
			},
		})
	}
	if assigneeChanged(oldAssignee, ticket.AssignedTo) {
		s.publishEvent(ctx, actor, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			Payload: events.TicketAssignedPayload{
				Title:      ticket.Title,
				AssigneeID: *ticket.AssignedTo,
			},
		})
	}
	return ticket, nil
}

// ChangeStatus transitions the ticket. Setting the current status again is a
// no-op: no audit entry, no event.
func (s *TicketService) ChangeStatus(ctx context.Context, actor *domain.User, ticketID string, newStatus domain.TicketStatus, notes string) (*domain.Ticket, error) {
	if !domain.ValidTicketStatus(newStatus) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"field": "status"})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !actor.CanEditTicket(ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if ticket.Status == newStatus {
		return ticket, nil
	}
	return s.UpdateTicket(ctx, actor, ticketID, TicketUpdateInput{Status: &newStatus, StatusNotes: notes})
}

// Assign sets or clears the assignee. The assignee must be an active admin or
// automation team member.
func (s *TicketService) Assign(ctx context.Context, actor *domain.User, ticketID string, assigneeID *string) (*domain.Ticket, error) {
	return s.UpdateTicket(ctx, actor, ticketID, TicketUpdateInput{SetAssignee: true, AssigneeID: assigneeID})
}

// AddComment appends a comment to the ticket thread. Callers without staff
// rights always produce public comments regardless of the requested type.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, ticketID, content string, commentType domain.CommentType) (*domain.Comment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !actor.CanViewTicket(ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content must not be empty", map[string]any{"field": "content"})
	}
	if commentType == "" {
		commentType = domain.CommentTypePublic
	}
	if !actor.CanCommentInternal() {
		commentType = domain.CommentTypePublic
	}

	authorID := actor.ID
	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: &authorID,
		Content:  content,
		Type:     commentType,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, actor, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		Payload: events.TicketCommentAddedPayload{
			Title:       ticket.Title,
			CommentID:   comment.ID,
			CommentType: comment.Type,
			CreatorID:   ticket.CreatedBy,
			AssigneeID:  ticket.AssignedTo,
		},
	})
	return comment, nil
}

// ListComments returns the ticket thread oldest-first. Internal notes are
// filtered out for viewers without staff rights.
func (s *TicketService) ListComments(ctx context.Context, viewer *domain.User, ticketID string) ([]domain.Comment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !viewer.CanViewTicket(ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if viewer.IsStaff() {
		return comments, nil
	}
	visible := make([]domain.Comment, 0, len(comments))
	for _, comment := range comments {
		if comment.Type == domain.CommentTypePublic {
			visible = append(visible, comment)
		}
	}
	return visible, nil
}

// ListHistory returns the ticket's audit trail newest-first.
func (s *TicketService) ListHistory(ctx context.Context, viewer *domain.User, ticketID string) ([]domain.TicketStatusHistory, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !viewer.CanViewTicket(ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	history, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return history, nil
}

func (s *TicketService) validateAssignee(ctx context.Context, assigneeID *string) error {
	if assigneeID == nil {
		return nil
	}
	assignee, err := s.users.GetByID(ctx, *assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"user_id": *assigneeID})
		}
		return apperrors.MapError(err)
	}
	if !assignee.Active {
		return apperrors.NewValidationError("assignee is deactivated", map[string]any{"field": "assigned_to"})
	}
	if !assignee.AssignableRole() {
		return apperrors.NewValidationError("assignee must be an admin or automation team member", map[string]any{"field": "assigned_to"})
	}
	return nil
}

func assigneeChanged(before, after *string) bool {
	if after == nil {
		return false
	}
	return before == nil || *before != *after
}

func (s *TicketService) publishEvent(ctx context.Context, actor *domain.User, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	event.Actor = events.Actor{UserID: actor.ID, Name: actor.Name, Role: actor.Role}
	_ = s.dispatcher.Publish(ctx, event)
}
