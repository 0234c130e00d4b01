package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-io/ticketing-service/internal/domain"
	"github.com/helpdesk-io/ticketing-service/internal/events"
	apperrors "github.com/helpdesk-io/ticketing-service/pkg/util"
)

type ticketFixture struct {
	service  *TicketService
	tickets  *fakeTicketRepo
	comments *fakeCommentRepo
	history  *fakeHistoryRepo
	users    *fakeUserRepo
	events   *capturedEvents
	clock    *fakeClock

	admin   *domain.User
	agent   *domain.User
	regular *domain.User
}

func newTicketFixture() *ticketFixture {
	admin := domain.User{ID: "admin-1", Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin, Active: true}
	agent := domain.User{ID: "agent-1", Name: "Bob", Email: "bob@example.com", Role: domain.RoleAutomationTeam, Active: true}
	regular := domain.User{ID: "user-1", Name: "Cam", Email: "cam@example.com", Role: domain.RoleUser, Active: true}

	tickets := newFakeTicketRepo()
	comments := &fakeCommentRepo{}
	history := &fakeHistoryRepo{}
	users := newFakeUserRepo(admin, agent, regular)
	dispatcher := events.NewInMemoryDispatcher()
	captured := captureAll(dispatcher)
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	svc := NewTicketService(TicketDependencies{
		TicketRepo:  tickets,
		CommentRepo: comments,
		HistoryRepo: history,
		UserRepo:    users,
		TxManager:   fakeTxManager{tickets: tickets, history: history},
		Dispatcher:  dispatcher,
		Clock:       clock,
	})
	return &ticketFixture{
		service:  svc,
		tickets:  tickets,
		comments: comments,
		history:  history,
		users:    users,
		events:   captured,
		clock:    clock,
		admin:    &admin,
		agent:    &agent,
		regular:  &regular,
	}
}

func validCreateInput() TicketCreateInput {
	return TicketCreateInput{
		Title:       "Printer room automation broken",
		Description: "The automation job for the printer room stopped running last night.",
		Category:    domain.CategoryAutomation,
	}
}

func TestCreateTicketDefaultsAndAudit(t *testing.T) {
	f := newTicketFixture()

	ticket, err := f.service.CreateTicket(context.Background(), f.regular, validCreateInput())
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	require.NotNil(t, ticket.CreatedBy)
	assert.Equal(t, f.regular.ID, *ticket.CreatedBy)

	require.Len(t, f.history.entries, 1)
	assert.Equal(t, domain.TicketStatus(""), f.history.entries[0].OldStatus)
	assert.Equal(t, domain.TicketStatusOpen, f.history.entries[0].NewStatus)

	published := f.events.all()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventTicketCreated, published[0].Type)
	assert.Equal(t, f.regular.ID, published[0].Actor.UserID)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newTicketFixture()

	short := validCreateInput()
	short.Title = "Too short"
	_, err := f.service.CreateTicket(context.Background(), f.regular, short)
	requireValidationField(t, err, "title")

	brief := validCreateInput()
	brief.Description = "Not enough text"
	_, err = f.service.CreateTicket(context.Background(), f.regular, brief)
	requireValidationField(t, err, "description")

	badCategory := validCreateInput()
	badCategory.Category = "billing"
	_, err = f.service.CreateTicket(context.Background(), f.regular, badCategory)
	requireValidationField(t, err, "category")

	assert.Empty(t, f.events.all())
}

func TestChangeStatusAppendsAuditAndEvent(t *testing.T) {
	f := newTicketFixture()
	ticket, err := f.service.CreateTicket(context.Background(), f.regular, validCreateInput())
	require.NoError(t, err)

	updated, err := f.service.ChangeStatus(context.Background(), f.agent, ticket.ID, domain.TicketStatusInProgress, "picking this up")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)

	require.Len(t, f.history.entries, 2)
	last := f.history.entries[1]
	assert.Equal(t, domain.TicketStatusOpen, last.OldStatus)
	assert.Equal(t, domain.TicketStatusInProgress, last.NewStatus)
	assert.Equal(t, "picking this up", last.Notes)
	require.NotNil(t, last.ChangedBy)
	assert.Equal(t, f.agent.ID, *last.ChangedBy)

	published := f.events.all()
	require.Len(t, published, 2)
	assert.Equal(t, events.EventTicketStatusChanged, published[1].Type)
	payload := published[1].Payload.(events.TicketStatusChangedPayload)
	assert.Equal(t, domain.TicketStatusOpen, payload.OldStatus)
	assert.Equal(t, domain.TicketStatusInProgress, payload.NewStatus)
}

func TestChangeStatusSameStatusIsNoOp(t *testing.T) {
	f := newTicketFixture()
	ticket, err := f.service.CreateTicket(context.Background(), f.regular, validCreateInput())
	require.NoError(t, err)
	before := len(f.events.all())

	_, err = f.service.ChangeStatus(context.Background(), f.agent, ticket.ID, domain.TicketStatusOpen, "")
	require.NoError(t, err)

	assert.Len(t, f.history.entries, 1)
	assert.Len(t, f.events.all(), before)
}

func TestCloseAndReopenBookkeeping(t *testing.T) {
	f := newTicketFixture()
	ticket, err := f.service.CreateTicket(context.Background(), f.regular, validCreateInput())
	require.NoError(t, err)

	closed, err := f.service.ChangeStatus(context.Background(), f.agent, ticket.ID, domain.TicketStatusClosed, "")
	require.NoError(t, err)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, f.clock.now, *closed.ClosedAt)

	reopened, err := f.service.ChangeStatus(context.Background(), f.agent, ticket.ID, domain.TicketStatusOpen, "")
	require.NoError(t, err)
	assert.Nil(t, reopened.ClosedAt)
}

func TestRegularUserCannotEdit(t *testing.T) {
	f := newTicketFixture()
	ticket, err := f.service.CreateTicket(context.Background(), f.regular, validCreateInput())
	require.NoError(t, err)

	_, err = f.service.ChangeStatus(context.Background(), f.regular, ticket.ID, domain.TicketStatusClosed, "")
	requireErrorCode(t, err, "FORBIDDEN")
}

func TestAssignValidatesAssignee(t *testing.T) {
	f := newTicketFixture()
	ticket, err := f.service.CreateTicket(context.Background(), f.regular, validCreateInput())
	require.NoError(t, err)

	// Regular users cannot hold assignments.
	_, err = f.service.Assign(context.Background(), f.admin, ticket.ID, &f.regular.ID)
	requireValidationField(t, err, "assigned_to")

	assigned, err := f.service.Assign(context.Background(), f.admin, ticket.ID, &f.agent.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, f.agent.ID, *assigned.AssignedTo)

	published := f.events.all()
	last := published[len(published)-1]
	assert.Equal(t, events.EventTicketAssigned, last.Type)
	assert.Equal(t, f.agent.ID, last.Payload.(events.TicketAssignedPayload).AssigneeID)
}

func TestAssignRejectsInactiveStaff(t *testing.T) {
	f := newTicketFixture()
	inactive := domain.User{ID: "agent-2", Role: domain.RoleAutomationTeam, Active: false}
	require.NoError(t, f.users.Create(context.Background(), &inactive))
	ticket, err := f.service.CreateTicket(context.Background(), f.regular, validCreateInput())
	require.NoError(t, err)

	_, err = f.service.Assign(context.Background(), f.admin, ticket.ID, &inactive.ID)
	requireValidationField(t, err, "assigned_to")
}

func TestAddCommentForcesPublicForRegularUsers(t *testing.T) {
	f := newTicketFixture()
	ticket, err := f.service.CreateTicket(context.Background(), f.regular, validCreateInput())
	require.NoError(t, err)

	comment, err := f.service.AddComment(context.Background(), f.regular, ticket.ID, "Any update on this?", domain.CommentTypeInternal)
	require.NoError(t, err)
	assert.Equal(t, domain.CommentTypePublic, comment.Type)

	note, err := f.service.AddComment(context.Background(), f.agent, ticket.ID, "Checking the job scheduler.", domain.CommentTypeInternal)
	require.NoError(t, err)
	assert.Equal(t, domain.CommentTypeInternal, note.Type)
}

func TestListCommentsHidesInternalFromRegularUsers(t *testing.T) {
	f := newTicketFixture()
	ticket, err := f.service.CreateTicket(context.Background(), f.regular, validCreateInput())
	require.NoError(t, err)

	_, err = f.service.AddComment(context.Background(), f.regular, ticket.ID, "Any update on this?", domain.CommentTypePublic)
	require.NoError(t, err)
	_, err = f.service.AddComment(context.Background(), f.agent, ticket.ID, "Scheduler looks wedged.", domain.CommentTypeInternal)
	require.NoError(t, err)

	forCreator, err := f.service.ListComments(context.Background(), f.regular, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, forCreator, 1)

	forStaff, err := f.service.ListComments(context.Background(), f.agent, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, forStaff, 2)
}

func TestGetTicketVisibility(t *testing.T) {
	f := newTicketFixture()
	ticket, err := f.service.CreateTicket(context.Background(), f.regular, validCreateInput())
	require.NoError(t, err)

	stranger := domain.User{ID: "user-2", Role: domain.RoleUser, Active: true}
	require.NoError(t, f.users.Create(context.Background(), &stranger))

	_, err = f.service.GetTicket(context.Background(), &stranger, ticket.ID)
	requireErrorCode(t, err, "FORBIDDEN")

	_, err = f.service.GetTicket(context.Background(), f.agent, ticket.ID)
	assert.NoError(t, err)

	_, err = f.service.GetTicket(context.Background(), f.agent, "00000000-0000-0000-0000-000000000000")
	requireErrorCode(t, err, "NOT_FOUND")
}

func TestListTicketsScopesRegularUsers(t *testing.T) {
	f := newTicketFixture()
	_, err := f.service.CreateTicket(context.Background(), f.regular, validCreateInput())
	require.NoError(t, err)

	other := domain.User{ID: "user-2", Role: domain.RoleUser, Active: true}
	require.NoError(t, f.users.Create(context.Background(), &other))
	input := validCreateInput()
	input.Title = "Monthly maintenance window request"
	_, err = f.service.CreateTicket(context.Background(), &other, input)
	require.NoError(t, err)

	mine, err := f.service.ListTickets(context.Background(), f.regular, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := f.service.ListTickets(context.Background(), f.admin, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func requireErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, code, domainErr.Code)
}

func requireValidationField(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	require.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.Equal(t, field, domainErr.Details["field"])
}
