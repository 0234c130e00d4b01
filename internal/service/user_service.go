package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-io/ticketing-service/internal/domain"
	"github.com/helpdesk-io/ticketing-service/internal/repository"
	apperrors "github.com/helpdesk-io/ticketing-service/pkg/util"
)

// UserService exposes admin-only account management: listing, role changes
// and activation toggles.
type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// ListUsers returns accounts matching the filter. Admin only.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.User, filter repository.UserFilter) ([]domain.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("access denied")
	}
	users, err := s.users.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// ChangeRole assigns a new role to the target account. Admin only; admins
// cannot change their own role.
func (s *UserService) ChangeRole(ctx context.Context, actor *domain.User, userID string, role domain.Role) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("access denied")
	}
	if !domain.ValidRole(role) {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"field": "role"})
	}
	if actor.ID == userID {
		return nil, apperrors.NewValidationError("cannot change your own role", map[string]any{"field": "user_id"})
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// SetActive activates or deactivates the target account. Admin only; admins
// cannot deactivate themselves.
func (s *UserService) SetActive(ctx context.Context, actor *domain.User, userID string, active bool) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("access denied")
	}
	if actor.ID == userID && !active {
		return nil, apperrors.NewValidationError("cannot deactivate your own account", map[string]any{"field": "user_id"})
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Active = active
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func (s *UserService) loadUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}
