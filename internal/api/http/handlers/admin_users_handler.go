package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-io/ticketing-service/internal/api/dto"
	"github.com/helpdesk-io/ticketing-service/internal/auth"
	"github.com/helpdesk-io/ticketing-service/internal/domain"
	"github.com/helpdesk-io/ticketing-service/internal/repository"
	"github.com/helpdesk-io/ticketing-service/internal/service"
	apperrors "github.com/helpdesk-io/ticketing-service/pkg/util"
)

// AdminUsersHandler serves admin-only account management.
type AdminUsersHandler struct {
	users *service.UserService
}

func NewAdminUsersHandler(users *service.UserService) *AdminUsersHandler {
	return &AdminUsersHandler{users: users}
}

// List returns accounts matching the query filters.
func (h *AdminUsersHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := repository.UserFilter{
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	if role := c.Query("role"); role != "" {
		parsed := domain.Role(role)
		filter.Role = &parsed
	}
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	users, err := h.users.ListUsers(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users": dto.NewUserResponses(users)})
}

// ChangeRole assigns a new role to the target account.
func (h *AdminUsersHandler) ChangeRole(c *fiber.Ctx) error {
	actor, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateUserRoleRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.users.ChangeRole(c.UserContext(), actor, c.Params("id"), domain.Role(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// SetActive activates or deactivates the target account.
func (h *AdminUsersHandler) SetActive(c *fiber.Ctx) error {
	actor, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateUserActiveRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.users.SetActive(c.UserContext(), actor, c.Params("id"), *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}
