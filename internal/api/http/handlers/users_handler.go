package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-io/ticketing-service/internal/api/dto"
	"github.com/helpdesk-io/ticketing-service/internal/service"
)

// UsersHandler serves registration and login.
type UsersHandler struct {
	auth *service.AuthService
}

func NewUsersHandler(auth *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: auth}
}

// Register creates a new account with the default role.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.auth.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewUserResponse(user))
}

// Login verifies credentials and returns a token.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}
	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      dto.NewUserResponse(result.User),
	})
}
