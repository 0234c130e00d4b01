package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-io/ticketing-service/internal/api/dto"
	"github.com/helpdesk-io/ticketing-service/internal/auth"
	"github.com/helpdesk-io/ticketing-service/internal/service"
	apperrors "github.com/helpdesk-io/ticketing-service/pkg/util"
)

// AnalyticsHandler serves the dashboard and the staff reporting endpoints.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Dashboard returns the role-shaped landing summary.
func (h *AnalyticsHandler) Dashboard(c *fiber.Ctx) error {
	actor, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	summary, err := h.analytics.Dashboard(c.UserContext(), actor, queryInt(c, "days", 0))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewDashboardResponse(summary))
}

// Overview returns current ticket counts grouped by status, priority and
// category. Staff only.
func (h *AnalyticsHandler) Overview(c *fiber.Ctx) error {
	overview, err := h.analytics.Overview(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewOverviewResponse(overview))
}

// TeamPerformance returns per-agent window stats. Staff only.
func (h *AnalyticsHandler) TeamPerformance(c *fiber.Ctx) error {
	performance, err := h.analytics.TeamPerformance(c.UserContext(), queryInt(c, "days", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"agents": dto.NewAgentPerformanceResponses(performance)})
}

// ResolutionTime returns the windowed average resolution time in hours.
// Staff only.
func (h *AnalyticsHandler) ResolutionTime(c *fiber.Ctx) error {
	hours, err := h.analytics.AverageResolutionHours(c.UserContext(), queryInt(c, "days", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"average_resolution_hours": hours})
}

// CreationTrend returns daily creation counts inside the window. Staff only.
func (h *AnalyticsHandler) CreationTrend(c *fiber.Ctx) error {
	trend, err := h.analytics.CreationTrend(c.UserContext(), queryInt(c, "days", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"trend": dto.NewTrendPoints(trend)})
}
