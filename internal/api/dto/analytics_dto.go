package dto

import (
	"github.com/helpdesk-io/ticketing-service/internal/domain"
	"github.com/helpdesk-io/ticketing-service/internal/repository"
	"github.com/helpdesk-io/ticketing-service/internal/service"
)

// OverviewResponse reports current ticket counts.
type OverviewResponse struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByPriority map[string]int `json:"by_priority"`
	ByCategory map[string]int `json:"by_category"`
}

// AgentPerformanceResponse is one automation team member's window stats.
// ClosureRate is null when the agent had nothing assigned in the window.
type AgentPerformanceResponse struct {
	UserID          string   `json:"user_id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	TicketsAssigned int      `json:"tickets_assigned"`
	TicketsClosed   int      `json:"tickets_closed"`
	ClosureRate     *float64 `json:"closure_rate"`
}

// TrendPoint is one day of ticket creation volume.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DashboardResponse is the role-shaped landing summary.
type DashboardResponse struct {
	Role                   string            `json:"role"`
	Overview               *OverviewResponse `json:"overview,omitempty"`
	AverageResolutionHours *float64          `json:"average_resolution_hours,omitempty"`
	OwnByStatus            map[string]int    `json:"own_by_status,omitempty"`
	AssignedByStatus       map[string]int    `json:"assigned_by_status,omitempty"`
	OverdueAssigned        *int              `json:"overdue_assigned,omitempty"`
	Trend                  []TrendPoint      `json:"trend,omitempty"`
}

// NewOverviewResponse maps the snapshot aggregates.
func NewOverviewResponse(overview *service.AnalyticsOverview) *OverviewResponse {
	resp := &OverviewResponse{
		Total:      overview.Total,
		ByStatus:   make(map[string]int, len(overview.ByStatus)),
		ByPriority: make(map[string]int, len(overview.ByPriority)),
		ByCategory: make(map[string]int, len(overview.ByCategory)),
	}
	for status, count := range overview.ByStatus {
		resp.ByStatus[string(status)] = count
	}
	for priority, count := range overview.ByPriority {
		resp.ByPriority[string(priority)] = count
	}
	for category, count := range overview.ByCategory {
		resp.ByCategory[string(category)] = count
	}
	return resp
}

// NewAgentPerformanceResponses maps team performance entries.
func NewAgentPerformanceResponses(performance []service.AgentPerformance) []AgentPerformanceResponse {
	out := make([]AgentPerformanceResponse, 0, len(performance))
	for _, entry := range performance {
		out = append(out, AgentPerformanceResponse{
			UserID:          entry.UserID,
			Name:            entry.Name,
			Email:           entry.Email,
			TicketsAssigned: entry.TicketsAssigned,
			TicketsClosed:   entry.TicketsClosed,
			ClosureRate:     entry.ClosureRate,
		})
	}
	return out
}

// NewTrendPoints maps daily counts, dates formatted as YYYY-MM-DD.
func NewTrendPoints(trend []repository.DailyCount) []TrendPoint {
	out := make([]TrendPoint, 0, len(trend))
	for _, day := range trend {
		out = append(out, TrendPoint{Date: day.Date.Format("2006-01-02"), Count: day.Count})
	}
	return out
}

// NewDashboardResponse maps the role-shaped summary.
func NewDashboardResponse(summary *service.DashboardSummary) DashboardResponse {
	resp := DashboardResponse{
		Role:                   string(summary.Role),
		AverageResolutionHours: summary.AverageResolutionHours,
		OverdueAssigned:        summary.OverdueAssigned,
	}
	if summary.Overview != nil {
		resp.Overview = NewOverviewResponse(summary.Overview)
	}
	if summary.OwnByStatus != nil {
		resp.OwnByStatus = statusCounts(summary.OwnByStatus)
	}
	if summary.AssignedByStatus != nil {
		resp.AssignedByStatus = statusCounts(summary.AssignedByStatus)
	}
	if summary.Trend != nil {
		resp.Trend = NewTrendPoints(summary.Trend)
	}
	return resp
}

func statusCounts(counts map[domain.TicketStatus]int) map[string]int {
	out := make(map[string]int, len(counts))
	for status, count := range counts {
		out[string(status)] = count
	}
	return out
}
