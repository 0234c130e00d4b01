package service

import (
	"context"
	"time"

	"github.com/helpdesk-io/ticketing-service/internal/domain"
	"github.com/helpdesk-io/ticketing-service/internal/repository"
	apperrors "github.com/helpdesk-io/ticketing-service/pkg/util"
)

// DefaultAnalyticsWindowDays is the reporting window applied when a request
// does not name one.
const DefaultAnalyticsWindowDays = 30

// AnalyticsOverview is the snapshot half of the dashboard: current ticket
// counts grouped by the three main dimensions.
type AnalyticsOverview struct {
	Total      int
	ByStatus   map[domain.TicketStatus]int
	ByPriority map[domain.TicketPriority]int
	ByCategory map[domain.TicketCategory]int
}

// AgentPerformance extends the raw workload with a closure rate. ClosureRate
// is nil when the agent had no assigned tickets in the window; zero and
// "no data" are different answers.
type AgentPerformance struct {
	UserID          string
	Name            string
	Email           string
	TicketsAssigned int
	TicketsClosed   int
	ClosureRate     *float64
}

// DashboardSummary is shaped by the viewer's role: admins see the global
// overview, automation team members see their own queue, regular users see
// their own tickets.
type DashboardSummary struct {
	Role                   domain.Role
	Overview               *AnalyticsOverview
	AverageResolutionHours *float64
	OwnByStatus            map[domain.TicketStatus]int
	AssignedByStatus       map[domain.TicketStatus]int
	OverdueAssigned        *int
	Trend                  []repository.DailyCount
}

// AnalyticsService computes reporting aggregates over a sliding window.
type AnalyticsService struct {
	analytics repository.AnalyticsRepository
	clock     domain.Clock
}

func NewAnalyticsService(analytics repository.AnalyticsRepository, clock domain.Clock) *AnalyticsService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &AnalyticsService{analytics: analytics, clock: clock}
}

func (s *AnalyticsService) windowStart(days int) time.Time {
	if days <= 0 {
		days = DefaultAnalyticsWindowDays
	}
	return s.clock.Now().AddDate(0, 0, -days)
}

// Overview returns current ticket counts by status, priority and category.
func (s *AnalyticsService) Overview(ctx context.Context) (*AnalyticsOverview, error) {
	byStatus, err := s.analytics.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byPriority, err := s.analytics.CountByPriority(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byCategory, err := s.analytics.CountByCategory(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	total := 0
	for _, count := range byStatus {
		total += count
	}
	return &AnalyticsOverview{
		Total:      total,
		ByStatus:   byStatus,
		ByPriority: byPriority,
		ByCategory: byCategory,
	}, nil
}

// AverageResolutionHours averages the open-to-close duration of tickets
// closed inside the window. An empty window yields zero.
func (s *AnalyticsService) AverageResolutionHours(ctx context.Context, days int) (float64, error) {
	hours, err := s.analytics.AverageResolutionHours(ctx, s.windowStart(days))
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return hours, nil
}

// TeamPerformance reports per-agent assigned/closed counts and closure rates
// for the automation team over the window.
func (s *AnalyticsService) TeamPerformance(ctx context.Context, days int) ([]AgentPerformance, error) {
	workloads, err := s.analytics.AgentWorkloads(ctx, s.windowStart(days))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	performance := make([]AgentPerformance, 0, len(workloads))
	for _, w := range workloads {
		entry := AgentPerformance{
			UserID:          w.UserID,
			Name:            w.Name,
			Email:           w.Email,
			TicketsAssigned: w.TicketsAssigned,
			TicketsClosed:   w.TicketsClosed,
		}
		if w.TicketsAssigned > 0 {
			rate := float64(w.TicketsClosed) / float64(w.TicketsAssigned) * 100
			entry.ClosureRate = &rate
		}
		performance = append(performance, entry)
	}
	return performance, nil
}

// CreationTrend returns daily creation counts inside the window, ascending,
// with zero-ticket days omitted.
func (s *AnalyticsService) CreationTrend(ctx context.Context, days int) ([]repository.DailyCount, error) {
	trend, err := s.analytics.CreationTrend(ctx, s.windowStart(days))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return trend, nil
}

// Dashboard assembles the role-shaped landing summary for the viewer.
func (s *AnalyticsService) Dashboard(ctx context.Context, viewer *domain.User, days int) (*DashboardSummary, error) {
	if viewer == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	summary := &DashboardSummary{Role: viewer.Role}

	switch {
	case viewer.IsAdmin():
		overview, err := s.Overview(ctx)
		if err != nil {
			return nil, err
		}
		hours, err := s.AverageResolutionHours(ctx, days)
		if err != nil {
			return nil, err
		}
		trend, err := s.CreationTrend(ctx, days)
		if err != nil {
			return nil, err
		}
		summary.Overview = overview
		summary.AverageResolutionHours = &hours
		summary.Trend = trend

	case viewer.IsAutomationTeam():
		assigned, err := s.analytics.CountForAssignee(ctx, viewer.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		overdue, err := s.analytics.OverdueCountForAssignee(ctx, viewer.ID, s.clock.Now())
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		summary.AssignedByStatus = assigned
		summary.OverdueAssigned = &overdue

	default:
		own, err := s.analytics.CountForCreator(ctx, viewer.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		summary.OwnByStatus = own
	}
	return summary, nil
}
