package repository

import (
	"context"
	"time"

	"github.com/helpdesk-io/ticketing-service/internal/domain"
)

// AgentWorkload carries per-agent assignment counts within a window.
type AgentWorkload struct {
	UserID          string
	Name            string
	Email           string
	TicketsAssigned int
	TicketsClosed   int
}

// DailyCount is one bucket of the creation trend.
type DailyCount struct {
	Date  time.Time
	Count int
}

// AnalyticsRepository runs the read-only aggregations the dashboards need.
type AnalyticsRepository interface {
	CountByStatus(ctx context.Context) (map[domain.TicketStatus]int, error)
	CountByPriority(ctx context.Context) (map[domain.TicketPriority]int, error)
	CountByCategory(ctx context.Context) (map[domain.TicketCategory]int, error)
	AverageResolutionHours(ctx context.Context, closedFrom time.Time) (float64, error)
	AgentWorkloads(ctx context.Context, from time.Time) ([]AgentWorkload, error)
	CreationTrend(ctx context.Context, from time.Time) ([]DailyCount, error)
	OverdueCountForAssignee(ctx context.Context, userID string, now time.Time) (int, error)
	CountForCreator(ctx context.Context, userID string) (map[domain.TicketStatus]int, error)
	CountForAssignee(ctx context.Context, userID string) (map[domain.TicketStatus]int, error)
}

type analyticsRepository struct {
	db Querier
}

// NewAnalyticsRepository builds repository.
func NewAnalyticsRepository(db Querier) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) CountByStatus(ctx context.Context) (map[domain.TicketStatus]int, error) {
	const query = `SELECT status, COUNT(*) FROM tickets GROUP BY status`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[domain.TicketStatus]int)
	for rows.Next() {
		var status domain.TicketStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		result[status] = count
	}
	return result, rows.Err()
}

func (r *analyticsRepository) CountByPriority(ctx context.Context) (map[domain.TicketPriority]int, error) {
	const query = `SELECT priority, COUNT(*) FROM tickets GROUP BY priority`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[domain.TicketPriority]int)
	for rows.Next() {
		var priority domain.TicketPriority
		var count int
		if err := rows.Scan(&priority, &count); err != nil {
			return nil, err
		}
		result[priority] = count
	}
	return result, rows.Err()
}

func (r *analyticsRepository) CountByCategory(ctx context.Context) (map[domain.TicketCategory]int, error) {
	const query = `SELECT category, COUNT(*) FROM tickets GROUP BY category`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[domain.TicketCategory]int)
	for rows.Next() {
		var category domain.TicketCategory
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		result[category] = count
	}
	return result, rows.Err()
}

// AverageResolutionHours returns the mean closure time over tickets closed in
// the window. COALESCE keeps the empty window at 0 rather than NULL.
func (r *analyticsRepository) AverageResolutionHours(ctx context.Context, closedFrom time.Time) (float64, error) {
	const query = `
        SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (closed_at - created_at)) / 3600.0), 0)
        FROM tickets
        WHERE status='closed' AND closed_at IS NOT NULL AND closed_at >= $1`
	var avg float64
	if err := r.db.QueryRow(ctx, query, closedFrom).Scan(&avg); err != nil {
		return 0, err
	}
	return avg, nil
}

func (r *analyticsRepository) AgentWorkloads(ctx context.Context, from time.Time) ([]AgentWorkload, error) {
	const query = `
        SELECT u.id, u.name, u.email,
               COUNT(t.id) FILTER (WHERE t.created_at >= $1) AS assigned,
               COUNT(t.id) FILTER (WHERE t.status='closed' AND t.closed_at >= $1) AS closed
        FROM users u
        LEFT JOIN tickets t ON t.assigned_to = u.id
        WHERE u.role='automation_team'
        GROUP BY u.id, u.name, u.email
        ORDER BY closed DESC`
	rows, err := r.db.Query(ctx, query, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AgentWorkload
	for rows.Next() {
		var w AgentWorkload
		if err := rows.Scan(&w.UserID, &w.Name, &w.Email, &w.TicketsAssigned, &w.TicketsClosed); err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// CreationTrend returns a sparse ascending series; days without tickets are
// simply absent.
func (r *analyticsRepository) CreationTrend(ctx context.Context, from time.Time) ([]DailyCount, error) {
	const query = `
        SELECT DATE_TRUNC('day', created_at)::date AS day, COUNT(*)
        FROM tickets WHERE created_at >= $1
        GROUP BY day ORDER BY day ASC`
	rows, err := r.db.Query(ctx, query, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DailyCount
	for rows.Next() {
		var bucket DailyCount
		if err := rows.Scan(&bucket.Date, &bucket.Count); err != nil {
			return nil, err
		}
		result = append(result, bucket)
	}
	return result, rows.Err()
}

func (r *analyticsRepository) OverdueCountForAssignee(ctx context.Context, userID string, now time.Time) (int, error) {
	const query = `
        SELECT COUNT(*) FROM tickets
        WHERE assigned_to=$1 AND due_date IS NOT NULL AND due_date < $2
          AND status IN ('open', 'in_progress')`
	var count int
	if err := r.db.QueryRow(ctx, query, userID, now).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *analyticsRepository) CountForCreator(ctx context.Context, userID string) (map[domain.TicketStatus]int, error) {
	return r.countByStatusWhere(ctx, `created_by=$1`, userID)
}

func (r *analyticsRepository) CountForAssignee(ctx context.Context, userID string) (map[domain.TicketStatus]int, error) {
	return r.countByStatusWhere(ctx, `assigned_to=$1`, userID)
}

func (r *analyticsRepository) countByStatusWhere(ctx context.Context, clause, userID string) (map[domain.TicketStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM tickets WHERE ` + clause + ` GROUP BY status`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[domain.TicketStatus]int)
	for rows.Next() {
		var status domain.TicketStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		result[status] = count
	}
	return result, rows.Err()
}
