package repository

import (
	"context"

	"github.com/helpdesk-io/ticketing-service/internal/domain"
)

// HistoryRepository stores audit entries. Entries are never mutated or deleted.
type HistoryRepository interface {
	Create(ctx context.Context, entry *domain.TicketStatusHistory) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketStatusHistory, error)
}

type historyRepository struct {
	db Querier
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(db Querier) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Create(ctx context.Context, entry *domain.TicketStatusHistory) error {
	const query = `
        INSERT INTO ticket_status_history (ticket_id, old_status, new_status, changed_by, notes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, changed_at`
	return r.db.QueryRow(ctx, query,
		entry.TicketID,
		entry.OldStatus,
		entry.NewStatus,
		entry.ChangedBy,
		entry.Notes,
	).Scan(&entry.ID, &entry.ChangedAt)
}

// ListByTicket returns history newest-first for display.
func (r *historyRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketStatusHistory, error) {
	const query = `
        SELECT id, ticket_id, old_status, new_status, changed_by, changed_at, notes
        FROM ticket_status_history WHERE ticket_id=$1 ORDER BY changed_at DESC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketStatusHistory
	for rows.Next() {
		var entry domain.TicketStatusHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.ChangedBy,
			&entry.ChangedAt,
			&entry.Notes,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
