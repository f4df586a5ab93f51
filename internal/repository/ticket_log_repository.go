package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/campus-maintenance/internal/domain"
)

// TicketLogRepository stores append-only audit entries. Entries are never
// updated or deleted.
type TicketLogRepository interface {
	Create(ctx context.Context, log *domain.TicketLog) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketLog, error)
}

type ticketLogRepository struct {
	pool *pgxpool.Pool
}

// NewTicketLogRepository builds repository.
func NewTicketLogRepository(pool *pgxpool.Pool) TicketLogRepository {
	return &ticketLogRepository{pool: pool}
}

func (r *ticketLogRepository) Create(ctx context.Context, log *domain.TicketLog) error {
	const query = `
        INSERT INTO ticket_logs (ticket_id, old_status, new_status, actor_id, note)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		log.TicketID,
		log.OldStatus,
		log.NewStatus,
		log.ActorID,
		log.Note,
	).Scan(&log.ID, &log.CreatedAt)
}

func (r *ticketLogRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketLog, error) {
	const query = `
        SELECT id, ticket_id, old_status, new_status, actor_id, note, created_at
        FROM ticket_logs WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := querier(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketLog
	for rows.Next() {
		var entry domain.TicketLog
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.ActorID,
			&entry.Note,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
