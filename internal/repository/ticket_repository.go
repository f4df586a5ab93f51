package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/campus-maintenance/internal/domain"
)

// TicketFilter captures admin search parameters.
type TicketFilter struct {
	CreatorID  *string
	AssigneeID *string
	Statuses   []domain.TicketStatus
	Category   *domain.TicketCategory
	Urgency    *domain.UrgencyLevel
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetByIDForUpdate locks the row for the remainder of the enclosing
	// transaction, serializing concurrent mutations of the same ticket.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListAll(ctx context.Context) ([]domain.Ticket, error)
	ListOpen(ctx context.Context) ([]domain.Ticket, error)
	ListOpenByCategoryAndBuilding(ctx context.Context, category domain.TicketCategory, building string) ([]domain.Ticket, error)
	CountActiveByAssignee(ctx context.Context, assigneeID string) (int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, category, building, location, status, urgency,
               creator_id, assignee_id, created_at, updated_at, resolved_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, category, building, location, status, urgency, creator_id, assignee_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Building,
		ticket.Location,
		ticket.Status,
		ticket.Urgency,
		ticket.CreatorID,
		ticket.AssigneeID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, urgency=$2, assignee_id=$3, resolved_at=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	if err := querier(ctx, r.pool).QueryRow(ctx, query,
		ticket.Status,
		ticket.Urgency,
		ticket.AssigneeID,
		ticket.ResolvedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt); err != nil {
		return err
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1 FOR UPDATE`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := querier(ctx, r.pool).QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Building,
		&ticket.Location,
		&ticket.Status,
		&ticket.Urgency,
		&ticket.CreatorID,
		&ticket.AssigneeID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatorID != nil {
		args = append(args, *filter.CreatorID)
		clauses = append(clauses, fmt.Sprintf("creator_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.Urgency != nil {
		args = append(args, *filter.Urgency)
		clauses = append(clauses, fmt.Sprintf("urgency=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(title) LIKE %s OR LOWER(description) LIKE %s OR LOWER(building) LIKE %s OR LOWER(location) LIKE %s)",
			placeholder, placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := querier(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets ORDER BY created_at DESC`, ticketColumns)
	rows, err := querier(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListOpen(ctx context.Context) ([]domain.Ticket, error) {
	placeholders := make([]string, len(domain.OpenStatuses))
	args := make([]any, len(domain.OpenStatuses))
	for i, status := range domain.OpenStatuses {
		args[i] = status
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets
        WHERE status IN (%s)
        ORDER BY created_at ASC`, ticketColumns, strings.Join(placeholders, ","))
	rows, err := querier(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListOpenByCategoryAndBuilding(ctx context.Context, category domain.TicketCategory, building string) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets
        WHERE category=$1 AND building=$2
          AND status NOT IN ('CLOSED','REJECTED')
        ORDER BY created_at ASC`, ticketColumns)
	rows, err := querier(ctx, r.pool).Query(ctx, query, category, building)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountActiveByAssignee(ctx context.Context, assigneeID string) (int, error) {
	const query = `
        SELECT COUNT(*) FROM tickets
        WHERE assignee_id=$1 AND status NOT IN ('RESOLVED','CLOSED')`
	var count int
	if err := querier(ctx, r.pool).QueryRow(ctx, query, assigneeID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Category,
			&ticket.Building,
			&ticket.Location,
			&ticket.Status,
			&ticket.Urgency,
			&ticket.CreatorID,
			&ticket.AssigneeID,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ResolvedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
