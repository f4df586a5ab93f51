package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/campus-maintenance/internal/domain"
)

// TicketRatingRepository persists requester ratings.
type TicketRatingRepository interface {
	Create(ctx context.Context, rating *domain.TicketRating) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.TicketRating, error)
	ExistsByTicket(ctx context.Context, ticketID string) (bool, error)
}

type ticketRatingRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRatingRepository builds repository.
func NewTicketRatingRepository(pool *pgxpool.Pool) TicketRatingRepository {
	return &ticketRatingRepository{pool: pool}
}

func (r *ticketRatingRepository) Create(ctx context.Context, rating *domain.TicketRating) error {
	const query = `
        INSERT INTO ticket_ratings (ticket_id, rated_by, stars, comment)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		rating.TicketID,
		rating.RatedBy,
		rating.Stars,
		rating.Comment,
	).Scan(&rating.ID, &rating.CreatedAt)
}

func (r *ticketRatingRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.TicketRating, error) {
	const query = `
        SELECT id, ticket_id, rated_by, stars, comment, created_at
        FROM ticket_ratings WHERE ticket_id=$1`
	var rating domain.TicketRating
	if err := querier(ctx, r.pool).QueryRow(ctx, query, ticketID).Scan(
		&rating.ID,
		&rating.TicketID,
		&rating.RatedBy,
		&rating.Stars,
		&rating.Comment,
		&rating.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rating, nil
}

func (r *ticketRatingRepository) ExistsByTicket(ctx context.Context, ticketID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM ticket_ratings WHERE ticket_id=$1)`
	var exists bool
	if err := querier(ctx, r.pool).QueryRow(ctx, query, ticketID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
