package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/campus-maintenance/internal/domain"
)

// NotificationRepository persists per-user inbox entries.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByUser(ctx context.Context, userID string) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository instantiates the repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, title, body, type, link_url)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		notification.UserID,
		notification.Title,
		notification.Body,
		notification.Type,
		notification.LinkURL,
	).Scan(&notification.ID, &notification.CreatedAt)
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	const query = `
        SELECT id, user_id, title, body, type, link_url, read_flag, created_at
        FROM notifications WHERE user_id=$1 ORDER BY created_at DESC`
	rows, err := querier(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Title,
			&n.Body,
			&n.Type,
			&n.LinkURL,
			&n.Read,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND read_flag=FALSE`
	var count int
	if err := querier(ctx, r.pool).QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	const query = `UPDATE notifications SET read_flag=TRUE WHERE id=$1 AND user_id=$2`
	cmd, err := querier(ctx, r.pool).Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	const query = `UPDATE notifications SET read_flag=TRUE WHERE user_id=$1 AND read_flag=FALSE`
	_, err := querier(ctx, r.pool).Exec(ctx, query, userID)
	return err
}
