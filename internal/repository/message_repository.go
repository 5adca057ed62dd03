package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pedrovega1/it-helpdesk/internal/domain"
)

// MessageRepository encapsulates conversation thread persistence.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Message, error)
	ListAll(ctx context.Context) ([]domain.Message, error)
}

type messageRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewMessageRepository instantiates repository.
func NewMessageRepository(pool *pgxpool.Pool, timeout time.Duration) MessageRepository {
	return &messageRepository{pool: pool, timeout: timeout}
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	ctx, cancel := boundQuery(ctx, r.timeout)
	defer cancel()

	const query = `
        INSERT INTO messages (ticket_id, role, text)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		message.TicketID,
		message.Role,
		message.Text,
	).Scan(&message.ID, &message.CreatedAt)
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Message, error) {
	ctx, cancel := boundQuery(ctx, r.timeout)
	defer cancel()

	const query = `
        SELECT id, ticket_id, role, text, created_at FROM messages
        WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *messageRepository) ListAll(ctx context.Context) ([]domain.Message, error) {
	ctx, cancel := boundQuery(ctx, r.timeout)
	defer cancel()

	const query = `SELECT id, ticket_id, role, text, created_at FROM messages ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.TicketID, &msg.Role, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
