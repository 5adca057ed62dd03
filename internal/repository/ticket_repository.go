package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pedrovega1/it-helpdesk/internal/domain"
)

// TicketRepository encapsulates ticket persistence. Number assignment happens
// inside Create through a database sequence, so concurrent creates can never
// collide.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context) ([]domain.Ticket, error)
	SetStatus(ctx context.Context, id int64, status domain.TicketStatus) error
	FindActiveByChatID(ctx context.Context, chatID string) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool, timeout time.Duration) TicketRepository {
	return &ticketRepository{pool: pool, timeout: timeout}
}

const ticketColumns = `id, number, reporter_name, reporter_handle, chat_id, department, status, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	ctx, cancel := boundQuery(ctx, r.timeout)
	defer cancel()

	const query = `
        INSERT INTO tickets (number, reporter_name, reporter_handle, chat_id, department, status)
        VALUES ('IT-' || lpad(nextval('ticket_number_seq')::text, 4, '0'), $1, $2, $3, $4, $5)
        RETURNING id, number, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ReporterName,
		ticket.ReporterHandle,
		ticket.ChatID,
		ticket.Department,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.Number, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	ctx, cancel := boundQuery(ctx, r.timeout)
	defer cancel()

	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	ctx, cancel := boundQuery(ctx, r.timeout)
	defer cancel()

	const query = `SELECT ` + ticketColumns + ` FROM tickets ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) SetStatus(ctx context.Context, id int64, status domain.TicketStatus) error {
	ctx, cancel := boundQuery(ctx, r.timeout)
	defer cancel()

	const query = `UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) FindActiveByChatID(ctx context.Context, chatID string) (*domain.Ticket, error) {
	ctx, cancel := boundQuery(ctx, r.timeout)
	defer cancel()

	const query = `
        SELECT ` + ticketColumns + ` FROM tickets
        WHERE chat_id=$1 AND status <> 'resolved'
        ORDER BY created_at DESC LIMIT 1`
	ticket, err := r.fetchSingle(ctx, query, chatID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return ticket, err
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.ReporterName,
		&ticket.ReporterHandle,
		&ticket.ChatID,
		&ticket.Department,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Number,
			&ticket.ReporterName,
			&ticket.ReporterHandle,
			&ticket.ChatID,
			&ticket.Department,
			&ticket.Status,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func boundQuery(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
