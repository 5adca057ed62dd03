package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pedrovega1/it-helpdesk/internal/domain"
)

// HistoryRepository encapsulates the append-only audit trail.
type HistoryRepository interface {
	Create(ctx context.Context, entry *domain.HistoryEntry) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.HistoryEntry, error)
	ListAll(ctx context.Context) ([]domain.HistoryEntry, error)
}

type historyRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewHistoryRepository instantiates repository.
func NewHistoryRepository(pool *pgxpool.Pool, timeout time.Duration) HistoryRepository {
	return &historyRepository{pool: pool, timeout: timeout}
}

func (r *historyRepository) Create(ctx context.Context, entry *domain.HistoryEntry) error {
	ctx, cancel := boundQuery(ctx, r.timeout)
	defer cancel()

	const query = `
        INSERT INTO ticket_history (ticket_id, action, actor)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.Action,
		entry.Actor,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *historyRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.HistoryEntry, error) {
	ctx, cancel := boundQuery(ctx, r.timeout)
	defer cancel()

	const query = `
        SELECT id, ticket_id, action, actor, created_at FROM ticket_history
        WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows)
}

func (r *historyRepository) ListAll(ctx context.Context) ([]domain.HistoryEntry, error) {
	ctx, cancel := boundQuery(ctx, r.timeout)
	defer cancel()

	const query = `SELECT id, ticket_id, action, actor, created_at FROM ticket_history ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows)
}

func scanHistory(rows pgx.Rows) ([]domain.HistoryEntry, error) {
	var result []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(&entry.ID, &entry.TicketID, &entry.Action, &entry.Actor, &entry.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
