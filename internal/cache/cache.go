package cache

import (
	"context"

	"github.com/pedrovega1/it-helpdesk/internal/domain"
)

// ListingCache memoizes the hydrated "all tickets" listing for a short TTL.
// It is a pure performance layer: a miss always falls through to the store,
// and every ticket mutation must call Invalidate before the mutation is
// acknowledged.
type ListingCache interface {
	Get(ctx context.Context) ([]domain.Ticket, bool)
	Set(ctx context.Context, tickets []domain.Ticket)
	Invalidate(ctx context.Context)
}
