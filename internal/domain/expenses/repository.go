package expenses

import (
	"context"
	"time"
)

// Repository is the persistence contract for expenses. Implementations live
// in internal/storage/postgres.
type Repository interface {
	Create(ctx context.Context, expense *Expense) error
	GetByULID(ctx context.Context, ulid string) (*Expense, error)
	List(ctx context.Context, filters Filters, page Pagination) (ListResult, error)
	// Replace overwrites the mutable fields and line items of an expense.
	Replace(ctx context.Context, expense *Expense) error
	Delete(ctx context.Context, id string) error
	// ApplyDecision updates status and review metadata in one statement.
	ApplyDecision(ctx context.Context, id string, decision Decision, reviewedAt time.Time) error
	// FlagStale moves expenses stuck in submitted since before cutoff to
	// flagged, returning the public IDs of the affected rows.
	FlagStale(ctx context.Context, cutoff time.Time) ([]string, error)
}
