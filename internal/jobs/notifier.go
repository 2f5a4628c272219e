package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/seremi5/expense-server/internal/domain/expenses"
)

// Notifier enqueues decision notification jobs. It satisfies the expenses
// admin service's notification dependency so the HTTP request returns as
// soon as the decision commits; delivery happens in the background with
// its own retry policy.
type Notifier struct {
	client      *river.Client[pgx.Tx]
	maxAttempts int
}

// NewNotifier wires the queue client. maxAttempts caps delivery retries per
// notification; zero or negative keeps the policy default.
func NewNotifier(client *river.Client[pgx.Tx], maxAttempts int) *Notifier {
	return &Notifier{client: client, maxAttempts: maxAttempts}
}

func (n *Notifier) DecisionApplied(ctx context.Context, expense *expenses.Expense) error {
	if n == nil || n.client == nil {
		return nil
	}
	var opts *river.InsertOpts
	if n.maxAttempts > 0 {
		opts = &river.InsertOpts{MaxAttempts: n.maxAttempts}
	}
	_, err := n.client.Insert(ctx, DecisionNotificationArgs{ExpenseULID: expense.ULID}, opts)
	if err != nil {
		return fmt.Errorf("enqueue decision notification: %w", err)
	}
	return nil
}
