package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/seremi5/expense-server/internal/api/pagination"
	"github.com/seremi5/expense-server/internal/domain/expenses"
)

// withTx runs fn inside a transaction unless the repository already joined
// one. Writes that span multiple statements go through here so a failure on
// a later statement rolls back the earlier ones.
func (r *ExpenseRepository) withTx(ctx context.Context, fn func(q queryer) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *ExpenseRepository) Create(ctx context.Context, expense *expenses.Expense) error {
	return r.withTx(ctx, func(q queryer) error {
		return r.create(ctx, q, expense)
	})
}

func (r *ExpenseRepository) create(ctx context.Context, q queryer, expense *expenses.Expense) error {
	_, err := q.Exec(ctx, `
INSERT INTO expenses (
    id, ulid, profile_id, event_id, category_id, type, merchant,
    invoice_number, invoice_date, currency, gross_cents, net_cents,
    vat_cents, note, payout_iban, status, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
`,
		expense.ID,
		expense.ULID,
		expense.ProfileID,
		expense.EventID,
		expense.CategoryID,
		string(expense.Type),
		expense.Merchant,
		expense.InvoiceNumber,
		expense.InvoiceDate,
		expense.Currency,
		expense.GrossCents,
		expense.NetCents,
		expense.VATCents,
		expense.Note,
		expense.PayoutIBAN,
		string(expense.Status),
		expense.CreatedAt,
		expense.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "expenses_ulid_key") {
			return expenses.ErrConflict
		}
		return fmt.Errorf("insert expense: %w", err)
	}

	return r.insertLineItems(ctx, q, expense.ID, expense.LineItems)
}

func (r *ExpenseRepository) GetByULID(ctx context.Context, ulid string) (*expenses.Expense, error) {
	q := pick(r.pool, r.tx)

	row := q.QueryRow(ctx, `
SELECT id, ulid, profile_id, event_id, category_id, type, merchant,
       invoice_number, invoice_date, currency, gross_cents, net_cents,
       vat_cents, note, payout_iban, status, reviewed_by, reviewed_at,
       decision_note, created_at, updated_at
  FROM expenses
 WHERE ulid = $1
`, strings.ToUpper(strings.TrimSpace(ulid)))

	expense, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, expenses.ErrNotFound
		}
		return nil, fmt.Errorf("get expense: %w", err)
	}

	items, err := r.loadLineItems(ctx, q, expense.ID)
	if err != nil {
		return nil, err
	}
	expense.LineItems = items
	return expense, nil
}

func (r *ExpenseRepository) List(ctx context.Context, filters expenses.Filters, page expenses.Pagination) (expenses.ListResult, error) {
	q := pick(r.pool, r.tx)

	var cursorCreatedAt *time.Time
	var cursorULID *string
	if strings.TrimSpace(page.After) != "" {
		cursor, err := pagination.DecodeExpenseCursor(page.After)
		if err != nil {
			return expenses.ListResult{}, err
		}
		createdAt := cursor.CreatedAt.UTC()
		cursorCreatedAt = &createdAt
		ulid := cursor.ULID
		cursorULID = &ulid
	}

	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}
	limitPlusOne := limit + 1

	var profileID *string
	if filters.ProfileID != "" {
		profileID = &filters.ProfileID
	}

	rows, err := q.Query(ctx, `
SELECT id, ulid, profile_id, event_id, category_id, type, merchant,
       invoice_number, invoice_date, currency, gross_cents, net_cents,
       vat_cents, note, payout_iban, status, reviewed_by, reviewed_at,
       decision_note, created_at, updated_at
  FROM expenses
 WHERE ($1::uuid IS NULL OR profile_id = $1::uuid)
   AND ($2 = '' OR status = $2)
   AND ($3 = '' OR type = $3)
   AND ($4::bigint IS NULL OR event_id = $4::bigint)
   AND ($5::bigint IS NULL OR category_id = $5::bigint)
   AND ($6::date IS NULL OR invoice_date >= $6::date)
   AND ($7::date IS NULL OR invoice_date <= $7::date)
   AND ($8 = '' OR (merchant ILIKE '%' || $8 || '%' OR note ILIKE '%' || $8 || '%' OR invoice_number ILIKE '%' || $8 || '%'))
   AND (
     $9::timestamptz IS NULL OR
     created_at < $9::timestamptz OR
     (created_at = $9::timestamptz AND ulid < $10)
   )
 ORDER BY created_at DESC, ulid DESC
 LIMIT $11
`,
		profileID,
		string(filters.Status),
		string(filters.Type),
		filters.EventID,
		filters.CategoryID,
		filters.StartDate,
		filters.EndDate,
		filters.Query,
		cursorCreatedAt,
		cursorULID,
		limitPlusOne,
	)
	if err != nil {
		return expenses.ListResult{}, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	items := make([]expenses.Expense, 0, limitPlusOne)
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return expenses.ListResult{}, fmt.Errorf("scan expense: %w", err)
		}
		items = append(items, *expense)
	}
	if err := rows.Err(); err != nil {
		return expenses.ListResult{}, fmt.Errorf("iterate expenses: %w", err)
	}

	result := expenses.ListResult{}
	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1]
		result.NextCursor = pagination.EncodeExpenseCursor(last.CreatedAt, last.ULID)
	}

	if err := r.attachLineItems(ctx, q, items); err != nil {
		return expenses.ListResult{}, err
	}
	result.Expenses = items
	return result, nil
}

func (r *ExpenseRepository) Replace(ctx context.Context, expense *expenses.Expense) error {
	return r.withTx(ctx, func(q queryer) error {
		return r.replace(ctx, q, expense)
	})
}

func (r *ExpenseRepository) replace(ctx context.Context, q queryer, expense *expenses.Expense) error {
	tag, err := q.Exec(ctx, `
UPDATE expenses
   SET event_id = $2, category_id = $3, type = $4, merchant = $5,
       invoice_number = $6, invoice_date = $7, currency = $8,
       gross_cents = $9, net_cents = $10, vat_cents = $11, note = $12,
       payout_iban = $13, updated_at = $14
 WHERE id = $1
`,
		expense.ID,
		expense.EventID,
		expense.CategoryID,
		string(expense.Type),
		expense.Merchant,
		expense.InvoiceNumber,
		expense.InvoiceDate,
		expense.Currency,
		expense.GrossCents,
		expense.NetCents,
		expense.VATCents,
		expense.Note,
		expense.PayoutIBAN,
		expense.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return expenses.ErrNotFound
	}

	if _, err := q.Exec(ctx, `DELETE FROM expense_line_items WHERE expense_id = $1`, expense.ID); err != nil {
		return fmt.Errorf("clear line items: %w", err)
	}
	return r.insertLineItems(ctx, q, expense.ID, expense.LineItems)
}

func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	q := pick(r.pool, r.tx)

	tag, err := q.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return expenses.ErrNotFound
	}
	return nil
}

func (r *ExpenseRepository) ApplyDecision(ctx context.Context, id string, decision expenses.Decision, reviewedAt time.Time) error {
	q := pick(r.pool, r.tx)

	tag, err := q.Exec(ctx, `
UPDATE expenses
   SET status = $2, reviewed_by = $3, reviewed_at = $4, decision_note = $5,
       updated_at = $4
 WHERE id = $1 AND status = $6
`,
		id,
		string(decision.NewStatus),
		decision.ReviewerID,
		reviewedAt,
		decision.Note,
		string(decision.FromStatus),
	)
	if err != nil {
		return fmt.Errorf("apply decision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or another reviewer decided first.
		var current string
		err := q.QueryRow(ctx, `SELECT status FROM expenses WHERE id = $1`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return expenses.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("apply decision: %w", err)
		}
		return fmt.Errorf("%w: status is now %s", expenses.ErrConflict, current)
	}
	return nil
}

func (r *ExpenseRepository) FlagStale(ctx context.Context, cutoff time.Time) ([]string, error) {
	q := pick(r.pool, r.tx)

	rows, err := q.Query(ctx, `
UPDATE expenses
   SET status = 'flagged', updated_at = now()
 WHERE status = 'submitted' AND created_at < $1
RETURNING ulid
`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("flag stale expenses: %w", err)
	}
	defer rows.Close()

	var flagged []string
	for rows.Next() {
		var ulid string
		if err := rows.Scan(&ulid); err != nil {
			return nil, fmt.Errorf("scan flagged ulid: %w", err)
		}
		flagged = append(flagged, ulid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flagged: %w", err)
	}
	return flagged, nil
}

func (r *ExpenseRepository) insertLineItems(ctx context.Context, q queryer, expenseID string, items []expenses.LineItem) error {
	for position, item := range items {
		_, err := q.Exec(ctx, `
INSERT INTO expense_line_items (id, expense_id, position, description, quantity, unit_cents, vat_rate_bps, gross_cents)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`,
			item.ID,
			expenseID,
			position,
			item.Description,
			item.Quantity,
			item.UnitCents,
			item.VATRateBps,
			item.GrossCents,
		)
		if err != nil {
			return fmt.Errorf("insert line item: %w", err)
		}
	}
	return nil
}

func (r *ExpenseRepository) loadLineItems(ctx context.Context, q queryer, expenseID string) ([]expenses.LineItem, error) {
	rows, err := q.Query(ctx, `
SELECT id, description, quantity, unit_cents, vat_rate_bps, gross_cents
  FROM expense_line_items
 WHERE expense_id = $1
 ORDER BY position
`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("load line items: %w", err)
	}
	defer rows.Close()

	var items []expenses.LineItem
	for rows.Next() {
		var item expenses.LineItem
		if err := rows.Scan(&item.ID, &item.Description, &item.Quantity, &item.UnitCents, &item.VATRateBps, &item.GrossCents); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line items: %w", err)
	}
	return items, nil
}

// attachLineItems loads line items for a page of expenses in one query.
func (r *ExpenseRepository) attachLineItems(ctx context.Context, q queryer, items []expenses.Expense) error {
	if len(items) == 0 {
		return nil
	}

	index := make(map[string]int, len(items))
	expenseIDs := make([]string, 0, len(items))
	for i, expense := range items {
		index[expense.ID] = i
		expenseIDs = append(expenseIDs, expense.ID)
	}

	rows, err := q.Query(ctx, `
SELECT expense_id, id, description, quantity, unit_cents, vat_rate_bps, gross_cents
  FROM expense_line_items
 WHERE expense_id = ANY($1::uuid[])
 ORDER BY expense_id, position
`, expenseIDs)
	if err != nil {
		return fmt.Errorf("load line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var expenseID string
		var item expenses.LineItem
		if err := rows.Scan(&expenseID, &item.ID, &item.Description, &item.Quantity, &item.UnitCents, &item.VATRateBps, &item.GrossCents); err != nil {
			return fmt.Errorf("scan line item: %w", err)
		}
		if i, ok := index[expenseID]; ok {
			items[i].LineItems = append(items[i].LineItems, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate line items: %w", err)
	}
	return nil
}

// scanExpense reads one expense row in SELECT column order.
func scanExpense(row pgx.Row) (*expenses.Expense, error) {
	var expense expenses.Expense
	var expenseType, status string
	if err := row.Scan(
		&expense.ID,
		&expense.ULID,
		&expense.ProfileID,
		&expense.EventID,
		&expense.CategoryID,
		&expenseType,
		&expense.Merchant,
		&expense.InvoiceNumber,
		&expense.InvoiceDate,
		&expense.Currency,
		&expense.GrossCents,
		&expense.NetCents,
		&expense.VATCents,
		&expense.Note,
		&expense.PayoutIBAN,
		&status,
		&expense.ReviewedBy,
		&expense.ReviewedAt,
		&expense.DecisionNote,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	); err != nil {
		return nil, err
	}
	expense.Type = expenses.Type(expenseType)
	expense.Status = expenses.Status(status)
	return &expense, nil
}
