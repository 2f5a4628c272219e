package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seremi5/expense-server/internal/audit"
	"github.com/seremi5/expense-server/internal/domain/expenses"
	"github.com/seremi5/expense-server/internal/domain/profiles"
	"github.com/seremi5/expense-server/internal/domain/settings"
	"github.com/seremi5/expense-server/internal/storage"
)

type Repository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres repository: pool is nil")
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Expenses() expenses.Repository {
	return &ExpenseRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Profiles() profiles.Repository {
	return &ProfileRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Settings() settings.Repository {
	return &SettingsRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Audit() audit.Repository {
	return &AuditRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, storage.Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	wrapped := &Repository{pool: r.pool, tx: tx}
	if err := fn(ctx, wrapped); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type ExpenseRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

type ProfileRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

type SettingsRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

type AuditRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}
