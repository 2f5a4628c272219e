package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/seremi5/expense-server/internal/domain/expenses"
	"github.com/seremi5/expense-server/internal/storage"
)

func TestRepositoryWithTxCommit(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)

	repo, err := NewRepository(pool)
	require.NoError(t, err)

	profileID := insertProfile(t, ctx, pool, "anna@example.org", "user")
	ulidValue := ulid.Make().String()

	err = repo.WithTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		return tx.Expenses().Create(ctx, &expenses.Expense{
			ID:         uuid.NewString(),
			ULID:       ulidValue,
			ProfileID:  profileID,
			Type:       expenses.TypePayable,
			Merchant:   "Migros",
			Currency:   "CHF",
			GrossCents: 500,
			NetCents:   500,
			Status:     expenses.StatusSubmitted,
			CreatedAt:  time.Now().UTC(),
			UpdatedAt:  time.Now().UTC(),
		})
	})
	require.NoError(t, err)

	_, err = repo.Expenses().GetByULID(ctx, ulidValue)
	require.NoError(t, err)
}

func TestRepositoryWithTxRollback(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)

	repo, err := NewRepository(pool)
	require.NoError(t, err)

	profileID := insertProfile(t, ctx, pool, "anna@example.org", "user")
	ulidValue := ulid.Make().String()
	boom := errors.New("boom")

	err = repo.WithTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		createErr := tx.Expenses().Create(ctx, &expenses.Expense{
			ID:         uuid.NewString(),
			ULID:       ulidValue,
			ProfileID:  profileID,
			Type:       expenses.TypePayable,
			Merchant:   "Migros",
			Currency:   "CHF",
			GrossCents: 500,
			NetCents:   500,
			Status:     expenses.StatusSubmitted,
			CreatedAt:  time.Now().UTC(),
			UpdatedAt:  time.Now().UTC(),
		})
		require.NoError(t, createErr)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repo.Expenses().GetByULID(ctx, ulidValue)
	require.ErrorIs(t, err, expenses.ErrNotFound)
}

func TestNewRepositoryNilPool(t *testing.T) {
	_, err := NewRepository(nil)
	require.Error(t, err)
}
