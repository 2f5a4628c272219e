// Package storage defines the aggregate persistence contract. The postgres
// subpackage provides the only real implementation; domain services depend
// on the narrower per-domain interfaces instead of this aggregate.
package storage

import (
	"context"

	"github.com/seremi5/expense-server/internal/audit"
	"github.com/seremi5/expense-server/internal/domain/expenses"
	"github.com/seremi5/expense-server/internal/domain/profiles"
	"github.com/seremi5/expense-server/internal/domain/settings"
)

// Repository groups data access by domain.
type Repository interface {
	Expenses() expenses.Repository
	Profiles() profiles.Repository
	Settings() settings.Repository
	Audit() audit.Repository

	// WithTx runs fn inside a single transaction; every repository obtained
	// from the passed Repository shares it.
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
}
