package expenses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seremi5/expense-server/internal/domain/ids"
	"github.com/seremi5/expense-server/internal/sanitize"
)

// BankDirectory resolves the stored payout IBAN for a profile. The expenses
// service only needs this one lookup from the profiles domain.
type BankDirectory interface {
	IBANFor(ctx context.Context, profileID string) (string, error)
}

// Service implements the owner-facing expense operations.
type Service struct {
	repo  Repository
	banks BankDirectory
	now   func() time.Time
}

func NewService(repo Repository, banks BankDirectory) *Service {
	return &Service{repo: repo, banks: banks, now: time.Now}
}

// Submit validates input and creates a new expense in the submitted state.
// Reimbursable expenses must carry an IBAN, either inline or on the profile.
func (s *Service) Submit(ctx context.Context, profileID string, input Input) (*Expense, error) {
	now := s.now().UTC()
	if err := input.Validate(now); err != nil {
		return nil, err
	}

	payoutIBAN, err := s.resolveIBAN(ctx, profileID, input)
	if err != nil {
		return nil, err
	}

	publicID, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("mint expense id: %w", err)
	}

	expense := buildExpense(input)
	expense.ID = ids.NewUUID()
	expense.ULID = publicID
	expense.ProfileID = profileID
	expense.PayoutIBAN = payoutIBAN
	expense.Status = StatusSubmitted
	expense.CreatedAt = now
	expense.UpdatedAt = now

	if err := s.repo.Create(ctx, expense); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	return expense, nil
}

// Get returns an expense owned by profileID.
func (s *Service) Get(ctx context.Context, profileID, ulid string) (*Expense, error) {
	expense, err := s.repo.GetByULID(ctx, ulid)
	if err != nil {
		return nil, err
	}
	if expense.ProfileID != profileID {
		// Ownership failures read as not-found so IDs cannot be probed.
		return nil, ErrNotFound
	}
	return expense, nil
}

// List returns the caller's expenses, filtered and cursor-paginated.
func (s *Service) List(ctx context.Context, profileID string, filters Filters, page Pagination) (ListResult, error) {
	filters.ProfileID = profileID
	return s.repo.List(ctx, filters, page)
}

// Update replaces a submitted expense. Anything past submitted is frozen
// for the owner; changes then go through the admin workflow.
func (s *Service) Update(ctx context.Context, profileID, ulid string, input Input) (*Expense, error) {
	now := s.now().UTC()
	if err := input.Validate(now); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, profileID, ulid)
	if err != nil {
		return nil, err
	}
	if existing.Status != StatusSubmitted {
		return nil, fmt.Errorf("%w: status is %s", ErrNotEditable, existing.Status)
	}

	payoutIBAN, err := s.resolveIBAN(ctx, profileID, input)
	if err != nil {
		return nil, err
	}

	updated := buildExpense(input)
	updated.ID = existing.ID
	updated.ULID = existing.ULID
	updated.ProfileID = existing.ProfileID
	updated.PayoutIBAN = payoutIBAN
	updated.Status = existing.Status
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = now

	if err := s.repo.Replace(ctx, updated); err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	return updated, nil
}

// Delete removes a submitted expense owned by profileID.
func (s *Service) Delete(ctx context.Context, profileID, ulid string) error {
	existing, err := s.Get(ctx, profileID, ulid)
	if err != nil {
		return err
	}
	if existing.Status != StatusSubmitted {
		return fmt.Errorf("%w: status is %s", ErrNotEditable, existing.Status)
	}
	if err := s.repo.Delete(ctx, existing.ID); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

func (s *Service) resolveIBAN(ctx context.Context, profileID string, input Input) (string, error) {
	iban := strings.TrimSpace(input.IBAN)
	if Type(input.Type) != TypeReimbursable {
		return iban, nil
	}
	if iban != "" {
		return iban, nil
	}
	if s.banks == nil {
		return "", ErrBankDetailsRequired
	}
	stored, err := s.banks.IBANFor(ctx, profileID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("lookup bank details: %w", err)
	}
	if strings.TrimSpace(stored) == "" {
		return "", ErrBankDetailsRequired
	}
	return stored, nil
}

// buildExpense maps validated input to a domain expense, sanitizing every
// free-text field on the way in.
func buildExpense(input Input) *Expense {
	expense := &Expense{
		EventID:       input.EventID,
		CategoryID:    input.CategoryID,
		Type:          Type(input.Type),
		Merchant:      sanitize.Text(input.Merchant),
		InvoiceNumber: sanitize.Text(input.InvoiceNumber),
		InvoiceDate:   input.ParsedInvoiceDate(),
		Currency:      strings.ToUpper(strings.TrimSpace(input.Currency)),
		GrossCents:    input.GrossCents,
		NetCents:      input.NetCents,
		VATCents:      input.VATCents,
		Note:          sanitize.Text(input.Note),
	}
	for _, item := range input.LineItems {
		expense.LineItems = append(expense.LineItems, LineItem{
			ID:          ids.NewUUID(),
			Description: sanitize.Text(item.Description),
			Quantity:    item.Quantity,
			UnitCents:   item.UnitCents,
			VATRateBps:  item.VATRateBps,
			GrossCents:  item.GrossCents,
		})
	}
	return expense
}
