package expenses

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	byULID    map[string]*Expense
	createErr error
	listCalls []Filters
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byULID: map[string]*Expense{}}
}

func (f *fakeRepo) Create(_ context.Context, expense *Expense) error {
	if f.createErr != nil {
		return f.createErr
	}
	clone := *expense
	f.byULID[expense.ULID] = &clone
	return nil
}

func (f *fakeRepo) GetByULID(_ context.Context, ulid string) (*Expense, error) {
	expense, ok := f.byULID[ulid]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *expense
	return &clone, nil
}

func (f *fakeRepo) List(_ context.Context, filters Filters, _ Pagination) (ListResult, error) {
	f.listCalls = append(f.listCalls, filters)
	var result ListResult
	for _, expense := range f.byULID {
		if filters.ProfileID != "" && expense.ProfileID != filters.ProfileID {
			continue
		}
		result.Expenses = append(result.Expenses, *expense)
	}
	return result, nil
}

func (f *fakeRepo) Replace(_ context.Context, expense *Expense) error {
	clone := *expense
	f.byULID[expense.ULID] = &clone
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	for ulid, expense := range f.byULID {
		if expense.ID == id {
			delete(f.byULID, ulid)
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRepo) ApplyDecision(_ context.Context, id string, decision Decision, reviewedAt time.Time) error {
	for _, expense := range f.byULID {
		if expense.ID == id {
			if expense.Status != decision.FromStatus {
				return ErrConflict
			}
			expense.Status = decision.NewStatus
			expense.ReviewedBy = &decision.ReviewerID
			expense.ReviewedAt = &reviewedAt
			expense.DecisionNote = decision.Note
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRepo) FlagStale(_ context.Context, cutoff time.Time) ([]string, error) {
	var flagged []string
	for _, expense := range f.byULID {
		if expense.Status == StatusSubmitted && expense.CreatedAt.Before(cutoff) {
			expense.Status = StatusFlagged
			flagged = append(flagged, expense.ULID)
		}
	}
	return flagged, nil
}

type fakeBanks struct {
	iban string
	err  error
}

func (f *fakeBanks) IBANFor(_ context.Context, _ string) (string, error) {
	return f.iban, f.err
}

func validInput() Input {
	return Input{
		Type:       string(TypePayable),
		Merchant:   "Kantonales Steueramt",
		Currency:   "CHF",
		GrossCents: 10810,
		NetCents:   10000,
		VATCents:   810,
	}
}

func TestSubmitCreatesSubmittedExpense(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeBanks{})

	expense, err := svc.Submit(context.Background(), "profile-1", validInput())
	require.NoError(t, err)

	assert.Equal(t, StatusSubmitted, expense.Status)
	assert.Equal(t, "profile-1", expense.ProfileID)
	assert.NotEmpty(t, expense.ID)
	assert.NotEmpty(t, expense.ULID)
	assert.Equal(t, int64(10810), expense.GrossCents)
	require.Contains(t, repo.byULID, expense.ULID)
}

func TestSubmitReimbursableRequiresIBAN(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeBanks{})

	input := validInput()
	input.Type = string(TypeReimbursable)

	_, err := svc.Submit(context.Background(), "profile-1", input)
	assert.ErrorIs(t, err, ErrBankDetailsRequired)
}

func TestSubmitReimbursableUsesInlineIBAN(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeBanks{})

	input := validInput()
	input.Type = string(TypeReimbursable)
	input.IBAN = "CH9300762011623852957"

	expense, err := svc.Submit(context.Background(), "profile-1", input)
	require.NoError(t, err)
	assert.Equal(t, "CH9300762011623852957", expense.PayoutIBAN)
}

func TestSubmitReimbursableFallsBackToProfileIBAN(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeBanks{iban: "DE89370400440532013000"})

	input := validInput()
	input.Type = string(TypeReimbursable)

	expense, err := svc.Submit(context.Background(), "profile-1", input)
	require.NoError(t, err)
	assert.Equal(t, "DE89370400440532013000", expense.PayoutIBAN)
}

func TestSubmitSanitizesFreeText(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeBanks{})

	input := validInput()
	input.Merchant = "  Coop <script>alert(1)</script>  "
	input.Note = "<b>lunch</b> with team"

	expense, err := svc.Submit(context.Background(), "profile-1", input)
	require.NoError(t, err)
	assert.Equal(t, "Coop", expense.Merchant)
	assert.Equal(t, "lunch with team", expense.Note)
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeBanks{})

	input := validInput()
	input.Currency = "FRANCS"

	_, err := svc.Submit(context.Background(), "profile-1", input)
	var fieldErr FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "currency", fieldErr.Field)
}

func TestGetHidesForeignExpenses(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeBanks{})

	created, err := svc.Submit(context.Background(), "profile-1", validInput())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "profile-2", created.ULID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := svc.Get(context.Background(), "profile-1", created.ULID)
	require.NoError(t, err)
	assert.Equal(t, created.ULID, got.ULID)
}

func TestListScopesToOwner(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeBanks{})

	_, err := svc.List(context.Background(), "profile-1", Filters{ProfileID: "profile-2"}, Pagination{Limit: 50})
	require.NoError(t, err)

	require.Len(t, repo.listCalls, 1)
	assert.Equal(t, "profile-1", repo.listCalls[0].ProfileID)
}

func TestUpdateOnlyWhileSubmitted(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeBanks{})

	created, err := svc.Submit(context.Background(), "profile-1", validInput())
	require.NoError(t, err)

	repo.byULID[created.ULID].Status = StatusValidated

	_, err = svc.Update(context.Background(), "profile-1", created.ULID, validInput())
	assert.ErrorIs(t, err, ErrNotEditable)
}

func TestUpdateReplacesFieldsAndKeepsIdentity(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeBanks{})

	created, err := svc.Submit(context.Background(), "profile-1", validInput())
	require.NoError(t, err)

	input := validInput()
	input.Merchant = "Migros"

	updated, err := svc.Update(context.Background(), "profile-1", created.ULID, input)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.ULID, updated.ULID)
	assert.Equal(t, "Migros", updated.Merchant)
	assert.Equal(t, StatusSubmitted, updated.Status)
}

func TestDeleteOnlyWhileSubmitted(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeBanks{})

	created, err := svc.Submit(context.Background(), "profile-1", validInput())
	require.NoError(t, err)

	repo.byULID[created.ULID].Status = StatusReadyToPay
	err = svc.Delete(context.Background(), "profile-1", created.ULID)
	assert.ErrorIs(t, err, ErrNotEditable)

	repo.byULID[created.ULID].Status = StatusSubmitted
	require.NoError(t, svc.Delete(context.Background(), "profile-1", created.ULID))
	assert.NotContains(t, repo.byULID, created.ULID)
}

func TestSubmitWrapsRepositoryError(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("connection reset")
	svc := NewService(repo, &fakeBanks{})

	_, err := svc.Submit(context.Background(), "profile-1", validInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create expense")
}
