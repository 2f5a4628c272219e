package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/seremi5/expense-server/internal/api/middleware"
	"github.com/seremi5/expense-server/internal/audit"
	"github.com/seremi5/expense-server/internal/auth"
	"github.com/seremi5/expense-server/internal/domain/expenses"
	"github.com/seremi5/expense-server/internal/domain/ids"
	"github.com/seremi5/expense-server/internal/domain/profiles"
	"github.com/golang-jwt/jwt/v5"
)

// stubExpensesRepo is an in-memory expenses.Repository for handler tests.
type stubExpensesRepo struct {
	mu     sync.Mutex
	byULID map[string]*expenses.Expense
}

func newStubExpensesRepo() *stubExpensesRepo {
	return &stubExpensesRepo{byULID: make(map[string]*expenses.Expense)}
}

func (s *stubExpensesRepo) Create(_ context.Context, expense *expenses.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *expense
	s.byULID[expense.ULID] = &clone
	return nil
}

func (s *stubExpensesRepo) GetByULID(_ context.Context, ulid string) (*expenses.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if expense, ok := s.byULID[ulid]; ok {
		clone := *expense
		return &clone, nil
	}
	return nil, expenses.ErrNotFound
}

func (s *stubExpensesRepo) List(_ context.Context, filters expenses.Filters, _ expenses.Pagination) (expenses.ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := expenses.ListResult{}
	for _, expense := range s.byULID {
		if filters.ProfileID != "" && expense.ProfileID != filters.ProfileID {
			continue
		}
		result.Expenses = append(result.Expenses, *expense)
	}
	return result, nil
}

func (s *stubExpensesRepo) Replace(_ context.Context, expense *expenses.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byULID[expense.ULID]; !ok {
		return expenses.ErrNotFound
	}
	clone := *expense
	s.byULID[expense.ULID] = &clone
	return nil
}

func (s *stubExpensesRepo) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ulid, expense := range s.byULID {
		if expense.ID == id {
			delete(s.byULID, ulid)
			return nil
		}
	}
	return expenses.ErrNotFound
}

func (s *stubExpensesRepo) ApplyDecision(_ context.Context, id string, decision expenses.Decision, reviewedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, expense := range s.byULID {
		if expense.ID == id {
			if expense.Status != decision.FromStatus {
				return expenses.ErrConflict
			}
			expense.Status = decision.NewStatus
			expense.ReviewedBy = &decision.ReviewerID
			expense.ReviewedAt = &reviewedAt
			expense.DecisionNote = decision.Note
			return nil
		}
	}
	return expenses.ErrNotFound
}

func (s *stubExpensesRepo) FlagStale(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var flagged []string
	for _, expense := range s.byULID {
		if expense.Status == expenses.StatusSubmitted && expense.CreatedAt.Before(cutoff) {
			expense.Status = expenses.StatusFlagged
			flagged = append(flagged, expense.ULID)
		}
	}
	return flagged, nil
}

// stubProfilesRepo is an in-memory profiles.Repository for handler tests.
type stubProfilesRepo struct {
	mu   sync.Mutex
	byID map[string]*profiles.Profile
}

func newStubProfilesRepo() *stubProfilesRepo {
	return &stubProfilesRepo{byID: make(map[string]*profiles.Profile)}
}

func (s *stubProfilesRepo) Create(_ context.Context, profile *profiles.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *profile
	s.byID[profile.ID] = &clone
	return nil
}

func (s *stubProfilesRepo) GetByID(_ context.Context, id string) (*profiles.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if profile, ok := s.byID[id]; ok {
		clone := *profile
		return &clone, nil
	}
	return nil, profiles.ErrNotFound
}

func (s *stubProfilesRepo) GetByEmail(_ context.Context, email string) (*profiles.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, profile := range s.byID {
		if profile.Email == email {
			clone := *profile
			return &clone, nil
		}
	}
	return nil, profiles.ErrNotFound
}

func (s *stubProfilesRepo) Update(_ context.Context, profile *profiles.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[profile.ID]; !ok {
		return profiles.ErrNotFound
	}
	clone := *profile
	s.byID[profile.ID] = &clone
	return nil
}

func (s *stubProfilesRepo) List(_ context.Context) ([]profiles.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []profiles.Profile
	for _, profile := range s.byID {
		all = append(all, *profile)
	}
	return all, nil
}

// stubAuditRepo collects audit entries in insertion order.
type stubAuditRepo struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func newStubAuditRepo() *stubAuditRepo {
	return &stubAuditRepo{}
}

func (s *stubAuditRepo) Insert(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Seq = int64(len(s.entries) + 1)
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubAuditRepo) List(_ context.Context, filters audit.Filters, page audit.Page) (audit.ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}
	result := audit.ListResult{}
	for _, entry := range s.entries {
		if entry.Seq <= page.AfterSeq {
			continue
		}
		if filters.Actor != "" && entry.Actor != filters.Actor {
			continue
		}
		if filters.Action != "" && entry.Action != filters.Action {
			continue
		}
		if len(result.Entries) == limit {
			result.HasMore = true
			break
		}
		result.Entries = append(result.Entries, entry)
		result.LastSeq = entry.Seq
	}
	return result, nil
}

func (s *stubAuditRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []audit.Entry
	var deleted int64
	for _, entry := range s.entries {
		if entry.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, entry)
	}
	s.entries = kept
	return deleted, nil
}

func newHandlerTestJWT() *auth.JWTManager {
	return auth.NewJWTManager("handler-test-secret-0123456789", time.Hour, "expense-server")
}

// authedRequest attaches token claims the way BearerAuth does.
func authedRequest(r *http.Request, subject, role string) *http.Request {
	claims := &auth.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: subject,
		},
	}
	return r.WithContext(middleware.ContextWithClaims(r.Context(), claims))
}

func validExpenseInput() expenses.Input {
	return expenses.Input{
		Type:       "payable",
		Merchant:   "Kantonales Steueramt",
		Currency:   "CHF",
		GrossCents: 10810,
		NetCents:   10000,
		VATCents:   810,
	}
}

func newTestUserID() string {
	return ids.NewUUID()
}
