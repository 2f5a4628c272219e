package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/seremi5/expense-server/internal/auth"
	"github.com/seremi5/expense-server/internal/domain/ids"
	"github.com/seremi5/expense-server/internal/sanitize"
)

// FieldError reports a validation failure for a single input field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// RegisterInput is the signup payload.
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
}

// ProfileInput updates name and address.
type ProfileInput struct {
	FirstName  string `json:"first_name" validate:"required,max=100"`
	LastName   string `json:"last_name" validate:"required,max=100"`
	Street     string `json:"street" validate:"max=200"`
	PostalCode string `json:"postal_code" validate:"max=20"`
	City       string `json:"city" validate:"max=100"`
}

// BankDetailsInput updates the payout account.
type BankDetailsInput struct {
	IBAN     string `json:"iban" validate:"required,iban"`
	BankName string `json:"bank_name" validate:"max=200"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Service implements account registration, login and profile management.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Register creates a new user account. Email addresses are unique and
// matched case-insensitively.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Profile, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, FieldError{Field: "password", Message: err.Error()}
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	email := normalizeEmail(input.Email)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	now := s.now().UTC()
	profile := &Profile{
		ID:           ids.NewUUID(),
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
		FirstName:    sanitize.Text(input.FirstName),
		LastName:     sanitize.Text(input.LastName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, profile); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return profile, nil
}

// Authenticate verifies credentials and returns the matching profile.
// Wrong email and wrong password both return ErrInvalidCredentials so the
// response does not reveal which accounts exist.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Profile, error) {
	profile, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup profile: %w", err)
	}
	if err := auth.VerifyPassword(profile.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return profile, nil
}

// Get returns a profile by internal ID. A malformed ID reads as not found
// so callers never leak parse errors from tampered tokens.
func (s *Service) Get(ctx context.Context, id string) (*Profile, error) {
	if err := ids.ValidateUUID(id); err != nil {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile replaces name and address fields.
func (s *Service) UpdateProfile(ctx context.Context, id string, input ProfileInput) (*Profile, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	profile, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	profile.FirstName = sanitize.Text(input.FirstName)
	profile.LastName = sanitize.Text(input.LastName)
	profile.Street = sanitize.Text(input.Street)
	profile.PostalCode = sanitize.Text(input.PostalCode)
	profile.City = sanitize.Text(input.City)
	profile.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return profile, nil
}

// UpdateBankDetails replaces the payout account used for reimbursements.
func (s *Service) UpdateBankDetails(ctx context.Context, id string, input BankDetailsInput) (*Profile, error) {
	// IBANs arrive in display form ("ch93 0076 ..."); compact before
	// validating so the iban check sees the canonical representation.
	input.IBAN = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(input.IBAN), " ", ""))
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	profile, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	profile.IBAN = input.IBAN
	profile.BankName = sanitize.Text(input.BankName)
	profile.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("update bank details: %w", err)
	}
	return profile, nil
}

// IBANFor returns the stored payout IBAN for a profile. Satisfies the
// expenses.BankDirectory dependency.
func (s *Service) IBANFor(ctx context.Context, profileID string) (string, error) {
	profile, err := s.repo.GetByID(ctx, profileID)
	if err != nil {
		return "", err
	}
	return profile.IBAN, nil
}

// List returns all profiles, newest first. Admin only.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	return s.repo.List(ctx)
}

// EnsureAdmin creates or promotes the bootstrap admin account. Called on
// startup when ADMIN_EMAIL is configured.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (*Profile, error) {
	email = normalizeEmail(email)
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == RoleAdmin {
			return existing, nil
		}
		existing.Role = RoleAdmin
		existing.UpdatedAt = s.now().UTC()
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("promote admin: %w", err)
		}
		return existing, nil
	case errors.Is(err, ErrNotFound):
	default:
		return nil, fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	now := s.now().UTC()
	admin := &Profile{
		ID:           ids.NewUUID(),
		Email:        email,
		PasswordHash: hash,
		Role:         RoleAdmin,
		FirstName:    "Admin",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return admin, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateStruct(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return FieldError{
			Field:   toSnake(first.Field()),
			Message: "failed " + first.Tag() + " validation",
		}
	}
	return FieldError{Message: "invalid request"}
}

func toSnake(name string) string {
	var out strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && name[i-1] >= 'a' && name[i-1] <= 'z' {
				out.WriteByte('_')
			}
			out.WriteRune(r - 'A' + 'a')
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}
