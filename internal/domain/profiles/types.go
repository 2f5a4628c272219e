package profiles

import (
	"context"
	"time"
)

// Role gates access to the admin surface.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func IsAllowedRole(value string) bool {
	return Role(value) == RoleUser || Role(value) == RoleAdmin
}

// Profile is an account plus the personal and bank details needed for
// reimbursements. ID is the internal UUID used as the owner key on expenses.
type Profile struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	FirstName    string
	LastName     string
	Street       string
	PostalCode   string
	City         string
	IBAN         string
	BankName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName is used in notification emails.
func (p *Profile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// Repository is the persistence contract for profiles.
type Repository interface {
	Create(ctx context.Context, profile *Profile) error
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	Update(ctx context.Context, profile *Profile) error
	List(ctx context.Context) ([]Profile, error)
}
