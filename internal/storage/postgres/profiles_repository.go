package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/seremi5/expense-server/internal/domain/profiles"
)

const profileColumns = `id, email, password_hash, role, first_name, last_name,
       street, postal_code, city, iban, bank_name, created_at, updated_at`

func (r *ProfileRepository) Create(ctx context.Context, profile *profiles.Profile) error {
	q := pick(r.pool, r.tx)

	_, err := q.Exec(ctx, `
INSERT INTO profiles (id, email, password_hash, role, first_name, last_name,
                      street, postal_code, city, iban, bank_name, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`,
		profile.ID,
		profile.Email,
		profile.PasswordHash,
		string(profile.Role),
		profile.FirstName,
		profile.LastName,
		profile.Street,
		profile.PostalCode,
		profile.City,
		profile.IBAN,
		profile.BankName,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "profiles_email_key") {
			return profiles.ErrEmailTaken
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*profiles.Profile, error) {
	q := pick(r.pool, r.tx)
	row := q.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	return scanProfile(row)
}

func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*profiles.Profile, error) {
	q := pick(r.pool, r.tx)
	row := q.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
	return scanProfile(row)
}

func (r *ProfileRepository) Update(ctx context.Context, profile *profiles.Profile) error {
	q := pick(r.pool, r.tx)

	tag, err := q.Exec(ctx, `
UPDATE profiles
   SET email = $2, password_hash = $3, role = $4, first_name = $5,
       last_name = $6, street = $7, postal_code = $8, city = $9,
       iban = $10, bank_name = $11, updated_at = $12
 WHERE id = $1
`,
		profile.ID,
		profile.Email,
		profile.PasswordHash,
		string(profile.Role),
		profile.FirstName,
		profile.LastName,
		profile.Street,
		profile.PostalCode,
		profile.City,
		profile.IBAN,
		profile.BankName,
		profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return profiles.ErrNotFound
	}
	return nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]profiles.Profile, error) {
	q := pick(r.pool, r.tx)

	rows, err := q.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []profiles.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return out, nil
}

func scanProfile(row pgx.Row) (*profiles.Profile, error) {
	var profile profiles.Profile
	var role string
	if err := row.Scan(
		&profile.ID,
		&profile.Email,
		&profile.PasswordHash,
		&role,
		&profile.FirstName,
		&profile.LastName,
		&profile.Street,
		&profile.PostalCode,
		&profile.City,
		&profile.IBAN,
		&profile.BankName,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profiles.ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	profile.Role = profiles.Role(role)
	return &profile, nil
}
