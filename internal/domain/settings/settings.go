// Package settings manages the lookup tables expenses reference: events
// an expense was incurred for and bookkeeping categories. Both are
// admin-managed and soft-deactivated rather than deleted so existing
// expenses keep their references.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seremi5/expense-server/internal/sanitize"
)

var (
	ErrNotFound = errors.New("setting not found")
	ErrInUse    = errors.New("setting is referenced by expenses")
)

// Event is something expenses can be booked against, like a conference
// or a campaign.
type Event struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	StartsOn  *time.Time `json:"startsOn,omitempty"`
	EndsOn    *time.Time `json:"endsOn,omitempty"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Category is a bookkeeping category with its ledger account number.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Account   string    `json:"account,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository persists events and categories.
type Repository interface {
	ListEvents(ctx context.Context, includeInactive bool) ([]Event, error)
	CreateEvent(ctx context.Context, event *Event) error
	UpdateEvent(ctx context.Context, event *Event) error
	ListCategories(ctx context.Context, includeInactive bool) ([]Category, error)
	CreateCategory(ctx context.Context, category *Category) error
	UpdateCategory(ctx context.Context, category *Category) error
	GetEvent(ctx context.Context, id int64) (*Event, error)
	GetCategory(ctx context.Context, id int64) (*Category, error)
}

// EventInput creates or renames an event.
type EventInput struct {
	Name     string `json:"name"`
	StartsOn string `json:"starts_on"`
	EndsOn   string `json:"ends_on"`
}

// CategoryInput creates or renames a category.
type CategoryInput struct {
	Name    string `json:"name"`
	Account string `json:"account"`
}

type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Service wraps the repository with input checks and sanitization.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Events returns active events for the submit form, or all events when
// includeInactive is set (admin view).
func (s *Service) Events(ctx context.Context, includeInactive bool) ([]Event, error) {
	return s.repo.ListEvents(ctx, includeInactive)
}

// Categories mirrors Events for bookkeeping categories.
func (s *Service) Categories(ctx context.Context, includeInactive bool) ([]Category, error) {
	return s.repo.ListCategories(ctx, includeInactive)
}

func (s *Service) CreateEvent(ctx context.Context, input EventInput) (*Event, error) {
	event, err := s.buildEvent(input)
	if err != nil {
		return nil, err
	}
	event.Active = true
	event.CreatedAt = s.now().UTC()
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

func (s *Service) UpdateEvent(ctx context.Context, id int64, input EventInput) (*Event, error) {
	existing, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.buildEvent(input)
	if err != nil {
		return nil, err
	}
	existing.Name = updated.Name
	existing.StartsOn = updated.StartsOn
	existing.EndsOn = updated.EndsOn
	if err := s.repo.UpdateEvent(ctx, existing); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return existing, nil
}

// SetEventActive toggles an event in or out of the submit form.
func (s *Service) SetEventActive(ctx context.Context, id int64, active bool) (*Event, error) {
	existing, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.Active = active
	if err := s.repo.UpdateEvent(ctx, existing); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return existing, nil
}

func (s *Service) CreateCategory(ctx context.Context, input CategoryInput) (*Category, error) {
	category, err := buildCategory(input)
	if err != nil {
		return nil, err
	}
	category.Active = true
	category.CreatedAt = s.now().UTC()
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, input CategoryInput) (*Category, error) {
	existing, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := buildCategory(input)
	if err != nil {
		return nil, err
	}
	existing.Name = updated.Name
	existing.Account = updated.Account
	if err := s.repo.UpdateCategory(ctx, existing); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return existing, nil
}

func (s *Service) SetCategoryActive(ctx context.Context, id int64, active bool) (*Category, error) {
	existing, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.Active = active
	if err := s.repo.UpdateCategory(ctx, existing); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return existing, nil
}

func (s *Service) buildEvent(input EventInput) (*Event, error) {
	name := sanitize.Text(input.Name)
	if name == "" {
		return nil, FieldError{Field: "name", Message: "is required"}
	}
	if len(name) > 200 {
		return nil, FieldError{Field: "name", Message: "must be at most 200 characters"}
	}
	event := &Event{Name: name}

	var err error
	if event.StartsOn, err = parseDate("starts_on", input.StartsOn); err != nil {
		return nil, err
	}
	if event.EndsOn, err = parseDate("ends_on", input.EndsOn); err != nil {
		return nil, err
	}
	if event.StartsOn != nil && event.EndsOn != nil && event.EndsOn.Before(*event.StartsOn) {
		return nil, FieldError{Field: "ends_on", Message: "must be on or after starts_on"}
	}
	return event, nil
}

func buildCategory(input CategoryInput) (*Category, error) {
	name := sanitize.Text(input.Name)
	if name == "" {
		return nil, FieldError{Field: "name", Message: "is required"}
	}
	if len(name) > 200 {
		return nil, FieldError{Field: "name", Message: "must be at most 200 characters"}
	}
	return &Category{Name: name, Account: sanitize.Text(input.Account)}, nil
}

func parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, FieldError{Field: field, Message: "must be an ISO8601 date"}
	}
	return &parsed, nil
}
