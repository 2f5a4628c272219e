package expenses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seremi5/expense-server/internal/audit"
	"github.com/seremi5/expense-server/internal/sanitize"
)

// Notifier delivers decision outcomes to submitters. The jobs package
// implements this by enqueueing a background notification job; a nil
// notifier disables notifications.
type Notifier interface {
	DecisionApplied(ctx context.Context, expense *Expense) error
}

// AdminService implements the review workflow: listing across all owners,
// applying decisions, and marking expenses paid. Every mutation lands in
// the audit trail.
type AdminService struct {
	repo     Repository
	trail    *audit.Recorder
	notifier Notifier
	now      func() time.Time
}

func NewAdminService(repo Repository, trail *audit.Recorder, notifier Notifier) *AdminService {
	return &AdminService{repo: repo, trail: trail, notifier: notifier, now: time.Now}
}

// List returns expenses across all profiles.
func (s *AdminService) List(ctx context.Context, filters Filters, page Pagination) (ListResult, error) {
	filters.ProfileID = ""
	return s.repo.List(ctx, filters, page)
}

// Get returns any expense by public ID.
func (s *AdminService) Get(ctx context.Context, ulid string) (*Expense, error) {
	return s.repo.GetByULID(ctx, ulid)
}

// Decide applies a review decision (ready_to_pay, validated, declined or
// flagged) to an expense and records the reviewer and note.
func (s *AdminService) Decide(ctx context.Context, reviewerID, ulid string, newStatus Status, note string) (*Expense, error) {
	if !IsAllowedStatus(string(newStatus)) || newStatus == StatusSubmitted {
		return nil, FieldError{Field: "status", Message: "unsupported decision"}
	}

	expense, err := s.repo.GetByULID(ctx, ulid)
	if err != nil {
		return nil, err
	}

	if err := ValidateTransition(expense.Type, expense.Status, newStatus); err != nil {
		s.record(ctx, reviewerID, "expense.decision", expense.ULID, "failure", map[string]string{
			"from": string(expense.Status),
			"to":   string(newStatus),
		})
		return nil, err
	}

	reviewedAt := s.now().UTC()
	decision := Decision{
		ReviewerID: reviewerID,
		NewStatus:  newStatus,
		FromStatus: expense.Status,
		Note:       sanitize.Text(note),
	}
	if err := s.repo.ApplyDecision(ctx, expense.ID, decision, reviewedAt); err != nil {
		if errors.Is(err, ErrConflict) {
			// Another reviewer decided between our read and the update.
			s.record(ctx, reviewerID, "expense.decision", expense.ULID, "failure", map[string]string{
				"from": string(expense.Status),
				"to":   string(newStatus),
			})
			return nil, err
		}
		return nil, fmt.Errorf("apply decision: %w", err)
	}

	expense.Status = newStatus
	expense.ReviewedBy = &decision.ReviewerID
	expense.ReviewedAt = &reviewedAt
	expense.DecisionNote = decision.Note

	s.record(ctx, reviewerID, "expense.decision", expense.ULID, "success", map[string]string{
		"to":       string(newStatus),
		"merchant": expense.Merchant,
	})
	s.notify(ctx, expense)
	return expense, nil
}

// MarkPaid closes a ready_to_pay expense after the transfer went out.
func (s *AdminService) MarkPaid(ctx context.Context, reviewerID, ulid string) (*Expense, error) {
	return s.Decide(ctx, reviewerID, ulid, StatusPaid, "")
}

// FlagStale flags expenses idle in submitted since before cutoff so they
// surface in the review queue. Used by the periodic cleanup job.
func (s *AdminService) FlagStale(ctx context.Context, cutoff time.Time) ([]string, error) {
	flagged, err := s.repo.FlagStale(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("flag stale submissions: %w", err)
	}
	if len(flagged) > 0 {
		s.record(ctx, "system", "expense.flag_stale", strings.Join(flagged, ","), "success", map[string]string{
			"cutoff": cutoff.UTC().Format(time.RFC3339),
		})
	}
	return flagged, nil
}

func (s *AdminService) record(ctx context.Context, actor, action, resourceID, status string, details map[string]string) {
	if s.trail == nil {
		return
	}
	s.trail.Record(ctx, audit.Entry{
		Actor:        actor,
		Action:       action,
		ResourceType: "expense",
		ResourceID:   resourceID,
		Status:       status,
		Details:      details,
	})
}

func (s *AdminService) notify(ctx context.Context, expense *Expense) {
	if s.notifier == nil {
		return
	}
	// Notification delivery is best-effort; the decision already committed.
	_ = s.notifier.DecisionApplied(ctx, expense)
}
