package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/riverqueue/river"

	"github.com/seremi5/expense-server/internal/audit"
	"github.com/seremi5/expense-server/internal/domain/expenses"
	"github.com/seremi5/expense-server/internal/domain/profiles"
	"github.com/seremi5/expense-server/internal/email"
	"github.com/seremi5/expense-server/internal/metrics"
)

// AuditRetentionArgs defines the job that purges old audit entries.
type AuditRetentionArgs struct{}

func (AuditRetentionArgs) Kind() string { return JobKindAuditRetention }

// AuditRetentionWorker removes audit entries past the retention window.
type AuditRetentionWorker struct {
	river.WorkerDefaults[AuditRetentionArgs]
	Recorder      *audit.Recorder
	RetentionDays int
	Logger        *slog.Logger
}

func (AuditRetentionWorker) Kind() string { return JobKindAuditRetention }

func (w AuditRetentionWorker) Work(ctx context.Context, job *river.Job[AuditRetentionArgs]) error {
	if w.Recorder == nil {
		return fmt.Errorf("audit recorder not configured")
	}
	retention := w.RetentionDays
	if retention <= 0 {
		retention = 365
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retention)
	deleted, err := w.Recorder.Purge(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge audit entries: %w", err)
	}

	metrics.AuditEntriesPurgedTotal.Add(float64(deleted))
	if w.Logger != nil {
		w.Logger.Info("audit retention job finished",
			"deleted_count", deleted,
			"cutoff", cutoff.Format(time.RFC3339),
			"attempt", job.Attempt,
		)
	}
	return nil
}

// StaleSubmissionsArgs defines the job that flags forgotten submissions.
type StaleSubmissionsArgs struct{}

func (StaleSubmissionsArgs) Kind() string { return JobKindStaleSubmissions }

// StaleSubmissionsWorker flags expenses sitting in submitted for too long
// so they surface in the admin review queue instead of rotting silently.
type StaleSubmissionsWorker struct {
	river.WorkerDefaults[StaleSubmissionsArgs]
	Admin     *expenses.AdminService
	StaleDays int
	Logger    *slog.Logger
}

func (StaleSubmissionsWorker) Kind() string { return JobKindStaleSubmissions }

func (w StaleSubmissionsWorker) Work(ctx context.Context, job *river.Job[StaleSubmissionsArgs]) error {
	if w.Admin == nil {
		return fmt.Errorf("admin service not configured")
	}
	staleDays := w.StaleDays
	if staleDays <= 0 {
		staleDays = 60
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -staleDays)
	flagged, err := w.Admin.FlagStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("flag stale submissions: %w", err)
	}

	metrics.StaleSubmissionsFlaggedTotal.Add(float64(len(flagged)))
	if w.Logger != nil && len(flagged) > 0 {
		w.Logger.Info("flagged stale submissions",
			"flagged_count", len(flagged),
			"cutoff", cutoff.Format(time.RFC3339),
			"attempt", job.Attempt,
		)
	}
	return nil
}

// DecisionNotificationArgs carries the expense whose submitter should be
// notified. Only the public ID goes on the queue; the worker re-reads the
// row so the mail reflects the committed state.
type DecisionNotificationArgs struct {
	ExpenseULID string `json:"expense_ulid"`
}

func (DecisionNotificationArgs) Kind() string { return JobKindDecisionNotification }

func (DecisionNotificationArgs) InsertOpts() river.InsertOpts {
	opts := InsertOptsForKind(JobKindDecisionNotification)
	opts.Queue = "notifications"
	return opts
}

// DecisionNotificationWorker emails submitters about review outcomes.
type DecisionNotificationWorker struct {
	river.WorkerDefaults[DecisionNotificationArgs]
	Expenses expenses.Repository
	Profiles *profiles.Service
	Mailer   *email.Service
	Logger   *slog.Logger
}

func (DecisionNotificationWorker) Kind() string { return JobKindDecisionNotification }

func (w DecisionNotificationWorker) Work(ctx context.Context, job *river.Job[DecisionNotificationArgs]) error {
	if w.Expenses == nil || w.Profiles == nil || w.Mailer == nil {
		return fmt.Errorf("notification worker dependencies not configured")
	}

	expense, err := w.Expenses.GetByULID(ctx, job.Args.ExpenseULID)
	if err != nil {
		// The expense may have been deleted since the decision; nothing
		// left to notify about.
		if errors.Is(err, expenses.ErrNotFound) {
			metrics.NotificationsSentTotal.WithLabelValues("skipped").Inc()
			return nil
		}
		return fmt.Errorf("load expense: %w", err)
	}
	if expense.Status == expenses.StatusSubmitted {
		metrics.NotificationsSentTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	profile, err := w.Profiles.Get(ctx, expense.ProfileID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	data := email.DecisionData{
		Name:         profile.FullName(),
		Merchant:     expense.Merchant,
		AmountText:   FormatAmount(expense.Currency, expense.GrossCents),
		Status:       string(expense.Status),
		DecisionNote: expense.DecisionNote,
		Final:        expenses.IsTerminal(expense.Status),
	}
	if err := w.Mailer.SendDecision(ctx, profile.Email, data); err != nil {
		metrics.NotificationsSentTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("send decision email: %w", err)
	}

	metrics.NotificationsSentTotal.WithLabelValues("sent").Inc()
	return nil
}

// FormatAmount renders integer cents as "CHF 1'080.10" with Swiss
// apostrophe grouping.
func FormatAmount(currency string, cents int64) string {
	negative := cents < 0
	if negative {
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var grouped strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte('\'')
		}
		grouped.WriteRune(r)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%s %s%s.%02d", currency, sign, grouped.String(), frac)
}

// WorkerDeps bundles what the background workers need.
type WorkerDeps struct {
	Recorder      *audit.Recorder
	Admin         *expenses.AdminService
	Expenses      expenses.Repository
	Profiles      *profiles.Service
	Mailer        *email.Service
	RetentionDays int
	StaleDays     int
	Logger        *slog.Logger
}

// NewWorkers registers all background workers.
func NewWorkers(deps WorkerDeps) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker[AuditRetentionArgs](workers, AuditRetentionWorker{
		Recorder:      deps.Recorder,
		RetentionDays: deps.RetentionDays,
		Logger:        deps.Logger,
	})
	river.AddWorker[StaleSubmissionsArgs](workers, StaleSubmissionsWorker{
		Admin:     deps.Admin,
		StaleDays: deps.StaleDays,
		Logger:    deps.Logger,
	})
	river.AddWorker[DecisionNotificationArgs](workers, DecisionNotificationWorker{
		Expenses: deps.Expenses,
		Profiles: deps.Profiles,
		Mailer:   deps.Mailer,
		Logger:   deps.Logger,
	})
	return workers
}
