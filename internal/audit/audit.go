// Package audit records who did what to which resource. Entries are
// persisted for the admin audit trail and mirrored to the structured log
// so operators can follow activity without a database query.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Entry is a single audit record.
type Entry struct {
	Seq          int64             `json:"seq"`
	Actor        string            `json:"actor"`
	Action       string            `json:"action"`
	ResourceType string            `json:"resourceType"`
	ResourceID   string            `json:"resourceId"`
	Status       string            `json:"status"`
	IP           string            `json:"ip,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

type contextKey string

const clientIPKey contextKey = "audit_client_ip"

// WithClientIP stashes the caller's IP address so Record can attribute
// entries without every call site threading it through.
func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFrom returns the caller IP stashed by WithClientIP, or "".
func ClientIPFrom(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey).(string); ok {
		return ip
	}
	return ""
}

// FilterError reports an unusable listing filter value.
type FilterError struct {
	Field   string
	Message string
}

func (e FilterError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Filters narrows audit listings.
type Filters struct {
	Actor        string
	Action       string
	ResourceType string
	ResourceID   string
	Start        time.Time
	End          time.Time
}

// Page is seq-cursor pagination over the audit log.
type Page struct {
	Limit    int
	AfterSeq int64
}

// ListResult carries one page of entries plus the cursor position.
type ListResult struct {
	Entries []Entry
	LastSeq int64
	HasMore bool
}

// Repository persists audit entries.
type Repository interface {
	Insert(ctx context.Context, entry Entry) error
	List(ctx context.Context, filters Filters, page Page) (ListResult, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Recorder writes entries to the repository and mirrors them to the log.
// Recording is best-effort: a failed insert is logged, never surfaced to
// the caller, so auditing cannot fail a request that already committed.
type Recorder struct {
	repo Repository
	now  func() time.Time
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, now: time.Now}
}

func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}
	if entry.IP == "" {
		entry.IP = ClientIPFrom(ctx)
	}

	logger := zerolog.Ctx(ctx)
	event := logger.Info()
	if entry.Status != "success" {
		event = logger.Warn()
	}
	event.
		Str("audit_actor", entry.Actor).
		Str("audit_action", entry.Action).
		Str("audit_resource_type", entry.ResourceType).
		Str("audit_resource_id", entry.ResourceID).
		Str("audit_status", entry.Status).
		Str("audit_ip", entry.IP).
		Msg("audit")

	if r.repo == nil {
		return
	}
	if err := r.repo.Insert(ctx, entry); err != nil {
		logger.Error().Err(err).
			Str("audit_action", entry.Action).
			Msg("failed to persist audit entry")
	}
}

// List returns a filtered page of the audit trail.
func (r *Recorder) List(ctx context.Context, filters Filters, page Page) (ListResult, error) {
	return r.repo.List(ctx, filters, page)
}

// Purge removes entries older than cutoff. Returns the number deleted.
func (r *Recorder) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.repo.DeleteBefore(ctx, cutoff)
}
