package jobs

import (
	"testing"
	"time"

	"github.com/riverqueue/river/rivertype"
)

func TestNewRetryPolicy(t *testing.T) {
	policy := NewRetryPolicy(0)

	if policy == nil {
		t.Fatal("NewRetryPolicy returned nil")
	}

	if policy.Default.MaxAttempts != CleanupMaxAttempts {
		t.Errorf("Default.MaxAttempts = %d, want %d", policy.Default.MaxAttempts, CleanupMaxAttempts)
	}
	if policy.Default.BaseDelay != 30*time.Second {
		t.Errorf("Default.BaseDelay = %v, want 30s", policy.Default.BaseDelay)
	}

	tests := []struct {
		kind                string
		expectedMaxAttempts int
		expectedBaseDelay   time.Duration
		expectedMaxDelay    time.Duration
	}{
		{
			kind:                JobKindAuditRetention,
			expectedMaxAttempts: CleanupMaxAttempts,
			expectedBaseDelay:   1 * time.Minute,
			expectedMaxDelay:    1 * time.Hour,
		},
		{
			kind:                JobKindStaleSubmissions,
			expectedMaxAttempts: CleanupMaxAttempts,
			expectedBaseDelay:   1 * time.Minute,
			expectedMaxDelay:    1 * time.Hour,
		},
		{
			kind:                JobKindDecisionNotification,
			expectedMaxAttempts: NotificationMaxAttempts,
			expectedBaseDelay:   2 * time.Minute,
			expectedMaxDelay:    2 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			config, ok := policy.ByKind[tt.kind]
			if !ok {
				t.Fatalf("kind %s not found in ByKind map", tt.kind)
			}
			if config.MaxAttempts != tt.expectedMaxAttempts {
				t.Errorf("MaxAttempts = %d, want %d", config.MaxAttempts, tt.expectedMaxAttempts)
			}
			if config.BaseDelay != tt.expectedBaseDelay {
				t.Errorf("BaseDelay = %v, want %v", config.BaseDelay, tt.expectedBaseDelay)
			}
			if config.MaxDelay != tt.expectedMaxDelay {
				t.Errorf("MaxDelay = %v, want %v", config.MaxDelay, tt.expectedMaxDelay)
			}
		})
	}
}

func TestNextRetryExponentialBackoff(t *testing.T) {
	policy := NewRetryPolicy(0)
	attemptedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		attempt       int
		expectedDelay time.Duration
	}{
		{1, 2 * time.Minute},
		{2, 4 * time.Minute},
		{3, 8 * time.Minute},
		{10, 2 * time.Hour}, // capped at MaxDelay
	}

	for _, tt := range tests {
		job := &rivertype.JobRow{
			Kind:        JobKindDecisionNotification,
			Attempt:     tt.attempt,
			AttemptedAt: &attemptedAt,
		}
		got := policy.NextRetry(job)
		want := attemptedAt.Add(tt.expectedDelay)
		if !got.Equal(want) {
			t.Errorf("attempt %d: NextRetry = %v, want %v", tt.attempt, got, want)
		}
	}
}

func TestNextRetryUnknownKindUsesDefault(t *testing.T) {
	policy := NewRetryPolicy(0)
	attemptedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	job := &rivertype.JobRow{
		Kind:        "unknown_kind",
		Attempt:     1,
		AttemptedAt: &attemptedAt,
	}
	got := policy.NextRetry(job)
	want := attemptedAt.Add(30 * time.Second)
	if !got.Equal(want) {
		t.Errorf("NextRetry = %v, want %v", got, want)
	}
}

func TestInsertOptsForKind(t *testing.T) {
	opts := InsertOptsForKind(JobKindDecisionNotification)
	if opts.MaxAttempts != NotificationMaxAttempts {
		t.Errorf("MaxAttempts = %d, want %d", opts.MaxAttempts, NotificationMaxAttempts)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		currency string
		cents    int64
		want     string
	}{
		{"CHF", 108010, "CHF 1'080.10"},
		{"CHF", 450, "CHF 4.50"},
		{"EUR", 123456789, "EUR 1'234'567.89"},
		{"CHF", 0, "CHF 0.00"},
		{"CHF", -1500, "CHF -15.00"},
	}

	for _, tt := range tests {
		got := FormatAmount(tt.currency, tt.cents)
		if got != tt.want {
			t.Errorf("FormatAmount(%q, %d) = %q, want %q", tt.currency, tt.cents, got, tt.want)
		}
	}
}

func TestNewRetryPolicyNotificationOverride(t *testing.T) {
	policy := NewRetryPolicy(9)
	if got := policy.ByKind[JobKindDecisionNotification].MaxAttempts; got != 9 {
		t.Errorf("MaxAttempts = %d, want 9", got)
	}
	// Cleanup jobs keep their own cap.
	if got := policy.ByKind[JobKindAuditRetention].MaxAttempts; got != CleanupMaxAttempts {
		t.Errorf("AuditRetention MaxAttempts = %d, want %d", got, CleanupMaxAttempts)
	}

	policy = NewRetryPolicy(-1)
	if got := policy.ByKind[JobKindDecisionNotification].MaxAttempts; got != NotificationMaxAttempts {
		t.Errorf("MaxAttempts = %d, want default %d", got, NotificationMaxAttempts)
	}
}
