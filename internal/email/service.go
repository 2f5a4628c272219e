// Package email sends transactional mail through the Resend API. When the
// service is disabled (no API key, local development) sends degrade to a
// log line so the rest of the system behaves the same.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/seremi5/expense-server/internal/config"
)

// DecisionData renders the expense decision notification. Final marks
// states with no further transitions, so the mail can say the case is
// closed instead of promising another update.
type DecisionData struct {
	Name         string
	Merchant     string
	AmountText   string
	Status       string
	DecisionNote string
	Final        bool
	CurrentYear  int
}

var decisionTemplate = template.Must(template.New("decision").Parse(`<!doctype html>
<html>
  <body style="font-family: sans-serif; color: #1a1a1a;">
    <p>Hallo {{.Name}},</p>
    <p>Deine Spesenabrechnung für <strong>{{.Merchant}}</strong> über {{.AmountText}} wurde bearbeitet.</p>
    <p>Neuer Status: <strong>{{.Status}}</strong></p>
    {{if .DecisionNote}}<p>Bemerkung: {{.DecisionNote}}</p>{{end}}
    {{if .Final}}<p>Damit ist diese Abrechnung abgeschlossen.</p>{{else}}<p>Du wirst benachrichtigt, sobald sich der Status ändert.</p>{{end}}
    <p>Du kannst die Details jederzeit in deinem Konto einsehen.</p>
    <p style="color: #888; font-size: 12px;">&copy; {{.CurrentYear}}</p>
  </body>
</html>`))

// statusSubjects maps workflow states to the notification subject line.
var statusSubjects = map[string]string{
	"ready_to_pay": "Deine Spesen werden ausbezahlt",
	"validated":    "Deine Spesen wurden validiert",
	"declined":     "Deine Spesen wurden abgelehnt",
	"flagged":      "Rückfrage zu deinen Spesen",
	"paid":         "Deine Spesen wurden ausbezahlt",
}

// Service sends decision notifications.
type Service struct {
	config       config.EmailConfig
	resendClient *resend.Client
	logger       zerolog.Logger
}

func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if err := validateEmailAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("email enabled but RESEND_API_KEY is empty")
		}
	}

	service := &Service{
		config: cfg,
		logger: logger.With().Str("component", "email").Logger(),
	}
	if cfg.APIKey != "" {
		service.resendClient = resend.NewClient(cfg.APIKey)
	}
	return service, nil
}

// SendDecision notifies a submitter that their expense was reviewed.
func (s *Service) SendDecision(ctx context.Context, to string, data DecisionData) error {
	if err := validateEmailAddress(to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}

	subject, ok := statusSubjects[data.Status]
	if !ok {
		subject = "Deine Spesenabrechnung wurde aktualisiert"
	}

	if !s.config.Enabled {
		s.logger.Info().
			Str("to", to).
			Str("status", data.Status).
			Msg("email service disabled, skipping decision notification")
		return nil
	}

	data.CurrentYear = time.Now().Year()
	var body bytes.Buffer
	if err := decisionTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("render decision template: %w", err)
	}

	if err := s.sendViaResend(ctx, to, subject, body.String()); err != nil {
		return fmt.Errorf("send decision email: %w", err)
	}

	s.logger.Info().
		Str("to", to).
		Str("status", data.Status).
		Msg("decision email sent")
	return nil
}

// validateEmailAddress checks the format and rejects header injection.
func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}
