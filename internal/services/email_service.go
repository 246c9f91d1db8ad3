package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/coachpay-api/internal/config"
	"github.com/sjperalta/coachpay-api/internal/models"
	"github.com/sjperalta/coachpay-api/pkg/logger"
)

//go:embed templates/email/*.html
var emailTemplates embed.FS

// Mailer sends transactional email
type Mailer interface {
	SendPayoutConfirmation(ctx context.Context, payee *models.Payee, payout PayoutConfirmation) error
	SendOpsAlert(ctx context.Context, subject string, lines []string) error
}

// PayoutConfirmation is what a payee is told after a disbursement
type PayoutConfirmation struct {
	Reference    string
	SettlementID string
	Amount       decimal.Decimal
	TDSAmount    decimal.Decimal
	Installments int
	PaidAt       time.Time
}

type EmailService struct {
	config       *config.Config
	resendClient *resend.Client
}

func NewEmailService(cfg *config.Config) *EmailService {
	client := resend.NewClient(cfg.ResendAPIKey)
	return &EmailService{
		config:       cfg,
		resendClient: client,
	}
}

// checkEmailPreconditions returns false with no error when email is simply not configured
// for this deployment, and an error when the recipient is unusable.
func (s *EmailService) checkEmailPreconditions(to, operation string) (bool, error) {
	if s.config.ResendAPIKey == "" {
		logger.Debug("Email not configured, skipping", "operation", operation)
		return false, nil
	}
	if strings.TrimSpace(to) == "" || !strings.Contains(to, "@") {
		return false, fmt.Errorf("invalid recipient for %s: %q", operation, to)
	}
	return true, nil
}

func (s *EmailService) SendPayoutConfirmation(ctx context.Context, payee *models.Payee, payout PayoutConfirmation) error {
	ok, err := s.checkEmailPreconditions(payee.Email, "payout confirmation")
	if !ok {
		return err
	}

	data := struct {
		Name         string
		Amount       string
		TDSAmount    string
		Installments int
		Reference    string
		SettlementID string
		PaidAt       string
		AccountLast4 string
	}{
		Name:         payee.Name,
		Amount:       formatRupees(payout.Amount),
		TDSAmount:    formatRupees(payout.TDSAmount),
		Installments: payout.Installments,
		Reference:    payout.Reference,
		SettlementID: payout.SettlementID,
		PaidAt:       payout.PaidAt.In(models.IST).Format("02 Jan 2006 15:04"),
		AccountLast4: payee.BankAccountLast4,
	}

	body, err := s.renderTemplate("payout_confirmation.html", data)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Payout of %s sent", data.Amount)
	return s.send(payee.Email, subject, body)
}

// SendOpsAlert notifies the operations mailbox, if one is configured
func (s *EmailService) SendOpsAlert(ctx context.Context, subject string, lines []string) error {
	if s.config.OpsEmail == "" {
		return nil
	}
	ok, err := s.checkEmailPreconditions(s.config.OpsEmail, "ops alert")
	if !ok {
		return err
	}

	data := struct {
		Subject string
		Lines   []string
		SentAt  string
	}{
		Subject: subject,
		Lines:   lines,
		SentAt:  time.Now().In(models.IST).Format("02 Jan 2006 15:04"),
	}
	body, err := s.renderTemplate("ops_alert.html", data)
	if err != nil {
		return err
	}
	return s.send(s.config.OpsEmail, "[CoachPay] "+subject, body)
}

func (s *EmailService) send(to, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    s.config.FromEmail,
		To:      []string{to},
		Subject: subject,
		Html:    body,
	}
	if _, err := s.resendClient.Emails.Send(params); err != nil {
		logger.Error(fmt.Sprintf("Failed to send email to %s: %v", to, err))
		return err
	}
	logger.Info(fmt.Sprintf("📧 [Email Sent] To: %s | Subject: %s", to, subject))
	return nil
}

func (s *EmailService) renderTemplate(name string, data interface{}) (string, error) {
	tmpl, err := template.ParseFS(emailTemplates, "templates/email/"+name)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}

func formatRupees(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}
