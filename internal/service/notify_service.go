package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

var ErrSenderDisabled = errors.New("sender not configured")

type EmailSender interface {
	SendEmail(toEmail, toName, subject, plainText, html string) error
}

type SMSSender interface {
	SendSMS(toNumber, body string) error
}

type SendGridMailer struct {
	APIKey    string
	FromEmail string
	FromName  string
	logger    *zap.Logger
}

func NewSendGridMailer(apiKey, fromEmail, fromName string, logger *zap.Logger) *SendGridMailer {
	if fromName == "" {
		fromName = "Smart Parking"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendGridMailer{APIKey: apiKey, FromEmail: fromEmail, FromName: fromName, logger: logger}
}

func (m *SendGridMailer) Enabled() bool {
	return m.APIKey != "" && m.FromEmail != ""
}

func (m *SendGridMailer) SendEmail(toEmail, toName, subject, plainText, html string) error {
	if !m.Enabled() {
		return ErrSenderDisabled
	}
	from := mail.NewEmail(m.FromName, m.FromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, html)

	client := sendgrid.NewSendClient(m.APIKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid send to %s: %w", toEmail, err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	m.logger.Info("email_sent", zap.String("to", toEmail), zap.String("subject", subject), zap.Int("status", response.StatusCode))
	return nil
}

type TwilioTexter struct {
	FromNumber string
	client     *twilio.RestClient
	logger     *zap.Logger
}

// NewTwilioTexter returns a texter; with missing credentials it stays disabled.
func NewTwilioTexter(accountSID, authToken, fromNumber string, logger *zap.Logger) *TwilioTexter {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &TwilioTexter{FromNumber: fromNumber, logger: logger}
	if accountSID != "" && authToken != "" && fromNumber != "" {
		t.client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username:   accountSID,
			Password:   authToken,
			AccountSid: accountSID,
		})
	}
	return t
}

func (t *TwilioTexter) Enabled() bool { return t.client != nil }

func (t *TwilioTexter) SendSMS(toNumber, body string) error {
	if !t.Enabled() {
		return ErrSenderDisabled
	}
	if !strings.HasPrefix(toNumber, "+") {
		t.logger.Warn("sms_number_not_e164", zap.String("to", toNumber))
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(toNumber)
	params.SetFrom(t.FromNumber)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send to %s: %w", toNumber, err)
	}
	if resp != nil && resp.Sid != nil {
		t.logger.Info("sms_sent", zap.String("to", toNumber), zap.String("sid", *resp.Sid))
	}
	return nil
}
