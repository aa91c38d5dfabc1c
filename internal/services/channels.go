// internal/services/channels.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/smtp"

	"github.com/eventra/eventra-backend/internal/config"
	"github.com/eventra/eventra-backend/internal/models"
)

// ChannelSender pushes one e-ticket to one recipient over one channel. The
// returned string is the raw provider response kept for debugging. Senders are
// injected into the DeliveryService so tests can substitute deterministic
// ones.
type ChannelSender interface {
	Channel() models.DeliveryChannel
	Send(ctx context.Context, delivery *models.TicketDelivery, ticket *models.ETicket, order *models.Order) (string, error)
}

// TemplateSet holds the render templates for outbound ticket messages.
type TemplateSet struct {
	EmailSubject string
	EmailBody    *template.Template
	TextBody     *template.Template
}

func DefaultTemplateSet() *TemplateSet {
	return &TemplateSet{
		EmailSubject: "Your ticket - {{.TicketName}}",
		EmailBody: template.Must(template.New("email").Parse(`
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.BuyerName}},</h2>
	<p>Here is your ticket for <strong>{{.EventTitle}}</strong>.</p>
	<p>Ticket: {{.TicketName}}<br>Order: {{.OrderCode}}</p>
	<p>Present this code at the venue:</p>
	<pre>{{.QRCodeData}}</pre>
	<p>Valid until {{.ExpirationDate}}.</p>
</body>
</html>`)),
		TextBody: template.Must(template.New("text").Parse(
			"Hello {{.BuyerName}}, your ticket {{.TicketName}} for {{.EventTitle}} (order {{.OrderCode}}): {{.QRCodeData}}")),
	}
}

type templateData struct {
	BuyerName      string
	EventTitle     string
	TicketName     string
	OrderCode      string
	QRCodeData     string
	ExpirationDate string
}

func newTemplateData(delivery *models.TicketDelivery, ticket *models.ETicket, order *models.Order) templateData {
	return templateData{
		BuyerName:      order.RecipientName(),
		EventTitle:     ticket.Event.Title,
		TicketName:     ticket.Name,
		OrderCode:      order.Code,
		QRCodeData:     ticket.QRCodeData,
		ExpirationDate: ticket.ExpirationDate.Format("2006-01-02 15:04"),
	}
}

// EmailSender delivers tickets over SMTP.
type EmailSender struct {
	cfg       config.EmailConfig
	templates *TemplateSet
}

func NewEmailSender(cfg config.EmailConfig, templates *TemplateSet) *EmailSender {
	return &EmailSender{cfg: cfg, templates: templates}
}

func (s *EmailSender) Channel() models.DeliveryChannel {
	return models.DeliveryChannelEmail
}

func (s *EmailSender) Send(ctx context.Context, delivery *models.TicketDelivery, ticket *models.ETicket, order *models.Order) (string, error) {
	data := newTemplateData(delivery, ticket, order)

	var body bytes.Buffer
	if err := s.templates.EmailBody.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to render email template: %w", err)
	}

	var subject bytes.Buffer
	subjectTmpl, err := template.New("subject").Parse(s.templates.EmailSubject)
	if err != nil {
		return "", fmt.Errorf("failed to parse subject template: %w", err)
	}
	if err := subjectTmpl.Execute(&subject, data); err != nil {
		return "", fmt.Errorf("failed to render subject template: %w", err)
	}

	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		delivery.Recipient, subject.String(), body.String()))

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	if err := smtp.SendMail(addr, auth, s.cfg.FromEmail, []string{delivery.Recipient}, msg); err != nil {
		return "", fmt.Errorf("smtp send failed: %w", err)
	}

	return "accepted by " + addr, nil
}

// WhatsAppSender delivers tickets through an HTTP messaging provider.
type WhatsAppSender struct {
	cfg       config.WhatsAppConfig
	client    *http.Client
	templates *TemplateSet
}

func NewWhatsAppSender(cfg config.WhatsAppConfig, client *http.Client, templates *TemplateSet) *WhatsAppSender {
	return &WhatsAppSender{cfg: cfg, client: client, templates: templates}
}

func (s *WhatsAppSender) Channel() models.DeliveryChannel {
	return models.DeliveryChannelWhatsApp
}

func (s *WhatsAppSender) Send(ctx context.Context, delivery *models.TicketDelivery, ticket *models.ETicket, order *models.Order) (string, error) {
	var text bytes.Buffer
	if err := s.templates.TextBody.Execute(&text, newTemplateData(delivery, ticket, order)); err != nil {
		return "", fmt.Errorf("failed to render message template: %w", err)
	}

	payload := map[string]interface{}{
		"source":      s.cfg.Source,
		"destination": delivery.Recipient,
		"message":     text.String(),
	}

	return s.post(ctx, s.cfg.BaseURL+"/v1/messages", s.cfg.APIKey, payload)
}

func (s *WhatsAppSender) post(ctx context.Context, url, apiKey string, payload map[string]interface{}) (string, error) {
	return postJSON(ctx, s.client, url, apiKey, payload)
}

// SMSSender delivers tickets through an HTTP SMS provider.
type SMSSender struct {
	cfg       config.SMSConfig
	client    *http.Client
	templates *TemplateSet
}

func NewSMSSender(cfg config.SMSConfig, client *http.Client, templates *TemplateSet) *SMSSender {
	return &SMSSender{cfg: cfg, client: client, templates: templates}
}

func (s *SMSSender) Channel() models.DeliveryChannel {
	return models.DeliveryChannelSMS
}

func (s *SMSSender) Send(ctx context.Context, delivery *models.TicketDelivery, ticket *models.ETicket, order *models.Order) (string, error) {
	var text bytes.Buffer
	if err := s.templates.TextBody.Execute(&text, newTemplateData(delivery, ticket, order)); err != nil {
		return "", fmt.Errorf("failed to render message template: %w", err)
	}

	payload := map[string]interface{}{
		"sender":  s.cfg.Sender,
		"to":      delivery.Recipient,
		"message": text.String(),
	}

	return postJSON(ctx, s.client, s.cfg.BaseURL+"/v1/sms", s.cfg.APIKey, payload)
}

func postJSON(ctx context.Context, client *http.Client, url, apiKey string, payload map[string]interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal provider payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	var respBody bytes.Buffer
	respBody.ReadFrom(resp.Body)

	if resp.StatusCode >= 300 {
		return respBody.String(), fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	return respBody.String(), nil
}
