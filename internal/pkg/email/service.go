package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog/log"
)

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg *EmailMessage) error
}

// TicketLine is one issued ticket as shown in the confirmation email.
type TicketLine struct {
	TicketID   int64
	EventName  string
	TicketType string
	Price      string
	Hash       string
	QRCode     string
}

// Options tunes delivery retries.
type Options struct {
	Attempts uint
	Delay    time.Duration
}

// Service renders templates and delivers them with bounded retries
type Service struct {
	sender       Sender
	templates    map[string]*template.Template
	baseTemplate *template.Template
	opts         Options
}

// NewService creates email service backed by SendGrid
func NewService(config SendGridConfig, opts Options) *Service {
	return NewServiceWithSender(NewSendGridClient(config), opts)
}

// NewServiceWithSender creates email service with a custom sender
func NewServiceWithSender(sender Sender, opts Options) *Service {
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	if opts.Delay == 0 {
		opts.Delay = 500 * time.Millisecond
	}
	s := &Service{
		sender:    sender,
		templates: make(map[string]*template.Template),
		opts:      opts,
	}
	s.baseTemplate = template.Must(template.New("base").Parse(BaseTemplate))
	s.loadTemplates()
	return s
}

func (s *Service) loadTemplates() {
	templates := map[string]string{
		"tickets": TicketsTemplate,
	}
	for name, content := range templates {
		tmpl, err := template.New(name).Parse(content)
		if err != nil {
			log.Error().Err(err).Str("template", name).Msg("Failed to parse email template")
			continue
		}
		s.templates[name] = tmpl
	}
}

func (s *Service) render(name string, data interface{}) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("template %s not found", name)
	}

	var contentBuf bytes.Buffer
	if err := tmpl.Execute(&contentBuf, data); err != nil {
		return "", err
	}

	var htmlBuf bytes.Buffer
	if err := s.baseTemplate.Execute(&htmlBuf, map[string]interface{}{
		"Content": template.HTML(contentBuf.String()),
	}); err != nil {
		return "", err
	}
	return htmlBuf.String(), nil
}

// deliver sends msg, retrying transport errors and retryable statuses.
func (s *Service) deliver(ctx context.Context, msg *EmailMessage) error {
	return retry.Do(
		func() error {
			return s.sender.Send(ctx, msg)
		},
		retry.Context(ctx),
		retry.Attempts(s.opts.Attempts),
		retry.Delay(s.opts.Delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.Retryable()
			}
			return true
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Str("to", msg.To).Msg("Email delivery attempt failed")
		}),
	)
}

type ticketView struct {
	TicketID   int64
	EventName  string
	TicketType string
	Price      string
	Hash       string
	QRCode     template.URL
}

// SendTicketEmail renders the ticket confirmation and delivers it.
func (s *Service) SendTicketEmail(ctx context.Context, to, toName string, tickets []TicketLine, orderNumber string) error {
	views := make([]ticketView, 0, len(tickets))
	for _, t := range tickets {
		views = append(views, ticketView{
			TicketID:   t.TicketID,
			EventName:  t.EventName,
			TicketType: t.TicketType,
			Price:      t.Price,
			Hash:       t.Hash,
			// QR payloads are data URIs produced by the issuer
			QRCode: template.URL(t.QRCode),
		})
	}

	html, err := s.render("tickets", map[string]interface{}{
		"Name":        toName,
		"OrderNumber": orderNumber,
		"Tickets":     views,
	})
	if err != nil {
		return fmt.Errorf("render tickets email: %w", err)
	}

	return s.deliver(ctx, &EmailMessage{
		To:          to,
		ToName:      toName,
		Subject:     "Your tickets for order " + orderNumber,
		HTMLContent: html,
		TextContent: fmt.Sprintf("Order %s: %d ticket(s) attached. Show the QR code at the entrance.", orderNumber, len(tickets)),
	})
}
