package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/Outercircl-dev/backend/internal/domain"
)

// ContactDirectory resolves where to email a user.
type ContactDirectory interface {
	LookupContact(ctx context.Context, externalUserID string) (*domain.Contact, error)
}

type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridEmitter emails the participant about their participation changes.
type SendGridEmitter struct {
	client    mailSender
	contacts  ContactDirectory
	fromEmail string
	fromName  string
}

func NewSendGridEmitter(cfg SendGridConfig, contacts ContactDirectory) *SendGridEmitter {
	return &SendGridEmitter{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		contacts:  contacts,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

func (s *SendGridEmitter) Name() string { return "sendgrid" }

func (s *SendGridEmitter) Emit(ctx context.Context, event domain.ParticipationEvent) error {
	subject, body, ok := renderEmail(event)
	if !ok {
		return nil
	}
	contact, err := s.contacts.LookupContact(ctx, event.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup contact: %w", err)
	}
	if contact.Email == "" {
		return nil
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(contact.FullName, contact.Email)
	message := mail.NewSingleEmail(from, subject, to, body, "")

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

func renderEmail(event domain.ParticipationEvent) (subject, body string, ok bool) {
	switch event.Type {
	case domain.EventTypeJoined:
		return "You're in", "Your spot in the activity is confirmed.", true
	case domain.EventTypeWaitlisted:
		body = "The activity is full, so you've been added to the waitlist."
		if pos, found := event.Metadata["waitlistPosition"]; found {
			body = fmt.Sprintf("The activity is full. You are number %v on the waitlist.", pos)
		}
		return "You're on the waitlist", body, true
	case domain.EventTypeApprovalPending:
		return "Request sent", "The host will review your request to join.", true
	case domain.EventTypePromoted:
		return "A spot opened up", "A seat became available and you've been moved off the waitlist. See you there!", true
	case domain.EventTypeApproved:
		return "Request approved", "The host approved your request to join.", true
	case domain.EventTypeRejected:
		body = "The host declined your request to join."
		if msg, found := event.Metadata["message"]; found {
			body += fmt.Sprintf("\n\nMessage from the host: %v", msg)
		}
		return "Request declined", body, true
	case domain.EventTypeCancelled:
		return "Participation cancelled", "Your participation in the activity has been cancelled.", true
	}
	return "", "", false
}
