package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var ErrNoRecipient = errors.New("email: recipient address is empty")

// Client is the part of the SendGrid client the service uses.
type Client interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Service handles email sending via SendGrid
type Service struct {
	client   Client
	from     string
	fromName string
	log      logrus.FieldLogger
}

// NewService creates an email service backed by the SendGrid API.
func NewService(apiKey, from, fromName string, log logrus.FieldLogger) *Service {
	return NewServiceWithClient(sendgrid.NewSendClient(apiKey), from, fromName, log)
}

func NewServiceWithClient(client Client, from, fromName string, log logrus.FieldLogger) *Service {
	return &Service{client: client, from: from, fromName: fromName, log: log}
}

// SendOrderConfirmation sends an order confirmation email
func (s *Service) SendOrderConfirmation(ctx context.Context, to, orderID string, deliveryFee, total decimal.Decimal, items []OrderItem) error {
	subject := fmt.Sprintf("Order confirmation (order %s)", shortID(orderID))
	body := BuildOrderConfirmationBody(orderID, deliveryFee, total, items)
	return s.send(ctx, to, subject, body)
}

// SendStatusUpdate tells a buyer that an order's shipment status changed.
func (s *Service) SendStatusUpdate(ctx context.Context, to, orderID, status string) error {
	subject := fmt.Sprintf("Your order %s is now %s", shortID(orderID), status)
	body := BuildStatusUpdateBody(orderID, status)
	return s.send(ctx, to, subject, body)
}

func (s *Service) send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return ErrNoRecipient
	}

	message := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.from),
		subject,
		mail.NewEmail("", to),
		plainText(body),
		body,
	)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.log.WithFields(logrus.Fields{"status": resp.StatusCode, "body": resp.Body}).Error("sendgrid rejected message")
		return fmt.Errorf("sendgrid send failed: status=%d", resp.StatusCode)
	}

	s.log.WithFields(logrus.Fields{"status": resp.StatusCode, "to": to, "subject": subject}).Info("mail sent")
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}
