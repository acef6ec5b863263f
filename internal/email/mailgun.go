package email

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/spa542/brawnyoriginals/internal/secrets"
	"go.uber.org/zap"
)

// APIKeySecretName is the Mailgun API key secret.
const APIKeySecretName = "MAILGUN_API_KEY"

// Attachment is a file to deliver with an email.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Config holds the non-secret Mailgun settings.
type Config struct {
	URL          string // messages endpoint for the sending domain
	FromName     string
	FromAddress  string
	ContactEmail string // recipient for contact-form mail
}

// MailgunClient sends mail through the Mailgun HTTP API. The API key is
// pulled from the secret cache per send so a rotated key takes effect without
// a restart.
type MailgunClient struct {
	client *resty.Client
	cache  *secrets.Cache
	cfg    Config
	logger *zap.Logger
}

func NewMailgunClient(cache *secrets.Cache, cfg Config, logger *zap.Logger) *MailgunClient {
	return &MailgunClient{
		client: resty.New(),
		cache:  cache,
		cfg:    cfg,
		logger: logger,
	}
}

// SendFulfillment delivers the purchased items to the customer.
func (m *MailgunClient) SendFulfillment(ctx context.Context, recipient string, attachments []Attachment, body string) error {
	subject := fmt.Sprintf("%s - Your Order - DO NOT REPLY", m.cfg.FromName)
	return m.send(ctx, recipient, subject, body, attachments)
}

// SendContact forwards a contact-form message to the configured inbox.
func (m *MailgunClient) SendContact(ctx context.Context, name, fromEmail, message string) error {
	subject := fmt.Sprintf("%s - Contact Form - Message from %s <%s>", m.cfg.FromName, name, fromEmail)
	return m.send(ctx, m.cfg.ContactEmail, subject, message, nil)
}

func (m *MailgunClient) send(ctx context.Context, to, subject, body string, attachments []Attachment) error {
	apiKey, err := m.cache.Get(ctx, APIKeySecretName)
	if err != nil {
		return fmt.Errorf("fetching mailgun api key: %w", err)
	}

	req := m.client.R().
		SetContext(ctx).
		SetBasicAuth("api", apiKey).
		SetFormData(map[string]string{
			"from":    fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.FromAddress),
			"to":      to,
			"subject": subject,
			"text":    body,
		})
	for _, att := range attachments {
		req.SetMultipartField("attachment", att.Filename, att.ContentType, bytes.NewReader(att.Content))
	}

	resp, err := req.Post(m.cfg.URL)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("mailgun returned status %d", resp.StatusCode())
	}

	m.logger.Info("email sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("attachments", len(attachments)))
	return nil
}
