package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spa542/brawnyoriginals/internal/dispatch"
	"github.com/spa542/brawnyoriginals/internal/email"
	"github.com/spa542/brawnyoriginals/internal/models"
	"go.uber.org/zap"
)

// EmailSender delivers the assembled order email.
type EmailSender interface {
	SendFulfillment(ctx context.Context, recipient string, attachments []email.Attachment, body string) error
}

// Item maps a price id to the file delivered when it is purchased.
type Item struct {
	Title string `mapstructure:"title"`
	File  string `mapstructure:"file"`
}

// Service assembles purchased-item attachments from a payment event and sends
// the delivery email. Fulfillment is stateless: everything it needs rides in
// the event payload and the configured catalog.
type Service struct {
	sender  EmailSender
	catalog map[string]Item
	logger  *zap.Logger
}

func NewService(sender EmailSender, catalog map[string]Item, logger *zap.Logger) *Service {
	return &Service{
		sender:  sender,
		catalog: catalog,
		logger:  logger,
	}
}

// Handler returns the dispatch handler for payment-succeeded events.
func (s *Service) Handler() dispatch.Handler {
	return func(ctx context.Context, event *models.WebhookEvent) error {
		return s.Fulfill(ctx, event)
	}
}

// Fulfill delivers the purchased items for a succeeded payment. The price ids
// travel in the payment metadata (comma separated), put there at checkout
// session creation.
func (s *Service) Fulfill(ctx context.Context, event *models.WebhookEvent) error {
	var intent models.PaymentIntent
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		return fmt.Errorf("decoding payment intent: %w", err)
	}
	if intent.ReceiptEmail == "" {
		return fmt.Errorf("payment %s has no receipt email", intent.ID)
	}

	priceIDs := splitPriceIDs(intent.Metadata["price_ids"])
	if len(priceIDs) == 0 {
		return fmt.Errorf("payment %s has no price ids in metadata", intent.ID)
	}

	attachments, titles, err := s.assemble(priceIDs)
	if err != nil {
		return err
	}

	body := orderBody(intent, titles)
	if err := s.sender.SendFulfillment(ctx, intent.ReceiptEmail, attachments, body); err != nil {
		return fmt.Errorf("sending fulfillment email: %w", err)
	}

	s.logger.Info("order fulfilled",
		zap.String("payment_id", intent.ID),
		zap.String("recipient", intent.ReceiptEmail),
		zap.Strings("price_ids", priceIDs))
	return nil
}

func (s *Service) assemble(priceIDs []string) ([]email.Attachment, []string, error) {
	var attachments []email.Attachment
	var titles []string
	for _, id := range priceIDs {
		item, ok := s.catalog[id]
		if !ok {
			return nil, nil, fmt.Errorf("no catalog entry for price id %s", id)
		}
		content, err := os.ReadFile(item.File)
		if err != nil {
			return nil, nil, fmt.Errorf("reading attachment for %s: %w", id, err)
		}
		attachments = append(attachments, email.Attachment{
			Filename:    item.Title + ".pdf",
			ContentType: "application/pdf",
			Content:     content,
		})
		titles = append(titles, item.Title)
	}
	return attachments, titles, nil
}

func splitPriceIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func orderBody(intent models.PaymentIntent, titles []string) string {
	var b strings.Builder
	b.WriteString("Thank you for your order!\n\n")
	b.WriteString("Your purchased items are attached:\n")
	for _, title := range titles {
		fmt.Fprintf(&b, "  - %s\n", title)
	}
	fmt.Fprintf(&b, "\nOrder reference: %s\n", intent.ID)
	fmt.Fprintf(&b, "Amount: %.2f %s\n", float64(intent.Amount)/100, strings.ToUpper(intent.Currency))
	return b.String()
}
