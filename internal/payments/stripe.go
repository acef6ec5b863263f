package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/spa542/brawnyoriginals/internal/models"
	"github.com/spa542/brawnyoriginals/internal/secrets"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"go.uber.org/zap"
)

// APIKeySecretName is the Stripe secret key.
const APIKeySecretName = "STRIPE_SECRET_KEY"

// Config holds the non-secret Stripe settings.
type Config struct {
	PaymentMethodConfigurationID string
}

// CheckoutService creates provider checkout sessions from verified token
// payloads. The API key comes from the secret cache on every call, so key
// rotation needs no restart.
type CheckoutService struct {
	cache  *secrets.Cache
	cfg    Config
	logger *zap.Logger
}

func NewCheckoutService(cache *secrets.Cache, cfg Config, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		cache:  cache,
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSession opens a checkout session for the token's price ids. The price
// ids are copied into the payment metadata so fulfillment can recover them
// from the webhook payload alone.
func (s *CheckoutService) CreateSession(ctx context.Context, payload *models.CheckoutTokenPayload, quantity int64, successURL, cancelURL string) (*models.CheckoutSessionResponse, error) {
	apiKey, err := s.cache.Get(ctx, APIKeySecretName)
	if err != nil {
		return nil, fmt.Errorf("fetching stripe api key: %w", err)
	}

	sc := &client.API{}
	sc.Init(apiKey, nil)

	if quantity < 1 {
		quantity = 1
	}
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(payload.PriceIDs))
	for _, priceID := range payload.PriceIDs {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(quantity),
		})
	}

	intentData := &stripe.CheckoutSessionPaymentIntentDataParams{}
	intentData.AddMetadata("price_ids", strings.Join(payload.PriceIDs, ","))

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:         lineItems,
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		PaymentIntentData: intentData,
	}
	if s.cfg.PaymentMethodConfigurationID != "" {
		params.PaymentMethodConfiguration = stripe.String(s.cfg.PaymentMethodConfigurationID)
	}
	params.Context = ctx

	session, err := sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}

	s.logger.Info("created checkout session",
		zap.String("session_id", session.ID),
		zap.Strings("price_ids", payload.PriceIDs),
		zap.Int64("quantity", quantity))
	return &models.CheckoutSessionResponse{
		SessionID:     session.ID,
		URL:           session.URL,
		ExpiresAt:     session.ExpiresAt,
		PaymentStatus: string(session.PaymentStatus),
	}, nil
}
