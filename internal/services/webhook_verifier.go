package services

import (
	"context"
	"crypto/hmac"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spa542/brawnyoriginals/internal/models"
	"github.com/spa542/brawnyoriginals/internal/secrets"
	"go.uber.org/zap"
)

// WebhookSecretName is the secret inbound webhook signatures are checked against.
const WebhookSecretName = "STRIPE_WEBHOOK_SECRET"

// SignatureHeader is the provider's signature header name.
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance is the accepted clock skew between the signature timestamp
// and the local clock.
const DefaultTolerance = 5 * time.Minute

// WebhookVerifier authenticates inbound payment-provider callbacks before any
// business logic sees the payload. The provider signs
// "<timestamp>.<rawBody>" with HMAC-SHA256 and sends
// "t=<timestamp>,v1=<hex>" in the signature header; multiple v1 entries may
// be present during secret rotation.
type WebhookVerifier struct {
	cache     *secrets.Cache
	tolerance time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// VerifierOption configures a WebhookVerifier.
type VerifierOption func(*WebhookVerifier)

// WithTolerance overrides the accepted signature timestamp skew.
func WithTolerance(d time.Duration) VerifierOption {
	return func(v *WebhookVerifier) {
		v.tolerance = d
	}
}

// WithVerifierClock overrides the verifier's time source. Used in tests.
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *WebhookVerifier) {
		v.now = now
	}
}

func NewWebhookVerifier(cache *secrets.Cache, logger *zap.Logger, opts ...VerifierOption) *WebhookVerifier {
	v := &WebhookVerifier{
		cache:     cache,
		tolerance: DefaultTolerance,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks the signature header against the raw body and, only after the
// signature holds, parses the body into a WebhookEvent. A secret-store
// failure propagates as-is: a timed-out fetch is a configuration problem, not
// an authentication one.
func (v *WebhookVerifier) Verify(ctx context.Context, rawBody []byte, signatureHeader string) (*models.WebhookEvent, error) {
	if signatureHeader == "" {
		return nil, models.ErrMissingSignature
	}

	timestamp, candidates, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return nil, err
	}

	skew := v.now().Sub(time.Unix(timestamp, 0))
	if skew > v.tolerance || skew < -v.tolerance {
		v.logger.Warn("webhook signature timestamp outside tolerance",
			zap.Int64("timestamp", timestamp),
			zap.Duration("skew", skew))
		return nil, fmt.Errorf("%w: timestamp outside tolerance", models.ErrInvalidSignature)
	}

	secret, err := v.cache.Get(ctx, WebhookSecretName)
	if err != nil {
		return nil, fmt.Errorf("fetching webhook secret: %w", err)
	}

	signed := make([]byte, 0, len(rawBody)+21)
	signed = strconv.AppendInt(signed, timestamp, 10)
	signed = append(signed, '.')
	signed = append(signed, rawBody...)
	expected := sign([]byte(secret), signed)

	match := false
	for _, candidate := range candidates {
		provided, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, provided) {
			match = true
		}
	}
	if !match {
		return nil, models.ErrInvalidSignature
	}

	// The signature covers raw bytes, not the parsed shape; the body can
	// still fail to parse after a valid signature.
	var event models.WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
	}
	if event.ID == "" || event.Type == "" {
		return nil, fmt.Errorf("%w: missing event id or type", models.ErrMalformedPayload)
	}

	v.logger.Debug("verified webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type))
	return &event, nil
}

// parseSignatureHeader splits "t=<ts>,v1=<hex>[,v1=<hex>...]" into the
// timestamp and the signature candidates.
func parseSignatureHeader(header string) (int64, []string, error) {
	var timestamp int64 = -1
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: bad timestamp", models.ErrInvalidSignature)
			}
			timestamp = ts
		case "v1":
			candidates = append(candidates, value)
		}
	}
	if timestamp < 0 || len(candidates) == 0 {
		return 0, nil, fmt.Errorf("%w: missing timestamp or signature", models.ErrInvalidSignature)
	}
	return timestamp, candidates, nil
}
