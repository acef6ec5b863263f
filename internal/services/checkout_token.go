package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spa542/brawnyoriginals/internal/models"
	"github.com/spa542/brawnyoriginals/internal/secrets"
	"go.uber.org/zap"
)

// HMACSecretName is the secret the codec signs tokens with.
const HMACSecretName = "HMAC_SECRET_KEY"

// DefaultTokenLifetime bounds how long an issued checkout token stays valid.
const DefaultTokenLifetime = 5 * time.Minute

// CheckoutTokenService issues and verifies signed, expiring checkout tokens.
// A token binds a checkout attempt to a fixed set of price ids without any
// server-side session state.
//
// Precondition: price ids have already been validated against the allow-list
// by the request layer; the codec signs whatever it is given.
type CheckoutTokenService struct {
	cache    *secrets.Cache
	lifetime time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// TokenOption configures a CheckoutTokenService.
type TokenOption func(*CheckoutTokenService)

// WithTokenLifetime overrides the default token lifetime.
func WithTokenLifetime(d time.Duration) TokenOption {
	return func(s *CheckoutTokenService) {
		s.lifetime = d
	}
}

// WithTokenClock overrides the codec's time source. Used in tests.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(s *CheckoutTokenService) {
		s.now = now
	}
}

func NewCheckoutTokenService(cache *secrets.Cache, logger *zap.Logger, opts ...TokenOption) *CheckoutTokenService {
	s := &CheckoutTokenService{
		cache:    cache,
		lifetime: DefaultTokenLifetime,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// signedToken is the wire shape: base64(JSON{data, signature}), with the
// signature itself base64 encoded.
type signedToken struct {
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

// Issue creates a signed token authorizing a checkout for the given price ids.
// Returns the opaque token string and its unix expiry.
func (s *CheckoutTokenService) Issue(ctx context.Context, priceIDs []string) (string, int64, error) {
	key, err := s.cache.Get(ctx, HMACSecretName)
	if err != nil {
		return "", 0, fmt.Errorf("fetching signing key: %w", err)
	}

	now := s.now().Unix()
	payload := models.CheckoutTokenPayload{
		PriceIDs:  priceIDs,
		CreatedAt: now,
		ExpiresAt: now + int64(s.lifetime.Seconds()),
	}

	canonical, err := json.Marshal(&payload)
	if err != nil {
		return "", 0, fmt.Errorf("encoding token payload: %w", err)
	}
	signature := sign([]byte(key), canonical)

	blob, err := json.Marshal(signedToken{
		Data:      canonical,
		Signature: base64.StdEncoding.EncodeToString(signature),
	})
	if err != nil {
		return "", 0, fmt.Errorf("encoding token: %w", err)
	}

	s.logger.Debug("issued checkout token",
		zap.Strings("price_ids", priceIDs),
		zap.Int64("expires_at", payload.ExpiresAt))
	return base64.StdEncoding.EncodeToString(blob), payload.ExpiresAt, nil
}

// Verify decodes and authenticates a token, returning its payload.
//
// The signature is recomputed from the current cache secret and compared in
// constant time; the comparison always runs even when the token turns out to
// be expired. Expiry is reported ahead of a signature mismatch, so an expired
// token fails with ErrTokenExpired regardless of signature validity.
func (s *CheckoutTokenService) Verify(ctx context.Context, token string) (*models.CheckoutTokenPayload, error) {
	blob, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64", models.ErrMalformedToken)
	}

	var st signedToken
	if err := json.Unmarshal(blob, &st); err != nil {
		return nil, fmt.Errorf("%w: invalid json", models.ErrMalformedToken)
	}
	if len(st.Data) == 0 || st.Signature == "" {
		return nil, fmt.Errorf("%w: missing data or signature", models.ErrMalformedToken)
	}

	var payload models.CheckoutTokenPayload
	if err := json.Unmarshal(st.Data, &payload); err != nil {
		return nil, fmt.Errorf("%w: invalid payload", models.ErrMalformedToken)
	}

	key, err := s.cache.Get(ctx, HMACSecretName)
	if err != nil {
		return nil, fmt.Errorf("fetching signing key: %w", err)
	}

	// Re-derive the canonical encoding from the parsed payload so the
	// signature check is independent of incidental JSON formatting.
	canonical, err := json.Marshal(&payload)
	if err != nil {
		return nil, fmt.Errorf("encoding token payload: %w", err)
	}
	expected := sign([]byte(key), canonical)

	provided, err := base64.StdEncoding.DecodeString(st.Signature)
	if err != nil {
		return nil, models.ErrInvalidSignature
	}
	match := hmac.Equal(expected, provided)

	if payload.IsExpired(s.now()) {
		return nil, models.ErrTokenExpired
	}
	if !match {
		return nil, models.ErrInvalidSignature
	}
	return &payload, nil
}

func sign(key, message []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return mac.Sum(nil)
}
