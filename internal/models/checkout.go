package models

import (
	"fmt"
	"time"
)

// CheckoutTokenPayload is the signed body of a checkout token. Field order is
// load-bearing: the canonical encoding used for signing is the JSON marshaling
// of this struct, which is deterministic for a fixed field order.
type CheckoutTokenPayload struct {
	PriceIDs  []string `json:"price_ids"`
	CreatedAt int64    `json:"created_at"`
	ExpiresAt int64    `json:"expires_at"`
}

// IsExpired reports whether the token is past its expiry at the given time.
func (p *CheckoutTokenPayload) IsExpired(now time.Time) bool {
	return now.Unix() > p.ExpiresAt
}

// PriceList is the configured allow-list of purchasable price ids. Validation
// happens at the request layer, before the token codec is invoked.
type PriceList map[string]struct{}

func NewPriceList(ids []string) PriceList {
	pl := make(PriceList, len(ids))
	for _, id := range ids {
		pl[id] = struct{}{}
	}
	return pl
}

// Validate checks that ids is non-empty and every id is allow-listed.
func (pl PriceList) Validate(ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no price ids provided", ErrInvalidPriceID)
	}
	for _, id := range ids {
		if _, ok := pl[id]; !ok {
			return fmt.Errorf("%w: %s", ErrInvalidPriceID, id)
		}
	}
	return nil
}

// GenerateTokenRequest is the body of POST /payments/generate-token.
type GenerateTokenRequest struct {
	PriceIDs     []string `json:"price_ids" binding:"required"`
	CaptchaToken string   `json:"captcha_token" binding:"required"`
}

// GenerateTokenResponse carries the opaque checkout token and its unix expiry.
type GenerateTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// CreateCheckoutSessionRequest is the body of POST /payments/create-checkout-session.
// The price ids come from the verified token, not from the request.
type CreateCheckoutSessionRequest struct {
	Token      string `json:"token" binding:"required"`
	Quantity   int64  `json:"quantity"`
	SuccessURL string `json:"success_url" binding:"required,url"`
	CancelURL  string `json:"cancel_url" binding:"required,url"`
}

// CheckoutSessionResponse describes a created provider checkout session.
type CheckoutSessionResponse struct {
	SessionID     string `json:"session_id"`
	URL           string `json:"url"`
	ExpiresAt     int64  `json:"expires_at"`
	PaymentStatus string `json:"payment_status"`
}

// ContactRequest is the body of POST /contact.
type ContactRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Message      string `json:"message" binding:"required"`
	CaptchaToken string `json:"captcha_token" binding:"required"`
}
