package models

import "errors"

// Configuration-class errors. The request that hit them can be retried later;
// the client did nothing wrong.
var (
	ErrSecretUnavailable = errors.New("secret store unavailable and no cached value exists")
	ErrSecretNotFound    = errors.New("secret not found")
)

// Client/input-class errors. Never retried automatically; always rejected
// with a bad-request or unauthorized outcome.
var (
	ErrInvalidPriceID   = errors.New("invalid price id")
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrMissingSignature = errors.New("signature header is required")
	ErrTokenExpired     = errors.New("token has expired")
	ErrMalformedPayload = errors.New("malformed event payload")
)
