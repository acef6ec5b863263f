package models

import "encoding/json"

// Recognized payment-provider event types.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
	EventPaymentSucceeded  = "payment_intent.succeeded"
	EventPaymentFailed     = "payment_intent.payment_failed"
)

// WebhookEvent is a verified payment-provider callback. It is never persisted;
// it lives for one verify-and-dispatch cycle.
type WebhookEvent struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Created  int64            `json:"created"`
	Livemode bool             `json:"livemode"`
	Data     WebhookEventData `json:"data"`
}

// WebhookEventData wraps the provider object the event describes. The object
// stays raw until a handler that knows its shape decodes it.
type WebhookEventData struct {
	Object json.RawMessage `json:"object"`
}

// WebhookResponse is the fast-ack body returned to the provider before
// dispatch runs.
type WebhookResponse struct {
	Received  bool   `json:"received"`
	EventType string `json:"event_type"`
	EventID   string `json:"event_id"`
}

// PaymentIntent is the slice of the provider payment object that fulfillment
// needs: who to deliver to and which items were bought.
type PaymentIntent struct {
	ID           string            `json:"id"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	ReceiptEmail string            `json:"receipt_email"`
	Metadata     map[string]string `json:"metadata"`
}
