package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/spa542/brawnyoriginals/internal/models"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDispatcherRoutesByType(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	var fulfilled []string
	d.Register(models.EventPaymentSucceeded, func(ctx context.Context, event *models.WebhookEvent) error {
		fulfilled = append(fulfilled, event.ID)
		return nil
	})
	d.Register(models.EventCheckoutCompleted, RecordOnly(zap.NewNop()))

	result := d.Dispatch(context.Background(), &models.WebhookEvent{
		ID:   "evt_1",
		Type: models.EventPaymentSucceeded,
	})
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, []string{"evt_1"}, fulfilled)

	result = d.Dispatch(context.Background(), &models.WebhookEvent{
		ID:   "evt_2",
		Type: models.EventCheckoutCompleted,
	})
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Len(t, fulfilled, 1)
}

func TestDispatcherIgnoresUnknownTypes(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	called := false
	d.Register(models.EventPaymentSucceeded, func(ctx context.Context, event *models.WebhookEvent) error {
		called = true
		return nil
	})

	result := d.Dispatch(context.Background(), &models.WebhookEvent{
		ID:   "evt_3",
		Type: "some.unknown.type",
	})
	assert.Equal(t, StatusIgnored, result.Status)
	assert.NoError(t, result.Err)
	assert.False(t, called)
}

func TestDispatcherContainsHandlerFailure(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	handlerErr := errors.New("mailgun rejected the message")
	d.Register(models.EventPaymentSucceeded, func(ctx context.Context, event *models.WebhookEvent) error {
		return handlerErr
	})

	// The failure is recorded but never propagated: the provider already got
	// its acknowledgment.
	result := d.Dispatch(context.Background(), &models.WebhookEvent{
		ID:   "evt_4",
		Type: models.EventPaymentSucceeded,
	})
	assert.Equal(t, StatusFailed, result.Status)
	assert.ErrorIs(t, result.Err, handlerErr)
}

func TestDispatcherHandlerTimeout(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), WithHandlerTimeout(0))

	d.Register(models.EventPaymentSucceeded, func(ctx context.Context, event *models.WebhookEvent) error {
		<-ctx.Done()
		return ctx.Err()
	})

	result := d.Dispatch(context.Background(), &models.WebhookEvent{
		ID:   "evt_5",
		Type: models.EventPaymentSucceeded,
	})
	assert.Equal(t, StatusFailed, result.Status)
}
