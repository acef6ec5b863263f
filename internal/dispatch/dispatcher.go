package dispatch

import (
	"context"
	"time"

	"github.com/spa542/brawnyoriginals/internal/models"
	"go.uber.org/zap"
)

// Status is the terminal state of one dispatch cycle. Events move
// RECEIVED -> DISPATCHED -> COMPLETED | FAILED, or straight to IGNORED when
// the type is not recognized. There is no built-in retry: by the time a
// handler runs, the provider has already been acknowledged.
type Status string

const (
	StatusReceived   Status = "received"
	StatusDispatched Status = "dispatched"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusIgnored    Status = "ignored"
)

// Handler processes one verified event.
type Handler func(ctx context.Context, event *models.WebhookEvent) error

// Result records the outcome of one dispatch cycle, for observability only.
type Result struct {
	EventID   string
	EventType string
	Status    Status
	Timestamp time.Time
	Err       error
}

// Dispatcher routes a verified webhook event to at most one handler per event
// type. Handler failures are logged and recorded, never surfaced to the
// provider: the fast-ack already went out before dispatch started.
type Dispatcher struct {
	handlers map[string]Handler
	timeout  time.Duration
	logger   *zap.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHandlerTimeout bounds how long one handler may run.
func WithHandlerTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		disp.timeout = d
	}
}

func NewDispatcher(logger *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string]Handler),
		timeout:  30 * time.Second,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register binds a handler to an event type, replacing any previous one.
func (d *Dispatcher) Register(eventType string, handler Handler) {
	d.handlers[eventType] = handler
}

// Dispatch runs the handler registered for the event's type and returns the
// terminal outcome. Unrecognized types are ignored without side effects.
// Events for the same order may arrive in any relative order; handlers must
// not assume otherwise.
func (d *Dispatcher) Dispatch(ctx context.Context, event *models.WebhookEvent) Result {
	result := Result{
		EventID:   event.ID,
		EventType: event.Type,
		Status:    StatusReceived,
		Timestamp: time.Now(),
	}

	handler, ok := d.handlers[event.Type]
	if !ok {
		result.Status = StatusIgnored
		d.logger.Info("ignoring unrecognized webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type))
		return result
	}

	result.Status = StatusDispatched
	d.logger.Info("dispatching webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.Bool("livemode", event.Livemode))

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := handler(ctx, event); err != nil {
		result.Status = StatusFailed
		result.Err = err
		d.logger.Error("webhook event handler failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type),
			zap.Error(err))
		return result
	}

	result.Status = StatusCompleted
	d.logger.Info("webhook event completed",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type))
	return result
}

// RecordOnly returns a handler that logs the event and does nothing else.
// Used for event types we want visibility on but take no action for.
func RecordOnly(logger *zap.Logger) Handler {
	return func(ctx context.Context, event *models.WebhookEvent) error {
		logger.Info("recorded webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type))
		return nil
	}
}
