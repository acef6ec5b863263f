package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spa542/brawnyoriginals/internal/dispatch"
	"github.com/spa542/brawnyoriginals/internal/middleware"
	"github.com/spa542/brawnyoriginals/internal/models"
	"github.com/spa542/brawnyoriginals/internal/services"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// TokenCodec issues and verifies checkout tokens.
type TokenCodec interface {
	Issue(ctx context.Context, priceIDs []string) (string, int64, error)
	Verify(ctx context.Context, token string) (*models.CheckoutTokenPayload, error)
}

// SessionCreator opens a provider checkout session from a verified payload.
type SessionCreator interface {
	CreateSession(ctx context.Context, payload *models.CheckoutTokenPayload, quantity int64, successURL, cancelURL string) (*models.CheckoutSessionResponse, error)
}

// EventVerifier authenticates an inbound webhook.
type EventVerifier interface {
	Verify(ctx context.Context, rawBody []byte, signatureHeader string) (*models.WebhookEvent, error)
}

// EventDispatcher routes a verified event to its handler.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event *models.WebhookEvent) dispatch.Result
}

// CaptchaVerifier checks a client-supplied captcha token.
type CaptchaVerifier interface {
	VerifyToken(ctx context.Context, token, remoteIP string) (bool, error)
}

// PaymentsHandler exposes the checkout token, checkout session, and webhook
// endpoints.
type PaymentsHandler struct {
	codec      TokenCodec
	checkout   SessionCreator
	verifier   EventVerifier
	dispatcher EventDispatcher
	captcha    CaptchaVerifier
	prices     models.PriceList
	logger     *zap.Logger
}

func NewPaymentsHandler(codec TokenCodec, checkout SessionCreator, verifier EventVerifier, dispatcher EventDispatcher, captcha CaptchaVerifier, prices models.PriceList, logger *zap.Logger) *PaymentsHandler {
	return &PaymentsHandler{
		codec:      codec,
		checkout:   checkout,
		verifier:   verifier,
		dispatcher: dispatcher,
		captcha:    captcha,
		prices:     prices,
		logger:     logger,
	}
}

// GenerateToken handles POST /payments/generate-token. The captcha gate and
// the price-id allow-list check both happen here, before the codec is asked
// to sign anything.
func (h *PaymentsHandler) GenerateToken(c *gin.Context) {
	logger := requestLogger(c, h.logger)

	var req models.GenerateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: err.Error()})
		return
	}

	ok, err := h.captcha.VerifyToken(c.Request.Context(), req.CaptchaToken, c.ClientIP())
	if err != nil {
		logger.Error("captcha verification error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, middleware.ErrorResponse{Error: "captcha verification failed"})
		return
	}
	if !ok {
		logger.Warn("captcha validation failed", zap.String("ip", c.ClientIP()))
		c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: "invalid or expired captcha token"})
		return
	}

	if err := h.prices.Validate(req.PriceIDs); err != nil {
		logger.Warn("price id validation failed", zap.Strings("price_ids", req.PriceIDs))
		c.JSON(middleware.HTTPStatus(err), middleware.ErrorResponse{Error: err.Error()})
		return
	}

	token, expiresAt, err := h.codec.Issue(c.Request.Context(), req.PriceIDs)
	if err != nil {
		logger.Error("failed to issue checkout token", zap.Error(err))
		c.JSON(middleware.HTTPStatus(err), middleware.ErrorResponse{Error: "failed to generate checkout token"})
		return
	}

	logger.Info("issued checkout token",
		zap.Strings("price_ids", req.PriceIDs),
		zap.Int64("expires_at", expiresAt))
	c.JSON(http.StatusOK, models.GenerateTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// CreateCheckoutSession handles POST /payments/create-checkout-session. The
// price ids come from the verified token, never from the request body, so a
// token issued for one item cannot buy another.
func (h *PaymentsHandler) CreateCheckoutSession(c *gin.Context) {
	logger := requestLogger(c, h.logger)

	var req models.CreateCheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: err.Error()})
		return
	}

	payload, err := h.codec.Verify(c.Request.Context(), req.Token)
	if err != nil {
		logger.Warn("checkout token rejected", zap.Error(err))
		c.JSON(middleware.HTTPStatus(err), middleware.ErrorResponse{Error: err.Error()})
		return
	}

	session, err := h.checkout.CreateSession(c.Request.Context(), payload, req.Quantity, req.SuccessURL, req.CancelURL)
	if err != nil {
		logger.Error("failed to create checkout session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, middleware.ErrorResponse{Error: "failed to create checkout session"})
		return
	}

	c.JSON(http.StatusCreated, session)
}

// HandleWebhook handles POST /payments/stripe/webhook. The provider expects a
// fast acknowledgment, so the event is dispatched in the background after the
// 200 goes out; a fulfillment failure after that point is observable in logs
// only, the provider will not retry.
func (h *PaymentsHandler) HandleWebhook(c *gin.Context) {
	logger := requestLogger(c, h.logger)

	rawBody, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: "failed to read request body"})
		return
	}

	event, err := h.verifier.Verify(c.Request.Context(), rawBody, c.GetHeader(services.SignatureHeader))
	if err != nil {
		if errors.Is(err, models.ErrSecretUnavailable) || errors.Is(err, models.ErrSecretNotFound) {
			logger.Error("webhook secret unavailable", zap.Error(err))
			c.JSON(http.StatusInternalServerError, middleware.ErrorResponse{Error: "webhook verification unavailable"})
			return
		}
		logger.Warn("webhook rejected", zap.Error(err))
		c.JSON(middleware.HTTPStatus(err), middleware.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.WebhookResponse{
		Received:  true,
		EventType: event.Type,
		EventID:   event.ID,
	})

	go func() {
		// The request context dies with the response; dispatch gets its own.
		h.dispatcher.Dispatch(context.Background(), event)
	}()
}

func requestLogger(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := c.Get(middleware.LoggerKey); ok {
		return l.(*zap.Logger)
	}
	return fallback
}
