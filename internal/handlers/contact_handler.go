package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spa542/brawnyoriginals/internal/middleware"
	"github.com/spa542/brawnyoriginals/internal/models"
	"go.uber.org/zap"
)

// ContactSender forwards a contact-form message to the configured inbox.
type ContactSender interface {
	SendContact(ctx context.Context, name, fromEmail, message string) error
}

// ContactHandler exposes the contact-form endpoint.
type ContactHandler struct {
	captcha CaptchaVerifier
	mailer  ContactSender
	logger  *zap.Logger
}

func NewContactHandler(captcha CaptchaVerifier, mailer ContactSender, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{
		captcha: captcha,
		mailer:  mailer,
		logger:  logger,
	}
}

// SendMessage handles POST /contact.
func (h *ContactHandler) SendMessage(c *gin.Context) {
	logger := requestLogger(c, h.logger)

	var req models.ContactRequest
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
		c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: "invalid or expired captcha token"})
		return
	}

	if err := h.mailer.SendContact(c.Request.Context(), req.Name, req.Email, req.Message); err != nil {
		logger.Error("failed to send contact email", zap.Error(err))
		c.JSON(http.StatusInternalServerError, middleware.ErrorResponse{Error: "failed to send message"})
		return
	}

	logger.Info("contact message forwarded", zap.String("from", req.Email))
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "message sent"})
}
