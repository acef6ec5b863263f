package recaptcha

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/spa542/brawnyoriginals/internal/secrets"
	"go.uber.org/zap"
)

// SecretName is the reCAPTCHA server-side secret.
const SecretName = "RECAPTCHA_SECRET_KEY"

const defaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// Client verifies reCAPTCHA tokens with Google's siteverify endpoint.
type Client struct {
	client    *resty.Client
	cache     *secrets.Cache
	verifyURL string
	threshold float64
	logger    *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithVerifyURL overrides the siteverify endpoint. Used in tests.
func WithVerifyURL(url string) ClientOption {
	return func(c *Client) {
		c.verifyURL = url
	}
}

func NewClient(cache *secrets.Cache, threshold float64, logger *zap.Logger, opts ...ClientOption) *Client {
	c := &Client{
		client:    resty.New(),
		cache:     cache,
		verifyURL: defaultVerifyURL,
		threshold: threshold,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	Action     string   `json:"action"`
	ErrorCodes []string `json:"error-codes"`
}

// VerifyToken reports whether the client-supplied captcha token passes. A
// transport failure is an error; a failed or low-score verification is a
// clean false.
func (c *Client) VerifyToken(ctx context.Context, token, remoteIP string) (bool, error) {
	secret, err := c.cache.Get(ctx, SecretName)
	if err != nil {
		return false, fmt.Errorf("fetching recaptcha secret: %w", err)
	}

	var result verifyResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"secret":   secret,
			"response": token,
			"remoteip": remoteIP,
		}).
		SetResult(&result).
		Post(c.verifyURL)
	if err != nil {
		return false, fmt.Errorf("verifying captcha token: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("recaptcha returned status %d", resp.StatusCode())
	}

	if !result.Success || result.Score < c.threshold {
		c.logger.Warn("captcha verification rejected",
			zap.Bool("success", result.Success),
			zap.Float64("score", result.Score),
			zap.Strings("error_codes", result.ErrorCodes))
		return false, nil
	}
	return true, nil
}
