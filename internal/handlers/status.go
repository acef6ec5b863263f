package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spa542/brawnyoriginals/internal/services"
)

var startTime = time.Now()

// StatusResponse describes the running service.
type StatusResponse struct {
	Status        string       `json:"status"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Version       string       `json:"version"`
	Checkout      CheckoutInfo `json:"checkout"`
	Webhook       WebhookInfo  `json:"webhook"`
}

// CheckoutInfo reports the token codec's public parameters.
type CheckoutInfo struct {
	Algorithm            string `json:"algorithm"`
	TokenLifetimeSeconds int    `json:"token_lifetime_seconds"`
}

// WebhookInfo reports the verifier's public parameters.
type WebhookInfo struct {
	SignatureHeader  string `json:"signature_header"`
	ToleranceSeconds int    `json:"tolerance_seconds"`
}

// StatusHandler handles GET /status.
func StatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		Version:       "1.0.0",
		Checkout: CheckoutInfo{
			Algorithm:            "HMAC-SHA256",
			TokenLifetimeSeconds: int(services.DefaultTokenLifetime.Seconds()),
		},
		Webhook: WebhookInfo{
			SignatureHeader:  services.SignatureHeader,
			ToleranceSeconds: int(services.DefaultTolerance.Seconds()),
		},
	})
}
