package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spa542/brawnyoriginals/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/status", StatusHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.GreaterOrEqual(t, resp.UptimeSeconds, int64(0))
	assert.Equal(t, "HMAC-SHA256", resp.Checkout.Algorithm)
	assert.Equal(t, 300, resp.Checkout.TokenLifetimeSeconds)
	assert.Equal(t, services.SignatureHeader, resp.Webhook.SignatureHeader)
	assert.Equal(t, 300, resp.Webhook.ToleranceSeconds)
}
