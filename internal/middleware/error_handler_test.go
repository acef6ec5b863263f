package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spa542/brawnyoriginals/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid price id", models.ErrInvalidPriceID, http.StatusBadRequest},
		{"malformed token", models.ErrMalformedToken, http.StatusBadRequest},
		{"missing signature", models.ErrMissingSignature, http.StatusBadRequest},
		{"malformed payload", models.ErrMalformedPayload, http.StatusBadRequest},
		{"invalid signature", models.ErrInvalidSignature, http.StatusUnauthorized},
		{"expired token", models.ErrTokenExpired, http.StatusUnauthorized},
		{"secret unavailable", models.ErrSecretUnavailable, http.StatusInternalServerError},
		{"secret not found", models.ErrSecretNotFound, http.StatusInternalServerError},
		{"unknown error", assert.AnError, http.StatusInternalServerError},
		{
			"wrapped taxonomy error",
			fmt.Errorf("price id %q: %w", "price_X", models.ErrInvalidPriceID),
			http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/expired", func(c *gin.Context) {
		c.Error(models.ErrTokenExpired)
	})
	router.GET("/written", func(c *gin.Context) {
		c.Error(models.ErrTokenExpired)
		c.JSON(http.StatusTeapot, gin.H{"handled": true})
	})

	t.Run("renders the last error", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/expired", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)

		var resp ErrorResponse
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, models.ErrTokenExpired.Error(), resp.Error)
	})

	t.Run("does not overwrite a written response", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/written", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTeapot, w.Code)
	})
}
