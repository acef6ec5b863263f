package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spa542/brawnyoriginals/internal/models"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HTTPStatus maps the error taxonomy to response codes. Crypto and input
// errors stay distinguishable from configuration errors: "your token is bad"
// must never look like "we are misconfigured".
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidPriceID),
		errors.Is(err, models.ErrMalformedToken),
		errors.Is(err, models.ErrMissingSignature),
		errors.Is(err, models.ErrMalformedPayload):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidSignature),
		errors.Is(err, models.ErrTokenExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler converts errors attached to the gin context into JSON
// responses, using the taxonomy mapping above. Handlers that want centralized
// error rendering call c.Error and abort.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last().Err
			c.JSON(HTTPStatus(err), ErrorResponse{Error: err.Error()})
		}
	}
}
