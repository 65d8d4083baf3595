package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/simpmc/simppay/internal/ledger/domain"
	milestonedomain "github.com/simpmc/simppay/internal/milestone/domain"
	paymentdomain "github.com/simpmc/simppay/internal/payment/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrTooManyCards   = errors.New("too_many_card_submissions")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, paymentdomain.ErrInvalidPlayer),
		errors.Is(err, paymentdomain.ErrInvalidDetail),
		errors.Is(err, paymentdomain.ErrInvalidTelco),
		errors.Is(err, paymentdomain.ErrInvalidDenomination),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, ledgerdomain.ErrInvalidWindow),
		errors.Is(err, milestonedomain.ErrInvalidWindow):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: err.Error(),
		}
	case errors.Is(err, paymentdomain.ErrPaymentNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "payment not found",
		}
	case errors.Is(err, paymentdomain.ErrDuplicateSubmission):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "payment already in flight",
		}
	case errors.Is(err, ErrTooManyCards):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many card submissions",
		}
	case errors.Is(err, paymentdomain.ErrProviderNotConfigured),
		errors.Is(err, paymentdomain.ErrProviderNotFound):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "payment provider unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
