package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/gateway"
	"github.com/smarttransit/busticket-client/internal/services"
	"github.com/smarttransit/busticket-client/internal/session"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Code     string `json:"code,omitempty"`
	Field    string `json:"field,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// LoginPath is where a client is sent once its session has expired
const LoginPath = "/login"

// respondError maps a service or gateway error onto a JSON error response
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status, body := errorResponse(err)

	entry := logger.WithFields(logrus.Fields{
		"path":   c.Request.URL.Path,
		"status": status,
		"code":   body.Code,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func errorResponse(err error) (int, ErrorResponse) {
	var (
		validationErr *services.ValidationError
		fareErr       *services.FareUnavailableError
		sessionErr    *session.Error
		bookingErr    *services.BookingError
		paymentErr    *services.PaymentError
		apiErr        *gateway.APIError
		networkErr    *gateway.NetworkError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: validationErr.Message,
			Code:    "VALIDATION_FAILED",
			Field:   validationErr.Field,
		}
	case errors.As(err, &fareErr):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "fare_unavailable",
			Message: fareErr.Error(),
			Code:    "FARE_UNAVAILABLE",
		}
	case errors.Is(err, gateway.ErrSessionExpired):
		return http.StatusUnauthorized, ErrorResponse{
			Error:    "session_expired",
			Message:  "Your session has expired. Please log in again.",
			Code:     "SESSION_EXPIRED",
			Redirect: LoginPath,
		}
	case errors.Is(err, services.ErrNoUser):
		return http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Please log in to continue",
			Code:    "NOT_LOGGED_IN",
		}
	case errors.Is(err, services.ErrTicketNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Ticket not found for this booking",
			Code:    "TICKET_NOT_FOUND",
		}
	case errors.As(err, &sessionErr):
		return http.StatusUnauthorized, ErrorResponse{
			Error:   sessionErr.Op + "_failed",
			Message: sessionErr.Message,
			Code:    codeOr(err, "AUTH_FAILED"),
		}
	case errors.As(err, &bookingErr):
		return upstreamStatus(err), ErrorResponse{
			Error:   "booking_failed",
			Message: bookingErr.Message,
			Code:    codeOr(err, "BOOKING_FAILED"),
		}
	case errors.As(err, &paymentErr):
		return upstreamStatus(err), ErrorResponse{
			Error:   "payment_failed",
			Message: paymentErr.Message,
			Code:    codeOr(err, "PAYMENT_FAILED"),
		}
	case errors.As(err, &apiErr):
		return upstreamStatus(err), ErrorResponse{
			Error:   string(apiErr.Kind),
			Message: gateway.UserMessage(err, "The server could not complete the request"),
			Code:    codeOr(err, "UPSTREAM_ERROR"),
		}
	case errors.As(err, &networkErr):
		return http.StatusBadGateway, ErrorResponse{
			Error:   "network_error",
			Message: "Could not reach the booking server. Please check your connection.",
			Code:    "NETWORK_ERROR",
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Something went wrong. Please try again.",
			Code:    "INTERNAL_ERROR",
		}
	}
}

// upstreamStatus passes client errors of the backend through and turns
// everything else into 502
func upstreamStatus(err error) int {
	var apiErr *gateway.APIError
	if !errors.As(err, &apiErr) {
		return http.StatusBadGateway
	}

	switch apiErr.Kind {
	case gateway.KindValidation:
		return http.StatusBadRequest
	case gateway.KindAuth:
		if apiErr.Status == http.StatusForbidden {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case gateway.KindNotFound:
		return http.StatusNotFound
	case gateway.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func codeOr(err error, fallback string) string {
	if code := gateway.CodeOf(err); code != "" {
		return code
	}
	return fallback
}

// badRequest reports a body or query that could not be bound
func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: message,
		Code:    "INVALID_REQUEST",
	})
}
