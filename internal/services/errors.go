package services

import (
	"errors"
	"fmt"

	"github.com/smarttransit/busticket-client/internal/gateway"
	"github.com/smarttransit/busticket-client/internal/models"
)

const (
	defaultBookingMessage = "Booking failed. Please try again."
	defaultPaymentMessage = "Payment failed. Please try again."
)

// ErrNoUser is returned by per-user operations called without a signed-in user
var ErrNoUser = errors.New("no signed-in user")

// ValidationError is a client-side check that failed before any backend call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// FareUnavailableError means no positive fare could be found for a trip
type FareUnavailableError struct {
	TripID models.ID
	Err    error
}

func (e *FareUnavailableError) Error() string {
	return fmt.Sprintf("Fare information is unavailable for trip %s. Please try again later.", e.TripID)
}

func (e *FareUnavailableError) Unwrap() error {
	return e.Err
}

// BookingError is a failed hold with a message fit for the user
type BookingError struct {
	Message string
	Err     error
}

func (e *BookingError) Error() string {
	return e.Message
}

func (e *BookingError) Unwrap() error {
	return e.Err
}

// PaymentError is a failed payment with a message fit for the user
type PaymentError struct {
	BookingID models.ID
	Message   string
	Err       error
}

func (e *PaymentError) Error() string {
	return e.Message
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

func isSessionExpired(err error) bool {
	return errors.Is(err, gateway.ErrSessionExpired)
}
