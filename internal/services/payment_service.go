package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/config"
	"github.com/smarttransit/busticket-client/internal/gateway"
	"github.com/smarttransit/busticket-client/internal/models"
	"github.com/smarttransit/busticket-client/internal/state"
)

// Error codes the backend uses for a booking that is already paid
var alreadyPaidCodes = map[string]bool{
	"BOOKING_ALREADY_CONFIRMED": true,
	"PAYMENT_ALREADY_PROCESSED": true,
	"ALREADY_CONFIRMED":         true,
	"BOOKING_NOT_PENDING":       true,
}

// alreadyPaidMessage matches backends that send no error code
var alreadyPaidMessage = regexp.MustCompile(`(?i)already|confirmed|not in pending`)

// PayRequest is a payment as entered by the user
type PayRequest struct {
	BookingID      models.ID `json:"bookingId"`
	Amount         float64   `json:"amount"`
	PaymentMethod  string    `json:"paymentMethod"`
	PaymentGateway string    `json:"paymentGateway"`
	TransactionRef string    `json:"transactionId"`
}

// PaymentResult is a payment that went through, or was already made
type PaymentResult struct {
	Payment          *models.Payment `json:"payment,omitempty"`
	Booking          *models.Booking `json:"booking,omitempty"`
	TransactionRef   string          `json:"transactionId"`
	AlreadyConfirmed bool            `json:"alreadyConfirmed"`
	TicketGenerated  bool            `json:"ticketGenerated"`
}

// PaymentService confirms held bookings by paying for them
type PaymentService struct {
	api      *gateway.API
	vault    *state.Vault
	defaults config.BookingConfig
	logger   *logrus.Logger
	now      func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(api *gateway.API, vault *state.Vault, defaults config.BookingConfig, logger *logrus.Logger) *PaymentService {
	return &PaymentService{
		api:      api,
		vault:    vault,
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
	}
}

// Pay submits the payment of a booking. A rejection saying the booking is
// already paid takes the success path; it is never reported as a failure.
func (s *PaymentService) Pay(ctx context.Context, user *models.User, req PayRequest) (*PaymentResult, error) {
	checkout, err := s.checkoutRequest(req)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"booking_id":     checkout.BookingID,
		"transaction_id": checkout.TransactionID,
		"method":         checkout.PaymentMethod,
	})

	result := &PaymentResult{TransactionRef: checkout.TransactionID}

	payment, err := s.api.Payments.Checkout(ctx, checkout)
	switch {
	case err == nil:
		result.Payment = payment
		log.Info("Payment completed")
	case s.alreadyPaid(err, log):
		result.AlreadyConfirmed = true
		log.Info("Booking already paid, continuing as success")
	default:
		if isSessionExpired(err) {
			return nil, err
		}
		log.WithError(err).Warn("Payment failed")
		return nil, &PaymentError{
			BookingID: checkout.BookingID,
			Message:   gateway.UserMessage(err, defaultPaymentMessage),
			Err:       err,
		}
	}

	s.completePayment(ctx, user, checkout.BookingID, result, log)
	return result, nil
}

// completePayment generates the ticket, reloads the booking and caches it.
// Failures here do not fail the payment.
func (s *PaymentService) completePayment(ctx context.Context, user *models.User, bookingID models.ID, result *PaymentResult, log *logrus.Entry) {
	if _, err := s.api.Tickets.Generate(ctx, bookingID); err != nil {
		log.WithError(err).Debug("Ticket generation skipped; it can be generated on demand")
	} else {
		result.TicketGenerated = true
	}

	booking, err := s.api.Bookings.Get(ctx, bookingID)
	if err != nil {
		log.WithError(err).Warn("Failed to reload booking after payment")
		return
	}
	// An empty body must not replace the cached hold
	if booking == nil {
		log.Warn("Booking reload after payment returned no booking")
		return
	}
	result.Booking = booking

	owner := booking.OwnerID()
	if owner.IsZero() && user != nil {
		owner = user.ID
	}
	if err := s.vault.SaveRecentBooking(ctx, state.RecentBooking{UserID: owner, Booking: booking}); err != nil {
		log.WithError(err).Warn("Failed to cache paid booking")
	}
}

func (s *PaymentService) checkoutRequest(req PayRequest) (models.PaymentRequest, error) {
	var checkout models.PaymentRequest

	if req.BookingID.IsZero() {
		return checkout, newValidationError("bookingId", "Booking is required")
	}
	if !validFare(req.Amount) {
		return checkout, newValidationError("amount", "Payment amount must be a positive number")
	}

	methodName := req.PaymentMethod
	if strings.TrimSpace(methodName) == "" {
		methodName = s.defaults.DefaultPaymentMethod
	}
	method, ok := models.ParsePaymentMethod(methodName)
	if !ok {
		return checkout, newValidationError("paymentMethod", "Unsupported payment method %s", methodName)
	}

	gatewayName := req.PaymentGateway
	if strings.TrimSpace(gatewayName) == "" {
		gatewayName = s.defaults.DefaultPaymentGateway
	}
	paymentGateway, ok := models.ParsePaymentGateway(gatewayName)
	if !ok {
		return checkout, newValidationError("paymentGateway", "Unsupported payment gateway %s", gatewayName)
	}

	ref := strings.TrimSpace(req.TransactionRef)
	if ref == "" {
		ref = s.transactionRef()
	}

	return models.PaymentRequest{
		BookingID:      req.BookingID,
		PaymentMethod:  method,
		Amount:         roundAmount(req.Amount),
		TransactionID:  ref,
		PaymentGateway: paymentGateway,
	}, nil
}

// transactionRef builds TXN<unix millis>-<8 hex>
func (s *PaymentService) transactionRef() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("TXN%d-%s", s.now().UnixMilli(), suffix)
}

// alreadyPaid recognises a duplicate payment by error code, then by message.
// A message match means the backend omitted the code and is logged as such.
func (s *PaymentService) alreadyPaid(err error, log *logrus.Entry) bool {
	var apiErr *gateway.APIError
	if !errors.As(err, &apiErr) || errors.Is(err, gateway.ErrSessionExpired) {
		return false
	}

	if alreadyPaidCodes[strings.ToUpper(apiErr.Code)] {
		return true
	}

	if alreadyPaidMessage.MatchString(apiErr.Message) {
		log.WithFields(logrus.Fields{
			"status":  apiErr.Status,
			"message": apiErr.Message,
		}).Warn("Duplicate payment recognised by message text; backend sent no error code")
		return true
	}
	return false
}
