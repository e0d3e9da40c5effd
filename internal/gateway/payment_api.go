package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/smarttransit/busticket-client/internal/compat"
	"github.com/smarttransit/busticket-client/internal/models"
)

// PaymentAPI covers /payments
type PaymentAPI struct {
	client *Client
}

// Checkout pays for a booking
// POST /payments/checkout
func (a *PaymentAPI) Checkout(ctx context.Context, req models.PaymentRequest) (*models.Payment, error) {
	var payment models.Payment
	if err := a.client.Do(ctx, http.MethodPost, "/payments/checkout", req, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ByBooking returns the payment of a booking
// GET /payments/booking/:id
func (a *PaymentAPI) ByBooking(ctx context.Context, bookingID models.ID) (*models.Payment, error) {
	var payment models.Payment
	if err := a.client.Do(ctx, http.MethodGet, pathf("/payments/booking/%s", bookingID), nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// Get returns one payment
// GET /payments/:id
func (a *PaymentAPI) Get(ctx context.Context, id models.ID) (*models.Payment, error) {
	var payment models.Payment
	if err := a.client.Do(ctx, http.MethodGet, pathf("/payments/%s", id), nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// All returns every payment (admin)
// GET /payments
func (a *PaymentAPI) All(ctx context.Context) ([]models.Payment, error) {
	var raw json.RawMessage
	if err := a.client.Do(ctx, http.MethodGet, "/payments", nil, &raw); err != nil {
		return nil, err
	}
	payments := []models.Payment{}
	if err := compat.DecodeListInto(raw, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// Refund refunds a payment
// POST /payments/:id/refund
func (a *PaymentAPI) Refund(ctx context.Context, id models.ID, req models.RefundRequest) (*models.Payment, error) {
	var payment models.Payment
	if err := a.client.Do(ctx, http.MethodPost, pathf("/payments/%s/refund", id), req, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}
