package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/smarttransit/busticket-client/internal/compat"
	"github.com/smarttransit/busticket-client/internal/models"
)

// BookingAPI covers /bookings
type BookingAPI struct {
	client *Client
}

// Hold reserves seats pending payment. The response shape varies by backend
// version, so it is returned raw for compat.DecodeHoldResponse.
// POST /bookings/hold
func (a *BookingAPI) Hold(ctx context.Context, req models.HoldRequest) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := a.client.Do(ctx, http.MethodPost, "/bookings/hold", req, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Confirm confirms a held booking
// POST /bookings/:id/confirm
func (a *BookingAPI) Confirm(ctx context.Context, id models.ID) (*models.Booking, error) {
	return a.one(ctx, http.MethodPost, pathf("/bookings/%s/confirm", id), nil)
}

// Cancel cancels a booking
// POST /bookings/:id/cancel
func (a *BookingAPI) Cancel(ctx context.Context, id models.ID, reason string) error {
	return a.client.Do(ctx, http.MethodPost, pathf("/bookings/%s/cancel", id), models.CancelRequest{Reason: reason}, nil)
}

// Get returns one booking
// GET /bookings/:id
func (a *BookingAPI) Get(ctx context.Context, id models.ID) (*models.Booking, error) {
	return a.one(ctx, http.MethodGet, pathf("/bookings/%s", id), nil)
}

// Mine returns the bookings of the authenticated user
// GET /bookings/my
func (a *BookingAPI) Mine(ctx context.Context) ([]models.Booking, error) {
	return a.list(ctx, "/bookings/my")
}

// ByUser returns the bookings of a user
// GET /bookings/user/:id
func (a *BookingAPI) ByUser(ctx context.Context, userID models.ID) ([]models.Booking, error) {
	return a.list(ctx, pathf("/bookings/user/%s", userID))
}

// All returns every booking (admin)
// GET /bookings
func (a *BookingAPI) All(ctx context.Context) ([]models.Booking, error) {
	return a.list(ctx, "/bookings")
}

func (a *BookingAPI) list(ctx context.Context, path string) ([]models.Booking, error) {
	var raw json.RawMessage
	if err := a.client.Do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return compat.DecodeBookings(raw)
}

func (a *BookingAPI) one(ctx context.Context, method, path string, body interface{}) (*models.Booking, error) {
	var raw json.RawMessage
	if err := a.client.Do(ctx, method, path, body, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return compat.DecodeBooking(raw)
}
