package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/smarttransit/busticket-client/internal/compat"
	"github.com/smarttransit/busticket-client/internal/models"
)

// TripAPI covers /trips
type TripAPI struct {
	client *Client
}

// Search finds trips between two stops on a date
// POST /trips/search
func (a *TripAPI) Search(ctx context.Context, req models.TripSearchRequest) ([]models.Trip, error) {
	return a.list(ctx, http.MethodPost, "/trips/search", req)
}

// Get returns one trip with fare and capacity resolved
// GET /trips/:id
func (a *TripAPI) Get(ctx context.Context, id models.ID) (*models.Trip, error) {
	var raw json.RawMessage
	if err := a.client.Do(ctx, http.MethodGet, pathf("/trips/%s", id), nil, &raw); err != nil {
		return nil, err
	}
	return compat.DecodeTrip(raw)
}

// Seats returns the seat resource of a trip
// GET /trips/:id/seats
func (a *TripAPI) Seats(ctx context.Context, id models.ID) (*compat.SeatMapPayload, error) {
	var raw json.RawMessage
	if err := a.client.Do(ctx, http.MethodGet, pathf("/trips/%s/seats", id), nil, &raw); err != nil {
		return nil, err
	}
	return compat.DecodeSeatMap(raw)
}

// List returns all trips
// GET /trips
func (a *TripAPI) List(ctx context.Context) ([]models.Trip, error) {
	return a.list(ctx, http.MethodGet, "/trips", nil)
}

// ByDate returns trips departing on date (YYYY-MM-DD)
// GET /trips/date/:date
func (a *TripAPI) ByDate(ctx context.Context, date string) ([]models.Trip, error) {
	return a.list(ctx, http.MethodGet, pathf("/trips/date/%s", date), nil)
}

// ByRoute returns trips on a route
// GET /trips/route/:id
func (a *TripAPI) ByRoute(ctx context.Context, routeID models.ID) ([]models.Trip, error) {
	return a.list(ctx, http.MethodGet, pathf("/trips/route/%s", routeID), nil)
}

// ByBus returns trips operated by a bus
// GET /trips/bus/:id
func (a *TripAPI) ByBus(ctx context.Context, busID models.ID) ([]models.Trip, error) {
	return a.list(ctx, http.MethodGet, pathf("/trips/bus/%s", busID), nil)
}

// Create schedules a trip
// POST /trips
func (a *TripAPI) Create(ctx context.Context, req models.TripRequest) (*models.Trip, error) {
	return a.one(ctx, http.MethodPost, "/trips", req)
}

// Update changes a trip
// PUT /trips/:id
func (a *TripAPI) Update(ctx context.Context, id models.ID, req models.TripRequest) (*models.Trip, error) {
	return a.one(ctx, http.MethodPut, pathf("/trips/%s", id), req)
}

// Delete removes a trip
// DELETE /trips/:id
func (a *TripAPI) Delete(ctx context.Context, id models.ID) error {
	return a.client.Do(ctx, http.MethodDelete, pathf("/trips/%s", id), nil, nil)
}

func (a *TripAPI) list(ctx context.Context, method, path string, body interface{}) ([]models.Trip, error) {
	var raw json.RawMessage
	if err := a.client.Do(ctx, method, path, body, &raw); err != nil {
		return nil, err
	}
	return compat.DecodeTrips(raw)
}

func (a *TripAPI) one(ctx context.Context, method, path string, body interface{}) (*models.Trip, error) {
	var raw json.RawMessage
	if err := a.client.Do(ctx, method, path, body, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return &models.Trip{}, nil
	}
	return compat.DecodeTrip(raw)
}
