package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/smarttransit/busticket-client/internal/compat"
	"github.com/smarttransit/busticket-client/internal/models"
)

// BusAPI covers /buses
type BusAPI struct {
	client *Client
}

// List returns all buses
// GET /buses
func (a *BusAPI) List(ctx context.Context) ([]models.Bus, error) {
	return a.list(ctx, "/buses")
}

// Active returns buses in service
// GET /buses/active
func (a *BusAPI) Active(ctx context.Context) ([]models.Bus, error) {
	return a.list(ctx, "/buses/active")
}

// ByType returns buses of a type (AC, NON_AC, SLEEPER...)
// GET /buses/type/:type
func (a *BusAPI) ByType(ctx context.Context, busType string) ([]models.Bus, error) {
	return a.list(ctx, pathf("/buses/type/%s", busType))
}

// Get returns one bus
// GET /buses/:id
func (a *BusAPI) Get(ctx context.Context, id models.ID) (*models.Bus, error) {
	return a.one(ctx, http.MethodGet, pathf("/buses/%s", id), nil)
}

// Create registers a bus
// POST /buses
func (a *BusAPI) Create(ctx context.Context, bus models.Bus) (*models.Bus, error) {
	return a.one(ctx, http.MethodPost, "/buses", bus)
}

// Update changes a bus
// PUT /buses/:id
func (a *BusAPI) Update(ctx context.Context, id models.ID, bus models.Bus) (*models.Bus, error) {
	return a.one(ctx, http.MethodPut, pathf("/buses/%s", id), bus)
}

// Delete removes a bus
// DELETE /buses/:id
func (a *BusAPI) Delete(ctx context.Context, id models.ID) error {
	return a.client.Do(ctx, http.MethodDelete, pathf("/buses/%s", id), nil, nil)
}

func (a *BusAPI) list(ctx context.Context, path string) ([]models.Bus, error) {
	var raw json.RawMessage
	if err := a.client.Do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return compat.DecodeBuses(raw)
}

func (a *BusAPI) one(ctx context.Context, method, path string, body interface{}) (*models.Bus, error) {
	var raw json.RawMessage
	if err := a.client.Do(ctx, method, path, body, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return &models.Bus{}, nil
	}
	return compat.DecodeBus(raw)
}

// RouteAPI covers /routes
type RouteAPI struct {
	client *Client
}

// List returns all routes
// GET /routes
func (a *RouteAPI) List(ctx context.Context) ([]models.Route, error) {
	return a.list(ctx, "/routes", nil)
}

// Active returns routes in service
// GET /routes/active
func (a *RouteAPI) Active(ctx context.Context) ([]models.Route, error) {
	return a.list(ctx, "/routes/active", nil)
}

// Search finds routes between two stops
// GET /routes/search?source=&destination=
func (a *RouteAPI) Search(ctx context.Context, source, destination string) ([]models.Route, error) {
	return a.list(ctx, "/routes/search", url.Values{
		"source":      []string{source},
		"destination": []string{destination},
	})
}

// Get returns one route
// GET /routes/:id
func (a *RouteAPI) Get(ctx context.Context, id models.ID) (*models.Route, error) {
	var route models.Route
	if err := a.client.Do(ctx, http.MethodGet, pathf("/routes/%s", id), nil, &route); err != nil {
		return nil, err
	}
	return &route, nil
}

// Create registers a route
// POST /routes
func (a *RouteAPI) Create(ctx context.Context, route models.Route) (*models.Route, error) {
	var created models.Route
	if err := a.client.Do(ctx, http.MethodPost, "/routes", route, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update changes a route
// PUT /routes/:id
func (a *RouteAPI) Update(ctx context.Context, id models.ID, route models.Route) (*models.Route, error) {
	var updated models.Route
	if err := a.client.Do(ctx, http.MethodPut, pathf("/routes/%s", id), route, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a route
// DELETE /routes/:id
func (a *RouteAPI) Delete(ctx context.Context, id models.ID) error {
	return a.client.Do(ctx, http.MethodDelete, pathf("/routes/%s", id), nil, nil)
}

func (a *RouteAPI) list(ctx context.Context, path string, query url.Values) ([]models.Route, error) {
	var raw json.RawMessage
	var opts []CallOption
	if query != nil {
		opts = append(opts, WithQuery(query))
	}
	if err := a.client.Do(ctx, http.MethodGet, path, nil, &raw, opts...); err != nil {
		return nil, err
	}
	routes := []models.Route{}
	if err := compat.DecodeListInto(raw, &routes); err != nil {
		return nil, err
	}
	return routes, nil
}
