package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/smarttransit/busticket-client/internal/compat"
	"github.com/smarttransit/busticket-client/internal/models"
)

// TicketAPI covers /tickets
type TicketAPI struct {
	client *Client
}

// Get returns one ticket
// GET /tickets/:id
func (a *TicketAPI) Get(ctx context.Context, id models.ID) (*models.Ticket, error) {
	return a.one(ctx, http.MethodGet, pathf("/tickets/%s", id))
}

// ByBooking returns the ticket of a booking
// GET /tickets/booking/:id
func (a *TicketAPI) ByBooking(ctx context.Context, bookingID models.ID) (*models.Ticket, error) {
	return a.one(ctx, http.MethodGet, pathf("/tickets/booking/%s", bookingID))
}

// Generate issues the ticket of a confirmed booking
// POST /tickets/generate/:id
func (a *TicketAPI) Generate(ctx context.Context, bookingID models.ID) (*models.Ticket, error) {
	return a.one(ctx, http.MethodPost, pathf("/tickets/generate/%s", bookingID))
}

// Validate checks a ticket number at boarding
// GET /tickets/validate/:number
func (a *TicketAPI) Validate(ctx context.Context, ticketNumber string) (map[string]interface{}, error) {
	result := map[string]interface{}{}
	if err := a.client.Do(ctx, http.MethodGet, pathf("/tickets/validate/%s", ticketNumber), nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// All returns every ticket visible to the caller
// GET /tickets
func (a *TicketAPI) All(ctx context.Context) ([]models.Ticket, error) {
	var raw json.RawMessage
	if err := a.client.Do(ctx, http.MethodGet, "/tickets", nil, &raw); err != nil {
		return nil, err
	}
	return compat.DecodeTickets(raw)
}

// PDF downloads the printable ticket
// GET /tickets/:id/pdf
func (a *TicketAPI) PDF(ctx context.Context, id models.ID) ([]byte, string, error) {
	return a.client.Raw(ctx, http.MethodGet, pathf("/tickets/%s/pdf", id))
}

func (a *TicketAPI) one(ctx context.Context, method, path string) (*models.Ticket, error) {
	var raw json.RawMessage
	if err := a.client.Do(ctx, method, path, nil, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return compat.DecodeTicket(raw)
}
