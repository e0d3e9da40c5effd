package compat

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/smarttransit/busticket-client/internal/models"
)

type ticketWire struct {
	models.Ticket
	Booking json.RawMessage `json:"booking"`
}

// DecodeTicket reads a ticket object
func DecodeTicket(data []byte) (*models.Ticket, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("decode ticket: %w", err)
	}
	return ticketFromObject(obj)
}

func ticketFromObject(obj map[string]interface{}) (*models.Ticket, error) {
	var wire ticketWire
	if err := json.Unmarshal(remarshal(obj), &wire); err != nil {
		return nil, fmt.Errorf("decode ticket: %w", err)
	}
	ticket := wire.Ticket
	if bookingObj, ok := obj["booking"].(map[string]interface{}); ok {
		booking, err := bookingFromObject(bookingObj)
		if err != nil {
			return nil, err
		}
		ticket.Booking = booking
	}
	return &ticket, nil
}

// DecodeTickets reads a ticket list in any supported envelope
func DecodeTickets(data []byte) ([]models.Ticket, error) {
	items, err := DecodeList(data)
	if err != nil {
		return nil, err
	}
	tickets := make([]models.Ticket, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		ticket, err := ticketFromObject(obj)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, nil
}

// LatestTicketFor picks the newest ticket of a booking by createdAt, then issuedAt
func LatestTicketFor(tickets []models.Ticket, bookingID models.ID) (*models.Ticket, bool) {
	var candidates []models.Ticket
	for _, t := range tickets {
		if t.BookingID() == bookingID {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].IssuedOrCreated().After(candidates[j].IssuedOrCreated())
	})
	latest := candidates[0]
	return &latest, true
}
