package models

import "time"

// Ticket is the travel document issued for a confirmed booking
type Ticket struct {
	ID           ID         `json:"id"`
	TicketNumber string     `json:"ticketNumber,omitempty"`
	Booking      *Booking   `json:"booking,omitempty"`
	Status       string     `json:"status,omitempty"`
	QRCode       string     `json:"qrCode,omitempty"`
	CreatedAt    *Timestamp `json:"createdAt,omitempty"`
	IssuedAt     *Timestamp `json:"issuedAt,omitempty"`
}

// BookingID returns the id of the ticket's booking
func (t *Ticket) BookingID() ID {
	if t == nil || t.Booking == nil {
		return ""
	}
	return t.Booking.ID
}

// IssuedOrCreated returns createdAt, falling back to issuedAt
func (t *Ticket) IssuedOrCreated() time.Time {
	if t.CreatedAt != nil && !t.CreatedAt.IsZero() {
		return t.CreatedAt.Time
	}
	if t.IssuedAt != nil {
		return t.IssuedAt.Time
	}
	return time.Time{}
}
