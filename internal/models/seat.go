package models

import (
	"fmt"
	"strings"
	"time"
)

// SeatStatus is the server-side seat state
type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "AVAILABLE"
	SeatStatusHold      SeatStatus = "HOLD"
	SeatStatusBooked    SeatStatus = "BOOKED"
)

// Seat is one seat of a trip
type Seat struct {
	ID         ID         `json:"id"`
	SeatNumber int        `json:"seatNumber"`
	SeatType   string     `json:"seatType,omitempty"`
	Status     SeatStatus `json:"status,omitempty"`
	IsBooked   bool       `json:"isBooked,omitempty"`
	IsHold     bool       `json:"isHold,omitempty"`
	HoldExpiry *Timestamp `json:"holdExpiry,omitempty"`
	Virtual    bool       `json:"virtual,omitempty"`
}

// Booked reports a sold seat
func (s Seat) Booked() bool {
	return s.IsBooked || strings.EqualFold(string(s.Status), string(SeatStatusBooked))
}

// HoldActive reports a hold that has not expired at now. An expired expiry
// clears both the isHold flag and a HOLD status; a hold without expiry is active.
func (s Seat) HoldActive(now time.Time) bool {
	held := s.IsHold || strings.EqualFold(string(s.Status), string(SeatStatusHold))
	if !held {
		return false
	}
	if s.HoldExpiry == nil || s.HoldExpiry.IsZero() {
		return true
	}
	return s.HoldExpiry.After(now)
}

// Selectable reports whether the seat can be offered at now. A seat without
// any status information is treated as available.
func (s Seat) Selectable(now time.Time) bool {
	return !s.Booked() && !s.HoldActive(now)
}

// VirtualSeat builds a placeholder seat for trips without a seat list
func VirtualSeat(number int) Seat {
	return Seat{
		ID:         ID(fmt.Sprintf("virtual-%d", number)),
		SeatNumber: number,
		Status:     SeatStatusAvailable,
		Virtual:    true,
	}
}
