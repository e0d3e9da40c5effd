package models

import "strings"

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusExpired   BookingStatus = "EXPIRED"
)

// Normalize upper-cases the status
func (s BookingStatus) Normalize() BookingStatus {
	return BookingStatus(strings.ToUpper(strings.TrimSpace(string(s))))
}

// IsTerminal reports statuses that accept no further transitions
func (s BookingStatus) IsTerminal() bool {
	switch s.Normalize() {
	case BookingStatusCompleted, BookingStatusCancelled, BookingStatusExpired:
		return true
	}
	return false
}

// CanTransitionTo follows PENDING -> CONFIRMED -> COMPLETED, with CANCELLED
// and EXPIRED reachable from any state before COMPLETED. Re-applying the
// current status is allowed.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	from, to := s.Normalize(), next.Normalize()
	if from == to {
		return true
	}
	switch from {
	case "", BookingStatusPending:
		return to == BookingStatusConfirmed || to == BookingStatusCancelled || to == BookingStatusExpired
	case BookingStatusConfirmed:
		return to == BookingStatusCompleted || to == BookingStatusCancelled || to == BookingStatusExpired
	}
	return false
}

// Gender of a passenger
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// ParseGender upper-cases and checks the value
func ParseGender(s string) (Gender, bool) {
	g := Gender(strings.ToUpper(strings.TrimSpace(s)))
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return g, true
	}
	return g, false
}

// Booking is a reservation of one or more seats on a trip
type Booking struct {
	ID                 ID            `json:"id"`
	BookingCode        string        `json:"bookingCode,omitempty"`
	User               *User         `json:"user,omitempty"`
	Trip               *Trip         `json:"trip,omitempty"`
	BookingDate        *Timestamp    `json:"bookingDate,omitempty"`
	Status             BookingStatus `json:"status,omitempty"`
	TotalAmount        float64       `json:"totalAmount"`
	PassengerCount     int           `json:"passengerCount"`
	BookingSeats       []BookingSeat `json:"bookingSeats,omitempty"`
	ContactPhone       string        `json:"contactPhone,omitempty"`
	ContactEmail       string        `json:"contactEmail,omitempty"`
	SpecialRequests    string        `json:"specialRequests,omitempty"`
	CancellationReason string        `json:"cancellationReason,omitempty"`
	RefundAmount       *float64      `json:"refundAmount,omitempty"`
	CreatedAt          *Timestamp    `json:"createdAt,omitempty"`
}

// OwnerID returns the id of the booking's user, empty when absent
func (b *Booking) OwnerID() ID {
	if b == nil || b.User == nil {
		return ""
	}
	return b.User.ID
}

// SeatNumbers lists the reserved seat numbers
func (b *Booking) SeatNumbers() []int {
	numbers := make([]int, 0, len(b.BookingSeats))
	for _, bs := range b.BookingSeats {
		if bs.Seat != nil {
			numbers = append(numbers, bs.Seat.SeatNumber)
		}
	}
	return numbers
}

// BookingSeat links a seat to the passenger travelling in it
type BookingSeat struct {
	ID              ID      `json:"id,omitempty"`
	Seat            *Seat   `json:"seat,omitempty"`
	PassengerName   string  `json:"passengerName,omitempty"`
	PassengerAge    int     `json:"passengerAge,omitempty"`
	PassengerGender Gender  `json:"passengerGender,omitempty"`
	SeatFare        float64 `json:"seatFare,omitempty"`
}

// Passenger is one traveller in a hold request
type Passenger struct {
	Name       string `json:"name" validate:"required"`
	Age        int    `json:"age" validate:"required,gte=1"`
	Gender     Gender `json:"gender" validate:"required,oneof=MALE FEMALE OTHER"`
	SeatNumber int    `json:"seatNumber" validate:"gt=0"`
}

// HoldRequest is the body of POST /bookings/hold. The amount and passenger
// fields are sent twice because backend versions read different names.
type HoldRequest struct {
	UserID           ID          `json:"userId,omitempty"`
	TripID           ID          `json:"tripId"`
	SeatNumbers      []int       `json:"seatNumbers"`
	TotalAmount      float64     `json:"totalAmount"`
	Amount           float64     `json:"amount"`
	FarePerSeat      float64     `json:"farePerSeat"`
	SpecialRequests  string      `json:"specialRequests,omitempty"`
	PassengerCount   int         `json:"passengerCount"`
	Passengers       []Passenger `json:"passengers"`
	PassengerDetails []Passenger `json:"passengerDetails"`
	ContactPhone     string      `json:"contactPhone,omitempty"`
	ContactEmail     string      `json:"contactEmail,omitempty"`
}

// CancelRequest is the body of POST /bookings/{id}/cancel
type CancelRequest struct {
	Reason string `json:"reason"`
}

// DefaultCancelReason is sent when the user gives none
const DefaultCancelReason = "Cancelled by user"
