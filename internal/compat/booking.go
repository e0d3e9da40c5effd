package compat

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smarttransit/busticket-client/internal/models"
)

// ErrMissingBookingID is returned when a hold response carries no booking id
var ErrMissingBookingID = errors.New("booking response has no booking id")

type bookingWire struct {
	models.Booking
	TotalAmount    json.RawMessage `json:"totalAmount"`
	PassengerCount json.RawMessage `json:"passengerCount"`
	BookingSeats   json.RawMessage `json:"bookingSeats"`
	Trip           json.RawMessage `json:"trip"`
}

// HoldDefaults supplies values the hold response may omit
type HoldDefaults struct {
	SeatNumbers []int
	TotalAmount float64
	Trip        *models.Trip
	User        *models.User
}

// DecodeBooking reads a booking object in any supported shape
func DecodeBooking(data []byte) (*models.Booking, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("decode booking: %w", err)
	}
	return bookingFromObject(obj)
}

func bookingFromObject(obj map[string]interface{}) (*models.Booking, error) {
	var wire bookingWire
	if err := json.Unmarshal(remarshal(obj), &wire); err != nil {
		return nil, fmt.Errorf("decode booking: %w", err)
	}

	booking := wire.Booking
	if amount, _, ok := BookingAmount.PositiveNumber(obj); ok {
		booking.TotalAmount = amount
	}
	if n, ok := positiveNumber(obj["passengerCount"]); ok {
		booking.PassengerCount = int(n)
	}
	if tripObj, ok := obj["trip"].(map[string]interface{}); ok {
		trip, err := tripFromObject(tripObj)
		if err != nil {
			return nil, err
		}
		booking.Trip = trip
	}
	if seats, _, ok := BookingSeatList.Array(obj); ok && len(seats) > 0 {
		booking.BookingSeats = bookingSeatsFrom(seats)
	}
	booking.Status = booking.Status.Normalize()

	return &booking, nil
}

// bookingSeatsFrom accepts booking-seat objects, bare seat objects and seat numbers
func bookingSeatsFrom(items []interface{}) []models.BookingSeat {
	result := make([]models.BookingSeat, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case map[string]interface{}:
			if seatObj, ok := v["seat"].(map[string]interface{}); ok {
				var bs models.BookingSeat
				copyObj := make(map[string]interface{}, len(v))
				for k, val := range v {
					if k != "seat" {
						copyObj[k] = val
					}
				}
				if err := json.Unmarshal(remarshal(copyObj), &bs); err != nil {
					continue
				}
				if seat, err := seatFromObject(seatObj); err == nil {
					bs.Seat = seat
				}
				result = append(result, bs)
				continue
			}
			if seat, err := seatFromObject(v); err == nil {
				result = append(result, models.BookingSeat{Seat: seat})
			}
		default:
			if n, ok := positiveNumber(v); ok {
				result = append(result, models.BookingSeat{Seat: &models.Seat{SeatNumber: int(n)}})
			}
		}
	}
	return result
}

// DecodeHoldResponse normalizes the response of POST /bookings/hold. The
// booking may be nested under "booking" or returned flat; its id may sit on
// the booking or beside it as bookingId or id.
func DecodeHoldResponse(data []byte, defaults HoldDefaults) (*models.Booking, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("decode hold response: %w", err)
	}

	bookingObj, nested := obj["booking"].(map[string]interface{})
	if !nested {
		bookingObj = obj
	}

	booking, err := bookingFromObject(bookingObj)
	if err != nil {
		return nil, err
	}

	if booking.ID.IsZero() {
		if id, _, ok := BookingIdentifier.Identifier(bookingObj); ok {
			booking.ID = models.ID(id)
		} else if id, _, ok := HoldEnvelopeID.Identifier(obj); ok {
			booking.ID = models.ID(id)
		}
	}
	if booking.ID.IsZero() {
		return nil, ErrMissingBookingID
	}

	if booking.TotalAmount <= 0 {
		booking.TotalAmount = round2(defaults.TotalAmount)
	}
	if booking.PassengerCount <= 0 {
		booking.PassengerCount = len(defaults.SeatNumbers)
	}
	if len(booking.BookingSeats) == 0 {
		booking.BookingSeats = SyntheticBookingSeats(defaults.SeatNumbers)
	}
	if booking.Trip == nil {
		booking.Trip = defaults.Trip
	}
	if booking.User == nil {
		booking.User = defaults.User
	}
	if booking.Status == "" {
		booking.Status = models.BookingStatusPending
	}

	return booking, nil
}

// SyntheticBookingSeats builds booking seats from the selected seat numbers
func SyntheticBookingSeats(numbers []int) []models.BookingSeat {
	seats := make([]models.BookingSeat, 0, len(numbers))
	for _, n := range numbers {
		seats = append(seats, models.BookingSeat{Seat: &models.Seat{SeatNumber: n}})
	}
	return seats
}

// DecodeBookings reads a booking list in any supported envelope
func DecodeBookings(data []byte) ([]models.Booking, error) {
	items, err := DecodeList(data)
	if err != nil {
		return nil, err
	}
	bookings := make([]models.Booking, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		booking, err := bookingFromObject(obj)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	return bookings, nil
}

// DecodeList returns the items of a bare array or an enveloped list. Any other
// JSON value yields an empty list.
func DecodeList(data []byte) ([]interface{}, error) {
	if len(data) == 0 {
		return nil, nil
	}
	v, err := decodeValue(data)
	if err != nil {
		return nil, err
	}
	switch body := v.(type) {
	case []interface{}:
		return body, nil
	case map[string]interface{}:
		if items, _, ok := ListEnvelope.Array(body); ok {
			return items, nil
		}
	}
	return nil, nil
}
