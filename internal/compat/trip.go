package compat

import (
	"encoding/json"
	"fmt"

	"github.com/smarttransit/busticket-client/internal/models"
)

// tripWire shadows the fields whose type varies between backend versions
type tripWire struct {
	models.Trip
	Fare           json.RawMessage `json:"fare"`
	Bus            json.RawMessage `json:"bus"`
	AvailableSeats json.RawMessage `json:"availableSeats"`
}

type busWire struct {
	models.Bus
	TotalSeats json.RawMessage `json:"totalSeats"`
}

type seatWire struct {
	models.Seat
	SeatNumber json.RawMessage `json:"seatNumber"`
}

// DecodeTrip reads a trip object, resolving fare and capacity aliases
func DecodeTrip(data []byte) (*models.Trip, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("decode trip: %w", err)
	}
	return tripFromObject(obj)
}

func tripFromObject(obj map[string]interface{}) (*models.Trip, error) {
	var wire tripWire
	if err := json.Unmarshal(remarshal(obj), &wire); err != nil {
		return nil, fmt.Errorf("decode trip: %w", err)
	}

	trip := wire.Trip
	if fare, _, ok := TripFare.PositiveNumber(obj); ok {
		trip.Fare = fare
	}
	if n, ok := positiveNumber(obj["availableSeats"]); ok {
		trip.AvailableSeats = int(n)
	}

	if busObj, ok := obj["bus"].(map[string]interface{}); ok {
		bus, err := busFromObject(busObj)
		if err != nil {
			return nil, err
		}
		trip.Bus = bus
	}

	// Some backends put the capacity on the trip itself
	if trip.Capacity() == 0 {
		if capacity, _, ok := BusCapacity.SeatCount(obj); ok {
			if trip.Bus == nil {
				trip.Bus = &models.Bus{}
			}
			trip.Bus.TotalSeats = capacity
		}
	}

	return &trip, nil
}

// DecodeBus reads a bus object, resolving capacity aliases
func DecodeBus(data []byte) (*models.Bus, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("decode bus: %w", err)
	}
	return busFromObject(obj)
}

func busFromObject(obj map[string]interface{}) (*models.Bus, error) {
	var wire busWire
	if err := json.Unmarshal(remarshal(obj), &wire); err != nil {
		return nil, fmt.Errorf("decode bus: %w", err)
	}
	bus := wire.Bus
	if capacity, _, ok := BusCapacity.SeatCount(obj); ok {
		bus.TotalSeats = capacity
	}
	return &bus, nil
}

// FareOf resolves the per-seat fare of a raw trip object
func FareOf(data []byte) (float64, bool) {
	obj, err := decodeObject(data)
	if err != nil {
		return 0, false
	}
	fare, _, ok := TripFare.PositiveNumber(obj)
	return fare, ok
}

// SeatMapPayload is the decoded response of GET /trips/{id}/seats
type SeatMapPayload struct {
	Seats []models.Seat
	Trip  *models.Trip
}

// DecodeSeatMap accepts {seats, trip}, a trip object carrying seats, or a bare seat array
func DecodeSeatMap(data []byte) (*SeatMapPayload, error) {
	v, err := decodeValue(data)
	if err != nil {
		return nil, fmt.Errorf("decode seat map: %w", err)
	}

	payload := &SeatMapPayload{}
	var rawSeats []interface{}

	switch body := v.(type) {
	case []interface{}:
		rawSeats = body
	case map[string]interface{}:
		rawSeats, _ = body["seats"].([]interface{})
		tripObj, ok := body["trip"].(map[string]interface{})
		if !ok {
			tripObj = body
		}
		trip, err := tripFromObject(tripObj)
		if err != nil {
			return nil, err
		}
		payload.Trip = trip
	case nil:
	default:
		return nil, fmt.Errorf("decode seat map: unexpected payload")
	}

	for _, raw := range rawSeats {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		seat, err := seatFromObject(obj)
		if err != nil {
			return nil, err
		}
		payload.Seats = append(payload.Seats, *seat)
	}

	return payload, nil
}

func seatFromObject(obj map[string]interface{}) (*models.Seat, error) {
	var wire seatWire
	if err := json.Unmarshal(remarshal(obj), &wire); err != nil {
		return nil, fmt.Errorf("decode seat: %w", err)
	}
	seat := wire.Seat
	if n, ok := positiveNumber(obj["seatNumber"]); ok {
		seat.SeatNumber = int(n)
	}
	return &seat, nil
}

// DecodeTrips reads a trip list in any supported envelope
func DecodeTrips(data []byte) ([]models.Trip, error) {
	items, err := DecodeList(data)
	if err != nil {
		return nil, err
	}
	trips := make([]models.Trip, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		trip, err := tripFromObject(obj)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *trip)
	}
	return trips, nil
}

// DecodeBuses reads a bus list in any supported envelope
func DecodeBuses(data []byte) ([]models.Bus, error) {
	items, err := DecodeList(data)
	if err != nil {
		return nil, err
	}
	buses := make([]models.Bus, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		bus, err := busFromObject(obj)
		if err != nil {
			return nil, err
		}
		buses = append(buses, *bus)
	}
	return buses, nil
}
