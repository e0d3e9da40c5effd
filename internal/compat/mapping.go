// Package compat translates the shapes emitted by different backend versions
// into the canonical client models. Every alias the client tolerates is a
// named FieldMapping so the list of legacy contracts lives in one place.
package compat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldMapping is an ordered list of field names carrying the same value
type FieldMapping struct {
	Name   string
	Fields []string
}

var (
	// TripFare is the per-seat fare of a trip
	TripFare = FieldMapping{
		Name:   "trip-fare",
		Fields: []string{"fare", "price", "farePerSeat", "amountPerSeat"},
	}

	// BusCapacity is the seat count of a bus
	BusCapacity = FieldMapping{
		Name: "bus-capacity",
		Fields: []string{
			"totalSeats", "seatCount", "capacity", "noOfSeats", "noOfSeat", "numberOfSeats",
			"seatsCount", "totalSeatCount", "seatCapacity", "busCapacity", "total_seats",
		},
	}

	// BookingAmount is the total of a booking
	BookingAmount = FieldMapping{
		Name:   "booking-amount",
		Fields: []string{"totalAmount", "amount"},
	}

	// BookingIdentifier is where a hold response puts the new booking id
	BookingIdentifier = FieldMapping{
		Name:   "booking-id",
		Fields: []string{"id", "bookingId"},
	}

	// HoldEnvelopeID is the booking id placed beside a nested booking
	HoldEnvelopeID = FieldMapping{
		Name:   "hold-envelope-id",
		Fields: []string{"bookingId", "id"},
	}

	// BookingSeatList is where a booking lists its seats
	BookingSeatList = FieldMapping{
		Name:   "booking-seats",
		Fields: []string{"bookingSeats", "seats"},
	}

	// ListEnvelope is where paged or wrapped list responses keep their items
	ListEnvelope = FieldMapping{
		Name:   "list-envelope",
		Fields: []string{"content", "data", "items"},
	}
)

// PositiveNumber returns the first finite positive numeric value in obj
func (m FieldMapping) PositiveNumber(obj map[string]interface{}) (float64, string, bool) {
	for _, field := range m.Fields {
		if v, ok := positiveNumber(obj[field]); ok {
			return v, field, true
		}
	}
	return 0, "", false
}

// MaxSeatCapacity is the largest seat count accepted from a capacity field
const MaxSeatCapacity = 1000

// SeatCount returns the first whole, positive value in obj no larger than
// MaxSeatCapacity. Out-of-range values are skipped like missing ones.
func (m FieldMapping) SeatCount(obj map[string]interface{}) (int, string, bool) {
	for _, field := range m.Fields {
		v, ok := positiveNumber(obj[field])
		if !ok || v > MaxSeatCapacity || v != math.Trunc(v) {
			continue
		}
		return int(v), field, true
	}
	return 0, "", false
}

// Array returns the first JSON array found under the mapping's fields
func (m FieldMapping) Array(obj map[string]interface{}) ([]interface{}, string, bool) {
	for _, field := range m.Fields {
		if arr, ok := obj[field].([]interface{}); ok {
			return arr, field, true
		}
	}
	return nil, "", false
}

// Identifier returns the first non-empty scalar under the mapping's fields
func (m FieldMapping) Identifier(obj map[string]interface{}) (string, string, bool) {
	for _, field := range m.Fields {
		if s, ok := scalarString(obj[field]); ok {
			return s, field, true
		}
	}
	return "", "", false
}

func positiveNumber(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}

func scalarString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		s = strings.TrimSpace(s)
		return s, s != ""
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	}
	return "", false
}

// decodeValue parses JSON keeping numbers as json.Number
func decodeValue(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}
	return v, nil
}

func decodeObject(data []byte) (map[string]interface{}, error) {
	v, err := decodeValue(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected JSON object")
	}
	return obj, nil
}

// remarshal converts a decoded value back into JSON for typed decoding
func remarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// DecodeListInto decodes the items of a bare or enveloped list into out,
// which must be a pointer to a slice
func DecodeListInto(data []byte, out interface{}) error {
	items, err := DecodeList(data)
	if err != nil {
		return err
	}
	if items == nil {
		items = []interface{}{}
	}
	if err := json.Unmarshal(remarshal(items), out); err != nil {
		return fmt.Errorf("decode list: %w", err)
	}
	return nil
}
