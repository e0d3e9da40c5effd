package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/compat"
	"github.com/smarttransit/busticket-client/internal/gateway"
	"github.com/smarttransit/busticket-client/internal/models"
	"github.com/smarttransit/busticket-client/internal/state"
	"github.com/smarttransit/busticket-client/pkg/validator"
)

// SubmitRequest is a booking as entered by the user
type SubmitRequest struct {
	TripID          models.ID          `json:"tripId"`
	Trip            *models.Trip       `json:"trip,omitempty"`
	SeatNumbers     []int              `json:"seatNumbers"`
	Passengers      []models.Passenger `json:"passengers"`
	ContactPhone    string             `json:"contactPhone" validate:"omitempty,phone"`
	ContactEmail    string             `json:"contactEmail" validate:"omitempty,email"`
	SpecialRequests string             `json:"specialRequests,omitempty" validate:"max=500"`
}

// UnmarshalJSON reads the trip through the compat adapter so fare aliases
// sent by the caller are honored
func (r *SubmitRequest) UnmarshalJSON(data []byte) error {
	type plain SubmitRequest
	var wire struct {
		plain
		Trip json.RawMessage `json:"trip"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*r = SubmitRequest(wire.plain)
	r.Trip = nil
	if raw := bytes.TrimSpace(wire.Trip); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		trip, err := compat.DecodeTrip(raw)
		if err != nil {
			return err
		}
		r.Trip = trip
	}
	return nil
}

// HoldResult is a successful hold awaiting payment
type HoldResult struct {
	BookingID   models.ID       `json:"bookingId"`
	Booking     *models.Booking `json:"booking"`
	TotalAmount float64         `json:"totalAmount"`
	FarePerSeat float64         `json:"farePerSeat"`
}

// BookingService submits seat holds
type BookingService struct {
	api       *gateway.API
	vault     *state.Vault
	validator *validator.Validator
	logger    *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(api *gateway.API, vault *state.Vault, v *validator.Validator, logger *logrus.Logger) *BookingService {
	return &BookingService{
		api:       api,
		vault:     vault,
		validator: v,
		logger:    logger,
	}
}

// Submit validates the request, prices it and holds the seats for user.
// Validation failures never reach the backend.
func (s *BookingService) Submit(ctx context.Context, user *models.User, req SubmitRequest) (*HoldResult, error) {
	// 1. Validate
	passengers, err := s.validate(&req)
	if err != nil {
		return nil, err
	}

	// 2. Resolve the fare per seat
	fare, trip, err := s.resolveFare(ctx, req)
	if err != nil {
		return nil, err
	}

	// 3. Price and submit
	total := roundAmount(fare * float64(len(req.SeatNumbers)))
	hold := models.HoldRequest{
		TripID:      req.TripID,
		SeatNumbers: req.SeatNumbers,
		// amount and totalAmount carry the same value; backend versions read one or the other
		TotalAmount:     total,
		Amount:          total,
		FarePerSeat:     fare,
		SpecialRequests: req.SpecialRequests,
		PassengerCount:  len(passengers),
		// likewise passengers and passengerDetails
		Passengers:       passengers,
		PassengerDetails: passengers,
		ContactPhone:     req.ContactPhone,
		ContactEmail:     req.ContactEmail,
	}
	if user != nil {
		hold.UserID = user.ID
	}

	raw, err := s.api.Bookings.Hold(ctx, hold)
	if err != nil {
		if isSessionExpired(err) {
			return nil, err
		}
		s.logger.WithError(err).WithField("trip_id", req.TripID).Warn("Seat hold failed")
		return nil, &BookingError{Message: gateway.UserMessage(err, defaultBookingMessage), Err: err}
	}

	// 4. Normalize and cache
	booking, err := compat.DecodeHoldResponse(raw, compat.HoldDefaults{
		SeatNumbers: req.SeatNumbers,
		TotalAmount: total,
		Trip:        trip,
		User:        user,
	})
	if err != nil {
		s.logger.WithError(err).Error("Hold response could not be read")
		return nil, &BookingError{Message: defaultBookingMessage, Err: err}
	}

	recent := state.RecentBooking{Booking: booking}
	if user != nil {
		recent.UserID = user.ID
	}
	if err := s.vault.SaveRecentBooking(ctx, recent); err != nil {
		s.logger.WithError(err).Warn("Failed to cache recent booking")
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"trip_id":    req.TripID,
		"seats":      len(req.SeatNumbers),
		"total":      total,
	}).Info("Seats held")

	return &HoldResult{
		BookingID:   booking.ID,
		Booking:     booking,
		TotalAmount: booking.TotalAmount,
		FarePerSeat: fare,
	}, nil
}

// validate checks seats, passengers and contact details and returns the
// passengers paired with their seats
func (s *BookingService) validate(req *SubmitRequest) ([]models.Passenger, error) {
	if req.TripID.IsZero() {
		return nil, newValidationError("tripId", "Trip is required")
	}
	if len(req.SeatNumbers) == 0 {
		return nil, newValidationError("seatNumbers", "Please select at least one seat")
	}
	seen := make(map[int]bool, len(req.SeatNumbers))
	for _, n := range req.SeatNumbers {
		if n <= 0 || seen[n] {
			return nil, newValidationError("seatNumbers", "Seat %d is not a valid selection", n)
		}
		seen[n] = true
	}
	if len(req.Passengers) != len(req.SeatNumbers) {
		return nil, newValidationError("passengers",
			"Please provide details for %d passenger(s); %d given", len(req.SeatNumbers), len(req.Passengers))
	}

	passengers := make([]models.Passenger, len(req.Passengers))
	for i, p := range req.Passengers {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, newValidationError("passengers", "Passenger %d: name is required", i+1)
		}
		if p.Age <= 0 {
			return nil, newValidationError("passengers", "Passenger %d: age must be a positive number", i+1)
		}
		gender, ok := models.ParseGender(string(p.Gender))
		if !ok {
			return nil, newValidationError("passengers", "Passenger %d: gender is required", i+1)
		}
		p.Gender = gender
		p.SeatNumber = req.SeatNumbers[i]
		if err := s.validator.Struct(p); err != nil {
			verr := asValidationError(err)
			verr.Message = fmt.Sprintf("Passenger %d: %s", i+1, verr.Message)
			return nil, verr
		}
		passengers[i] = p
	}

	req.ContactEmail = strings.TrimSpace(req.ContactEmail)
	if err := s.validator.Struct(req); err != nil {
		return nil, asValidationError(err)
	}
	if req.ContactPhone != "" {
		phone, err := s.validator.Phone().Validate(req.ContactPhone)
		if err != nil {
			return nil, newValidationError("contactPhone", "%s", err.Error())
		}
		req.ContactPhone = phone
	}

	return passengers, nil
}

// resolveFare reads the fare from the trip on the request, then from the trip resource
func (s *BookingService) resolveFare(ctx context.Context, req SubmitRequest) (float64, *models.Trip, error) {
	if req.Trip != nil && validFare(req.Trip.Fare) {
		return req.Trip.Fare, req.Trip, nil
	}

	trip, err := s.api.Trips.Get(ctx, req.TripID)
	if err != nil {
		if isSessionExpired(err) {
			return 0, nil, err
		}
		s.logger.WithError(err).WithField("trip_id", req.TripID).Warn("Trip lookup for fare failed")
		return 0, nil, &FareUnavailableError{TripID: req.TripID, Err: err}
	}
	if !validFare(trip.Fare) {
		return 0, nil, &FareUnavailableError{TripID: req.TripID}
	}
	return trip.Fare, trip, nil
}

func validFare(fare float64) bool {
	return fare > 0 && !math.IsInf(fare, 0) && !math.IsNaN(fare)
}

func roundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}

func asValidationError(err error) *ValidationError {
	var fe validator.FieldError
	if errors.As(err, &fe) {
		return &ValidationError{Field: fe.Field, Message: fe.Message}
	}
	return &ValidationError{Message: err.Error()}
}
