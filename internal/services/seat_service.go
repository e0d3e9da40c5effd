package services

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/compat"
	"github.com/smarttransit/busticket-client/internal/gateway"
	"github.com/smarttransit/busticket-client/internal/models"
)

// Where the capacity of a synthesized seat map came from
const (
	CapacityFromSeatsResponse = "seats-response"
	CapacityFromTrip          = "trip"
	CapacityFromDefault       = "default"
)

// SeatMap is the selectable view of a trip's seats
type SeatMap struct {
	Trip           *models.Trip  `json:"trip,omitempty"`
	Seats          []models.Seat `json:"seats"`
	Synthesized    bool          `json:"synthesized"`
	CapacitySource string        `json:"capacitySource,omitempty"`
}

// Numbers lists the seat numbers of the map
func (m *SeatMap) Numbers() []int {
	numbers := make([]int, len(m.Seats))
	for i, seat := range m.Seats {
		numbers[i] = seat.SeatNumber
	}
	return numbers
}

// SeatService builds the seat availability view
type SeatService struct {
	api             *gateway.API
	defaultCapacity int
	logger          *logrus.Logger
	now             func() time.Time
}

// NewSeatService creates a new SeatService
func NewSeatService(api *gateway.API, defaultCapacity int, logger *logrus.Logger) *SeatService {
	return &SeatService{
		api:             api,
		defaultCapacity: defaultCapacity,
		logger:          logger,
		now:             time.Now,
	}
}

// LoadSeats returns the seats of a trip that can be selected now. An explicit
// seat list is filtered; without one, 1..capacity available seats are synthesized.
func (s *SeatService) LoadSeats(ctx context.Context, tripID models.ID) (*SeatMap, error) {
	payload, err := s.api.Trips.Seats(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if len(payload.Seats) > 0 {
		now := s.now()
		seats := make([]models.Seat, 0, len(payload.Seats))
		for _, seat := range payload.Seats {
			if seat.Selectable(now) {
				seats = append(seats, seat)
			}
		}
		sort.SliceStable(seats, func(i, j int) bool {
			return seats[i].SeatNumber < seats[j].SeatNumber
		})
		return &SeatMap{Trip: payload.Trip, Seats: seats}, nil
	}

	trip := payload.Trip
	capacity, source := 0, ""
	if n := seatCapacity(trip); n > 0 {
		capacity, source = n, CapacityFromSeatsResponse
	}

	// Fall back to the trip resource
	if capacity == 0 {
		fetched, err := s.api.Trips.Get(ctx, tripID)
		switch {
		case err != nil:
			if isSessionExpired(err) {
				return nil, err
			}
			s.logger.WithError(err).WithField("trip_id", tripID).Warn("Trip lookup for seat capacity failed")
		case seatCapacity(fetched) > 0:
			capacity, source = seatCapacity(fetched), CapacityFromTrip
			trip = fetched
		default:
			if trip == nil {
				trip = fetched
			}
		}
	}

	if capacity == 0 {
		capacity, source = s.defaultCapacity, CapacityFromDefault
	}

	seats := make([]models.Seat, capacity)
	for i := range seats {
		seats[i] = models.VirtualSeat(i + 1)
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":  tripID,
		"capacity": capacity,
		"source":   source,
	}).Debug("Synthesized seat map")

	return &SeatMap{Trip: trip, Seats: seats, Synthesized: true, CapacitySource: source}, nil
}

// seatCapacity is the trip's seat count, zero when unknown or out of range
func seatCapacity(t *models.Trip) int {
	if n := t.Capacity(); n > 0 && n <= compat.MaxSeatCapacity {
		return n
	}
	return 0
}

// Select checks that every number is offered by the map, once
func (s *SeatService) Select(seatMap *SeatMap, numbers []int) error {
	if len(numbers) == 0 {
		return newValidationError("seatNumbers", "Please select at least one seat")
	}

	offered := make(map[int]bool, len(seatMap.Seats))
	for _, seat := range seatMap.Seats {
		offered[seat.SeatNumber] = true
	}

	seen := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		if seen[n] {
			return newValidationError("seatNumbers", "Seat %d is selected more than once", n)
		}
		seen[n] = true
		if !offered[n] {
			return newValidationError("seatNumbers", "Seat %d is not available", n)
		}
	}
	return nil
}
