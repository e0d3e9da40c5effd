package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/gateway"
	"github.com/smarttransit/busticket-client/internal/models"
)

// TripService searches trips for travellers
type TripService struct {
	api    *gateway.API
	logger *logrus.Logger
}

// NewTripService creates a new TripService
func NewTripService(api *gateway.API, logger *logrus.Logger) *TripService {
	return &TripService{api: api, logger: logger}
}

// Search finds trips between two places on a date (YYYY-MM-DD)
func (s *TripService) Search(ctx context.Context, req models.TripSearchRequest) ([]models.Trip, error) {
	req.Source = strings.TrimSpace(req.Source)
	req.Destination = strings.TrimSpace(req.Destination)
	req.TravelDate = strings.TrimSpace(req.TravelDate)

	switch {
	case req.Source == "":
		return nil, newValidationError("source", "Source is required")
	case req.Destination == "":
		return nil, newValidationError("destination", "Destination is required")
	case req.TravelDate == "":
		return nil, newValidationError("travelDate", "Travel date is required")
	}
	if _, err := time.Parse("2006-01-02", req.TravelDate); err != nil {
		return nil, newValidationError("travelDate", "Travel date must be YYYY-MM-DD")
	}
	if req.Passengers <= 0 {
		req.Passengers = 1
	}

	trips, err := s.api.Trips.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"source":      req.Source,
		"destination": req.Destination,
		"date":        req.TravelDate,
		"results":     len(trips),
	}).Debug("Trip search")

	return trips, nil
}

// Get returns one trip
func (s *TripService) Get(ctx context.Context, id models.ID) (*models.Trip, error) {
	return s.api.Trips.Get(ctx, id)
}
