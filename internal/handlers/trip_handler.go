package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/models"
	"github.com/smarttransit/busticket-client/internal/services"
)

// TripHandler serves trip search and seat maps
type TripHandler struct {
	trips  *services.TripService
	seats  *services.SeatService
	logger *logrus.Logger
}

// NewTripHandler creates a new trip handler
func NewTripHandler(trips *services.TripService, seats *services.SeatService, logger *logrus.Logger) *TripHandler {
	return &TripHandler{
		trips:  trips,
		seats:  seats,
		logger: logger,
	}
}

// Search handles POST /api/v1/trips/search
func (h *TripHandler) Search(c *gin.Context) {
	var req models.TripSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Source, destination and travel date are required")
		return
	}

	trips, err := h.trips.Search(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trips": trips,
		"count": len(trips),
	})
}

// Get handles GET /api/v1/trips/:tripId
func (h *TripHandler) Get(c *gin.Context) {
	trip, err := h.trips.Get(c.Request.Context(), models.ID(c.Param("tripId")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, trip)
}

// Seats handles GET /api/v1/trips/:tripId/seats
func (h *TripHandler) Seats(c *gin.Context) {
	seatMap, err := h.seats.LoadSeats(c.Request.Context(), models.ID(c.Param("tripId")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, seatMap)
}
