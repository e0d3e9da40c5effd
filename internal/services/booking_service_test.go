package services

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/busticket-client/internal/gateway"
	"github.com/smarttransit/busticket-client/internal/models"
	"github.com/smarttransit/busticket-client/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoPassengers() []models.Passenger {
	return []models.Passenger{
		{Name: "Nimal", Age: 30, Gender: "male"},
		{Name: "Kamala", Age: 28, Gender: "FEMALE"},
	}
}

func TestSubmit_HoldsSeatsWithRequestFare(t *testing.T) {
	var hold map[string]interface{}

	api, vault := setupServiceTest(t, func(r *gin.RouterGroup) {
		r.POST("/bookings/hold", func(c *gin.Context) {
			require.NoError(t, c.ShouldBindJSON(&hold))
			c.JSON(http.StatusCreated, gin.H{"booking": gin.H{"id": 99, "status": "PENDING"}})
		})
	})

	svc := NewBookingService(api, vault, validator.New("94"), testLogger())
	result, err := svc.Submit(authedContext(), testUser(), SubmitRequest{
		TripID:       "10",
		Trip:         &models.Trip{ID: "10", Fare: 450.5},
		SeatNumbers:  []int{3, 4},
		Passengers:   twoPassengers(),
		ContactPhone: "+94 77 123 4567",
		ContactEmail: "nimal@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ID("99"), result.BookingID)
	assert.Equal(t, 901.0, result.TotalAmount)
	assert.Equal(t, 450.5, result.FarePerSeat)
	assert.Equal(t, []int{3, 4}, result.Booking.SeatNumbers())
	assert.Equal(t, 2, result.Booking.PassengerCount)

	// both amount fields and both passenger lists carry the same values
	assert.Equal(t, 901.0, hold["totalAmount"])
	assert.Equal(t, 901.0, hold["amount"])
	assert.Equal(t, "0771234567", hold["contactPhone"])
	passengers := hold["passengers"].([]interface{})
	require.Len(t, passengers, 2)
	assert.Equal(t, hold["passengers"], hold["passengerDetails"])
	first := passengers[0].(map[string]interface{})
	assert.Equal(t, "MALE", first["gender"])
	assert.Equal(t, 3.0, first["seatNumber"])

	recent, err := vault.LoadRecentBooking(context.Background())
	require.NoError(t, err)
	require.NotNil(t, recent)
	assert.Equal(t, models.ID("99"), recent.BookingID)
	assert.Equal(t, models.ID("7"), recent.UserID)
}

func TestSubmit_AcceptsAnyNonEmptyNameAndPositiveAge(t *testing.T) {
	api, vault := setupServiceTest(t, func(r *gin.RouterGroup) {
		r.POST("/bookings/hold", func(c *gin.Context) {
			c.JSON(http.StatusCreated, gin.H{"id": 12})
		})
	})

	svc := NewBookingService(api, vault, validator.New("94"), testLogger())
	result, err := svc.Submit(authedContext(), testUser(), SubmitRequest{
		TripID:      "10",
		Trip:        &models.Trip{ID: "10", Fare: 100},
		SeatNumbers: []int{1},
		Passengers:  []models.Passenger{{Name: "A", Age: 130, Gender: "other"}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ID("12"), result.BookingID)
}

func TestSubmitRequest_DecodesTripAliases(t *testing.T) {
	tests := []struct {
		name string
		body string
		fare float64
		trip bool
	}{
		{"price", `{"tripId": 10, "trip": {"id": 10, "price": 300}}`, 300, true},
		{"amountPerSeat string", `{"tripId": 10, "trip": {"id": 10, "amountPerSeat": "99.5"}}`, 99.5, true},
		{"no trip", `{"tripId": 10}`, 0, false},
		{"null trip", `{"tripId": 10, "trip": null}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req SubmitRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, models.ID("10"), req.TripID)
			if !tt.trip {
				assert.Nil(t, req.Trip)
				return
			}
			require.NotNil(t, req.Trip)
			assert.InDelta(t, tt.fare, req.Trip.Fare, 0.0001)
		})
	}
}

func TestSubmit_FareFromTripResource(t *testing.T) {
	api, vault := setupServiceTest(t, func(r *gin.RouterGroup) {
		r.GET("/trips/:id", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"id": 10, "price": "300"})
		})
		r.POST("/bookings/hold", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"bookingId": 5})
		})
	})

	svc := NewBookingService(api, vault, validator.New("94"), testLogger())
	result, err := svc.Submit(authedContext(), testUser(), SubmitRequest{
		TripID:      "10",
		SeatNumbers: []int{1},
		Passengers:  twoPassengers()[:1],
	})
	require.NoError(t, err)

	assert.Equal(t, models.ID("5"), result.BookingID)
	assert.Equal(t, 300.0, result.TotalAmount)
	assert.Equal(t, models.BookingStatusPending, result.Booking.Status)
}

func TestSubmit_FareUnavailable(t *testing.T) {
	var holds int32
	api, vault := setupServiceTest(t, func(r *gin.RouterGroup) {
		r.GET("/trips/:id", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"id": 10, "fare": 0})
		})
		r.POST("/bookings/hold", func(c *gin.Context) {
			atomic.AddInt32(&holds, 1)
		})
	})

	svc := NewBookingService(api, vault, validator.New("94"), testLogger())
	_, err := svc.Submit(authedContext(), testUser(), SubmitRequest{
		TripID:      "10",
		Trip:        &models.Trip{ID: "10"},
		SeatNumbers: []int{1},
		Passengers:  twoPassengers()[:1],
	})

	var fareErr *FareUnavailableError
	require.ErrorAs(t, err, &fareErr)
	assert.Equal(t, models.ID("10"), fareErr.TripID)
	assert.Zero(t, atomic.LoadInt32(&holds))
}

func TestSubmit_ValidationBeforeNetwork(t *testing.T) {
	var calls int32
	api, vault := setupServiceTest(t, func(r *gin.RouterGroup) {
		r.Any("/*path", func(c *gin.Context) {
			atomic.AddInt32(&calls, 1)
			c.Status(http.StatusInternalServerError)
		})
	})
	svc := NewBookingService(api, vault, validator.New("94"), testLogger())

	base := func() SubmitRequest {
		return SubmitRequest{
			TripID:      "10",
			Trip:        &models.Trip{ID: "10", Fare: 100},
			SeatNumbers: []int{1, 2},
			Passengers:  twoPassengers(),
		}
	}

	tests := []struct {
		name   string
		mutate func(r *SubmitRequest)
		field  string
	}{
		{"no seats", func(r *SubmitRequest) { r.SeatNumbers = nil; r.Passengers = nil }, "seatNumbers"},
		{"passenger count mismatch", func(r *SubmitRequest) { r.Passengers = r.Passengers[:1] }, "passengers"},
		{"missing name", func(r *SubmitRequest) { r.Passengers[1].Name = "  " }, "passengers"},
		{"missing age", func(r *SubmitRequest) { r.Passengers[0].Age = 0 }, "passengers"},
		{"missing gender", func(r *SubmitRequest) { r.Passengers[0].Gender = "" }, "passengers"},
		{"bad email", func(r *SubmitRequest) { r.ContactEmail = "not-an-email" }, "contactEmail"},
		{"bad phone", func(r *SubmitRequest) { r.ContactPhone = "12345" }, "contactPhone"},
		{"duplicate seat", func(r *SubmitRequest) { r.SeatNumbers = []int{2, 2} }, "seatNumbers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(&req)

			_, err := svc.Submit(authedContext(), testUser(), req)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.NotEmpty(t, verr.Message)
		})
	}

	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestSubmit_HoldFailureMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    interface{}
		message string
	}{
		{"validation list", http.StatusBadRequest, gin.H{"errors": []gin.H{{"message": "Seat 3 is already held"}, {"message": "other"}}}, "Seat 3 is already held"},
		{"field object", http.StatusBadRequest, gin.H{"errors": gin.H{"seatNumbers": "must not be empty"}}, "must not be empty"},
		{"top-level message", http.StatusConflict, gin.H{"message": "Seats no longer available"}, "Seats no longer available"},
		{"empty body", http.StatusInternalServerError, nil, defaultBookingMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, vault := setupServiceTest(t, func(r *gin.RouterGroup) {
				r.POST("/bookings/hold", func(c *gin.Context) {
					if tt.body == nil {
						c.Status(tt.status)
						return
					}
					c.JSON(tt.status, tt.body)
				})
			})

			svc := NewBookingService(api, vault, validator.New("94"), testLogger())
			_, err := svc.Submit(authedContext(), testUser(), SubmitRequest{
				TripID:      "10",
				Trip:        &models.Trip{ID: "10", Fare: 100},
				SeatNumbers: []int{3},
				Passengers:  twoPassengers()[:1],
			})

			var bookingErr *BookingError
			require.ErrorAs(t, err, &bookingErr)
			assert.Contains(t, bookingErr.Message, tt.message)

			recent, err := vault.LoadRecentBooking(context.Background())
			require.NoError(t, err)
			assert.Nil(t, recent)
		})
	}
}

func TestSubmit_SessionExpiredPropagates(t *testing.T) {
	api, vault := setupServiceTest(t, func(r *gin.RouterGroup) {
		r.POST("/bookings/hold", func(c *gin.Context) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "expired"})
		})
	})

	svc := NewBookingService(api, vault, validator.New("94"), testLogger())
	_, err := svc.Submit(authedContext(), testUser(), SubmitRequest{
		TripID:      "10",
		Trip:        &models.Trip{ID: "10", Fare: 100},
		SeatNumbers: []int{3},
		Passengers:  twoPassengers()[:1],
	})

	assert.ErrorIs(t, err, gateway.ErrSessionExpired)
}
