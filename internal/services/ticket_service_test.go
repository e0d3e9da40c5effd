package services

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/busticket-client/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookingRoute(r *gin.RouterGroup) {
	r.GET("/bookings/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"id":          c.Param("id"),
			"bookingCode": "BK-" + c.Param("id"),
			"status":      "CONFIRMED",
			"totalAmount": 900,
			"trip": gin.H{
				"id":            10,
				"tripDate":      "2024-05-01",
				"departureTime": "08:30",
				"route":         gin.H{"source": "Colombo", "destination": "Kandy"},
				"bus":           gin.H{"busNumber": "NB-1234", "totalSeats": 40},
			},
			"bookingSeats": []gin.H{
				{"seat": gin.H{"seatNumber": 3}, "passengerName": "Nimal", "passengerAge": 30, "passengerGender": "MALE"},
			},
		})
	})
}

func TestGetForBooking_Existing(t *testing.T) {
	api, _ := setupServiceTest(t, func(r *gin.RouterGroup) {
		r.GET("/tickets/booking/:id", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"id": 5, "ticketNumber": "TKT-5", "booking": gin.H{"id": 99}})
		})
		bookingRoute(r)
	})

	view, err := NewTicketService(api, testLogger()).GetForBooking(authedContext(), "99")
	require.NoError(t, err)

	assert.Equal(t, "TKT-5", view.Ticket.TicketNumber)
	require.NotNil(t, view.Booking)
	assert.Equal(t, "BK-99", view.Booking.BookingCode)
}

func TestGetForBooking_GeneratesWhenMissing(t *testing.T) {
	generated := false
	api, _ := setupServiceTest(t, func(r *gin.RouterGroup) {
		r.GET("/tickets/booking/:id", func(c *gin.Context) {
			if !generated {
				c.JSON(http.StatusNotFound, gin.H{"message": "Ticket not found"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"id": 6, "ticketNumber": "TKT-6"})
		})
		r.POST("/tickets/generate/:id", func(c *gin.Context) {
			generated = true
			c.JSON(http.StatusCreated, gin.H{"id": 6})
		})
		r.GET("/bookings/:id", func(c *gin.Context) {
			c.JSON(http.StatusForbidden, gin.H{})
		})
	})

	view, err := NewTicketService(api, testLogger()).GetForBooking(authedContext(), "99")
	require.NoError(t, err)

	assert.True(t, generated)
	assert.Equal(t, "TKT-6", view.Ticket.TicketNumber)
	assert.Nil(t, view.Booking)
}

func TestGetForBooking_NonUniqueTickets(t *testing.T) {
	api, _ := setupServiceTest(t, func(r *gin.RouterGroup) {
		r.GET("/tickets/booking/:id", func(c *gin.Context) {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Query did not return a unique result: 2 results were returned"})
		})
		r.GET("/tickets", func(c *gin.Context) {
			c.JSON(http.StatusOK, []gin.H{
				{"id": 1, "ticketNumber": "OLD", "booking": gin.H{"id": 99}, "createdAt": "2024-05-01T10:00:00Z"},
				{"id": 2, "ticketNumber": "NEW", "booking": gin.H{"id": 99}, "createdAt": "2024-05-02T10:00:00Z"},
				{"id": 3, "ticketNumber": "OTHER", "booking": gin.H{"id": 100}, "createdAt": "2024-05-03T10:00:00Z"},
			})
		})
		bookingRoute(r)
	})

	view, err := NewTicketService(api, testLogger()).GetForBooking(authedContext(), "99")
	require.NoError(t, err)

	assert.Equal(t, "NEW", view.Ticket.TicketNumber)
}

func TestGetForBooking_GenerationFails(t *testing.T) {
	api, _ := setupServiceTest(t, func(r *gin.RouterGroup) {
		r.GET("/tickets/booking/:id", func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{})
		})
		r.POST("/tickets/generate/:id", func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Booking not found"})
		})
	})

	_, err := NewTicketService(api, testLogger()).GetForBooking(authedContext(), "99")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestDownloadPDF_Backend(t *testing.T) {
	api, _ := setupServiceTest(t, func(r *gin.RouterGroup) {
		r.GET("/tickets/booking/:id", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"id": 5, "ticketNumber": "TKT-5"})
		})
		r.GET("/tickets/:id/pdf", func(c *gin.Context) {
			c.Data(http.StatusOK, "application/pdf", []byte("%PDF-1.4 backend"))
		})
		bookingRoute(r)
	})

	doc, err := NewTicketService(api, testLogger()).DownloadPDF(authedContext(), "99")
	require.NoError(t, err)

	assert.False(t, doc.Rendered)
	assert.Equal(t, []byte("%PDF-1.4 backend"), doc.Data)
	assert.Equal(t, "Ticket_BK-99.pdf", doc.Filename)
}

func TestDownloadPDF_RendersLocally(t *testing.T) {
	api, _ := setupServiceTest(t, func(r *gin.RouterGroup) {
		r.GET("/tickets/booking/:id", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"id": 5, "ticketNumber": "TKT-5"})
		})
		r.GET("/tickets/:id/pdf", func(c *gin.Context) {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "PDF generation failed"})
		})
		bookingRoute(r)
	})

	doc, err := NewTicketService(api, testLogger()).DownloadPDF(authedContext(), "99")
	require.NoError(t, err)

	assert.True(t, doc.Rendered)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, "Ticket_BK-99.pdf", doc.Filename)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("%PDF-")))
}

func TestPDFData(t *testing.T) {
	view := &TicketView{
		Ticket: &models.Ticket{TicketNumber: "TKT-1"},
		Booking: &models.Booking{
			ID:          "99",
			BookingCode: "BK-99",
			Status:      models.BookingStatusConfirmed,
			TotalAmount: 900,
			Trip: &models.Trip{
				TripDate: "2024-05-01",
				Route:    &models.Route{Source: "Colombo", Destination: "Kandy"},
				Bus:      &models.Bus{BusNumber: "NB-1234", BusType: "AC"},
			},
			BookingSeats: []models.BookingSeat{
				{Seat: &models.Seat{SeatNumber: 3}, PassengerName: "Nimal", PassengerAge: 30, PassengerGender: models.GenderMale},
				{Seat: &models.Seat{SeatNumber: 4}},
			},
		},
	}

	d := pdfData(view)

	assert.Equal(t, "CONFIRMED", d.Status)
	assert.Equal(t, "Colombo", d.Source)
	assert.Equal(t, "Kandy", d.Destination)
	assert.Equal(t, "AC", d.BusType)
	assert.Equal(t, []int{3, 4}, d.Seats)
	require.Len(t, d.Passengers, 1)
	assert.Equal(t, 3, d.Passengers[0].Seat)
}
