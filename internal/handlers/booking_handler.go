package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/middleware"
	"github.com/smarttransit/busticket-client/internal/models"
	"github.com/smarttransit/busticket-client/internal/services"
)

// BookingHandler serves holds, payments, the my-bookings list and tickets
type BookingHandler struct {
	bookings   *services.BookingService
	payments   *services.PaymentService
	myBookings *services.MyBookingsService
	tickets    *services.TicketService
	logger     *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(
	bookings *services.BookingService,
	payments *services.PaymentService,
	myBookings *services.MyBookingsService,
	tickets *services.TicketService,
	logger *logrus.Logger,
) *BookingHandler {
	return &BookingHandler{
		bookings:   bookings,
		payments:   payments,
		myBookings: myBookings,
		tickets:    tickets,
		logger:     logger,
	}
}

// CancelRequest is the body of a cancellation
type CancelRequest struct {
	Reason string `json:"reason"`
}

// Hold handles POST /api/v1/bookings
func (h *BookingHandler) Hold(c *gin.Context) {
	var req services.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid booking request")
		return
	}

	user, _ := middleware.GetUser(c)
	result, err := h.bookings.Submit(c.Request.Context(), user, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// List handles GET /api/v1/bookings
// ?paymentSuccess=true&bookingId=... pins the just-paid booking first;
// ?cached=true answers from the local cache only.
func (h *BookingHandler) List(c *gin.Context) {
	user, _ := middleware.GetUser(c)
	ctx := c.Request.Context()

	if cached, _ := strconv.ParseBool(c.Query("cached")); cached {
		c.JSON(http.StatusOK, services.MyBookingsResult{
			Bookings: h.myBookings.Cached(ctx, user),
			Source:   services.SourceCache,
		})
		return
	}

	var (
		result *services.MyBookingsResult
		err    error
	)
	paid, _ := strconv.ParseBool(c.Query("paymentSuccess"))
	if bookingID := c.Query("bookingId"); paid && bookingID != "" {
		result, err = h.myBookings.LoadAfterPayment(ctx, user, models.ID(bookingID))
	} else {
		result, err = h.myBookings.Load(ctx, user)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Pay handles POST /api/v1/bookings/:bookingId/payment
func (h *BookingHandler) Pay(c *gin.Context) {
	var req services.PayRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid payment request")
			return
		}
	}
	req.BookingID = models.ID(c.Param("bookingId"))

	user, _ := middleware.GetUser(c)
	result, err := h.payments.Pay(c.Request.Context(), user, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Cancel handles POST /api/v1/bookings/:bookingId/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	var req CancelRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid cancellation request")
			return
		}
	}

	user, _ := middleware.GetUser(c)
	result, err := h.myBookings.Cancel(c.Request.Context(), user, models.ID(c.Param("bookingId")), req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Ticket handles GET /api/v1/bookings/:bookingId/ticket
func (h *BookingHandler) Ticket(c *gin.Context) {
	view, err := h.tickets.GetForBooking(c.Request.Context(), models.ID(c.Param("bookingId")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// TicketPDF handles GET /api/v1/bookings/:bookingId/ticket/pdf
func (h *BookingHandler) TicketPDF(c *gin.Context) {
	doc, err := h.tickets.DownloadPDF(c.Request.Context(), models.ID(c.Param("bookingId")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

// ValidateTicket handles GET /api/v1/tickets/validate/:ticketNumber
func (h *BookingHandler) ValidateTicket(c *gin.Context) {
	result, err := h.tickets.Validate(c.Request.Context(), c.Param("ticketNumber"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
