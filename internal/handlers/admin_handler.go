package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/gateway"
	"github.com/smarttransit/busticket-client/internal/middleware"
	"github.com/smarttransit/busticket-client/internal/models"
	"github.com/smarttransit/busticket-client/internal/services"
)

// JobStatus reports the background jobs
type JobStatus interface {
	GetJobStatus() map[string]interface{}
}

// AdminHandler serves the back office: fleet, trips, bookings, payments and reports
type AdminHandler struct {
	api     *gateway.API
	reports *services.ReportService
	jobs    JobStatus
	logger  *logrus.Logger
}

// NewAdminHandler creates a new admin handler. jobs may be nil when
// background jobs are disabled.
func NewAdminHandler(api *gateway.API, reports *services.ReportService, jobs JobStatus, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		api:     api,
		reports: reports,
		jobs:    jobs,
		logger:  logger,
	}
}

// ============================================================================
// BUSES
// ============================================================================

// ListBuses handles GET /api/v1/admin/buses (?active=true, ?type=AC)
func (h *AdminHandler) ListBuses(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		buses []models.Bus
		err   error
	)
	active, _ := strconv.ParseBool(c.Query("active"))
	switch busType := c.Query("type"); {
	case busType != "":
		buses, err = h.api.Buses.ByType(ctx, busType)
	case active:
		buses, err = h.api.Buses.Active(ctx)
	default:
		buses, err = h.api.Buses.List(ctx)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"buses": buses, "count": len(buses)})
}

// GetBus handles GET /api/v1/admin/buses/:id
func (h *AdminHandler) GetBus(c *gin.Context) {
	bus, err := h.api.Buses.Get(c.Request.Context(), models.ID(c.Param("id")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, bus)
}

// CreateBus handles POST /api/v1/admin/buses
func (h *AdminHandler) CreateBus(c *gin.Context) {
	var bus models.Bus
	if err := c.ShouldBindJSON(&bus); err != nil {
		badRequest(c, "Invalid bus")
		return
	}
	if bus.BusNumber == "" || bus.TotalSeats <= 0 {
		badRequest(c, "Bus number and a positive seat count are required")
		return
	}

	created, err := h.api.Buses.Create(c.Request.Context(), bus)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit(c, "bus_created", created.ID)
	c.JSON(http.StatusCreated, created)
}

// UpdateBus handles PUT /api/v1/admin/buses/:id
func (h *AdminHandler) UpdateBus(c *gin.Context) {
	var bus models.Bus
	if err := c.ShouldBindJSON(&bus); err != nil {
		badRequest(c, "Invalid bus")
		return
	}

	id := models.ID(c.Param("id"))
	updated, err := h.api.Buses.Update(c.Request.Context(), id, bus)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit(c, "bus_updated", id)
	c.JSON(http.StatusOK, updated)
}

// DeleteBus handles DELETE /api/v1/admin/buses/:id
func (h *AdminHandler) DeleteBus(c *gin.Context) {
	id := models.ID(c.Param("id"))
	if err := h.api.Buses.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit(c, "bus_deleted", id)
	c.JSON(http.StatusOK, gin.H{"message": "Bus deleted"})
}

// ============================================================================
// ROUTES
// ============================================================================

// ListRoutes handles GET /api/v1/admin/routes (?active=true, ?source=&destination=)
func (h *AdminHandler) ListRoutes(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		routes []models.Route
		err    error
	)
	active, _ := strconv.ParseBool(c.Query("active"))
	source, destination := c.Query("source"), c.Query("destination")
	switch {
	case source != "" || destination != "":
		routes, err = h.api.Routes.Search(ctx, source, destination)
	case active:
		routes, err = h.api.Routes.Active(ctx)
	default:
		routes, err = h.api.Routes.List(ctx)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"routes": routes, "count": len(routes)})
}

// GetRoute handles GET /api/v1/admin/routes/:id
func (h *AdminHandler) GetRoute(c *gin.Context) {
	route, err := h.api.Routes.Get(c.Request.Context(), models.ID(c.Param("id")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

// CreateRoute handles POST /api/v1/admin/routes
func (h *AdminHandler) CreateRoute(c *gin.Context) {
	var route models.Route
	if err := c.ShouldBindJSON(&route); err != nil {
		badRequest(c, "Invalid route")
		return
	}
	if route.Source == "" || route.Destination == "" {
		badRequest(c, "Source and destination are required")
		return
	}

	created, err := h.api.Routes.Create(c.Request.Context(), route)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit(c, "route_created", created.ID)
	c.JSON(http.StatusCreated, created)
}

// UpdateRoute handles PUT /api/v1/admin/routes/:id
func (h *AdminHandler) UpdateRoute(c *gin.Context) {
	var route models.Route
	if err := c.ShouldBindJSON(&route); err != nil {
		badRequest(c, "Invalid route")
		return
	}

	id := models.ID(c.Param("id"))
	updated, err := h.api.Routes.Update(c.Request.Context(), id, route)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit(c, "route_updated", id)
	c.JSON(http.StatusOK, updated)
}

// DeleteRoute handles DELETE /api/v1/admin/routes/:id
func (h *AdminHandler) DeleteRoute(c *gin.Context) {
	id := models.ID(c.Param("id"))
	if err := h.api.Routes.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit(c, "route_deleted", id)
	c.JSON(http.StatusOK, gin.H{"message": "Route deleted"})
}

// ============================================================================
// TRIPS
// ============================================================================

// ListTrips handles GET /api/v1/admin/trips (?date=, ?routeId=, ?busId=)
func (h *AdminHandler) ListTrips(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		trips []models.Trip
		err   error
	)
	switch {
	case c.Query("date") != "":
		trips, err = h.api.Trips.ByDate(ctx, c.Query("date"))
	case c.Query("routeId") != "":
		trips, err = h.api.Trips.ByRoute(ctx, models.ID(c.Query("routeId")))
	case c.Query("busId") != "":
		trips, err = h.api.Trips.ByBus(ctx, models.ID(c.Query("busId")))
	default:
		trips, err = h.api.Trips.List(ctx)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trips": trips, "count": len(trips)})
}

// CreateTrip handles POST /api/v1/admin/trips
func (h *AdminHandler) CreateTrip(c *gin.Context) {
	var req models.TripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid trip")
		return
	}
	if req.BusID.IsZero() || req.RouteID.IsZero() || req.TripDate == "" || req.DepartureTime == "" {
		badRequest(c, "Bus, route, trip date and departure time are required")
		return
	}
	if req.Fare <= 0 {
		badRequest(c, "Fare must be greater than zero")
		return
	}

	created, err := h.api.Trips.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit(c, "trip_created", created.ID)
	c.JSON(http.StatusCreated, created)
}

// UpdateTrip handles PUT /api/v1/admin/trips/:id
func (h *AdminHandler) UpdateTrip(c *gin.Context) {
	var req models.TripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid trip")
		return
	}

	id := models.ID(c.Param("id"))
	updated, err := h.api.Trips.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit(c, "trip_updated", id)
	c.JSON(http.StatusOK, updated)
}

// DeleteTrip handles DELETE /api/v1/admin/trips/:id
func (h *AdminHandler) DeleteTrip(c *gin.Context) {
	id := models.ID(c.Param("id"))
	if err := h.api.Trips.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit(c, "trip_deleted", id)
	c.JSON(http.StatusOK, gin.H{"message": "Trip deleted"})
}

// ============================================================================
// BOOKINGS AND PAYMENTS
// ============================================================================

// ListBookings handles GET /api/v1/admin/bookings (?userId=)
func (h *AdminHandler) ListBookings(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		bookings []models.Booking
		err      error
	)
	if userID := c.Query("userId"); userID != "" {
		bookings, err = h.api.Bookings.ByUser(ctx, models.ID(userID))
	} else {
		bookings, err = h.api.Bookings.All(ctx)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// ConfirmBooking handles POST /api/v1/admin/bookings/:id/confirm
func (h *AdminHandler) ConfirmBooking(c *gin.Context) {
	id := models.ID(c.Param("id"))
	booking, err := h.api.Bookings.Confirm(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit(c, "booking_confirmed", id)
	c.JSON(http.StatusOK, booking)
}

// ListPayments handles GET /api/v1/admin/payments (?bookingId=)
func (h *AdminHandler) ListPayments(c *gin.Context) {
	ctx := c.Request.Context()

	if bookingID := c.Query("bookingId"); bookingID != "" {
		payment, err := h.api.Payments.ByBooking(ctx, models.ID(bookingID))
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"payments": []models.Payment{*payment}, "count": 1})
		return
	}

	payments, err := h.api.Payments.All(ctx)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments, "count": len(payments)})
}

// GetPayment handles GET /api/v1/admin/payments/:paymentId
func (h *AdminHandler) GetPayment(c *gin.Context) {
	payment, err := h.api.Payments.Get(c.Request.Context(), models.ID(c.Param("paymentId")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// RefundPayment handles POST /api/v1/admin/payments/:paymentId/refund
func (h *AdminHandler) RefundPayment(c *gin.Context) {
	var req models.RefundRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid refund request")
			return
		}
	}
	if req.Amount < 0 {
		badRequest(c, "Refund amount must not be negative")
		return
	}

	id := models.ID(c.Param("paymentId"))
	payment, err := h.api.Payments.Refund(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit(c, "payment_refunded", id)
	c.JSON(http.StatusOK, payment)
}

// ============================================================================
// REPORTS
// ============================================================================

// Dashboard handles GET /api/v1/admin/reports/dashboard
func (h *AdminHandler) Dashboard(c *gin.Context) {
	report, err := h.reports.Dashboard(c.Request.Context())
	h.respondReport(c, report, err)
}

// Sales handles GET /api/v1/admin/reports/sales?startDate=&endDate=
func (h *AdminHandler) Sales(c *gin.Context) {
	report, err := h.reports.Sales(c.Request.Context(), dateRange(c))
	h.respondReport(c, report, err)
}

// Occupancy handles GET /api/v1/admin/reports/occupancy?startDate=&endDate=
func (h *AdminHandler) Occupancy(c *gin.Context) {
	report, err := h.reports.Occupancy(c.Request.Context(), dateRange(c))
	h.respondReport(c, report, err)
}

// RoutePerformance handles GET /api/v1/admin/reports/route-performance?startDate=&endDate=
func (h *AdminHandler) RoutePerformance(c *gin.Context) {
	report, err := h.reports.RoutePerformance(c.Request.Context(), dateRange(c))
	h.respondReport(c, report, err)
}

// DailySettlement handles GET /api/v1/admin/reports/daily-settlement?date=
func (h *AdminHandler) DailySettlement(c *gin.Context) {
	report, err := h.reports.DailySettlement(c.Request.Context(), c.Query("date"))
	h.respondReport(c, report, err)
}

// Overview handles GET /api/v1/admin/reports/overview?startDate=&endDate=
func (h *AdminHandler) Overview(c *gin.Context) {
	overview, err := h.reports.Overview(c.Request.Context(), dateRange(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// DownloadReport handles GET /api/v1/admin/reports/download?startDate=&endDate=
func (h *AdminHandler) DownloadReport(c *gin.Context) {
	doc, err := h.reports.Download(c.Request.Context(), dateRange(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

// Jobs handles GET /api/v1/admin/jobs
func (h *AdminHandler) Jobs(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusOK, gin.H{"running": false, "job_count": 0})
		return
	}
	c.JSON(http.StatusOK, h.jobs.GetJobStatus())
}

func (h *AdminHandler) respondReport(c *gin.Context, report models.Report, err error) {
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if report == nil {
		report = models.Report{}
	}
	c.JSON(http.StatusOK, report)
}

// audit logs a back-office change with the admin who made it
func (h *AdminHandler) audit(c *gin.Context, action string, id models.ID) {
	fields := logrus.Fields{
		"action":    action,
		"target_id": id,
	}
	if user, ok := middleware.GetUser(c); ok {
		fields["admin_id"] = user.ID
	}
	h.logger.WithFields(fields).Info("Admin action")
}

func dateRange(c *gin.Context) services.DateRange {
	var r services.DateRange
	_ = c.ShouldBindQuery(&r)
	return r
}
