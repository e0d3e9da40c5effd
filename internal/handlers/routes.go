package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/smarttransit/busticket-client/internal/middleware"
	"github.com/smarttransit/busticket-client/internal/models"
)

// Handlers bundles everything mounted under /api/v1
type Handlers struct {
	Session *SessionHandler
	Trips   *TripHandler
	Booking *BookingHandler
	Admin   *AdminHandler
}

// RegisterRoutes mounts the BFF routes on v1. The caller has already
// installed middleware.AttachSession on the engine.
func RegisterRoutes(v1 *gin.RouterGroup, h Handlers) {
	// Session routes (public)
	sessionGroup := v1.Group("/session")
	{
		sessionGroup.GET("", h.Session.Get)
		sessionGroup.POST("/login", h.Session.Login)
		sessionGroup.POST("/register", h.Session.Register)
		sessionGroup.POST("/refresh", h.Session.Refresh)
		sessionGroup.POST("/logout", h.Session.Logout)
	}

	// Trip routes (public)
	trips := v1.Group("/trips")
	{
		trips.POST("/search", h.Trips.Search)
		trips.GET("/:tripId", h.Trips.Get)
		trips.GET("/:tripId/seats", h.Trips.Seats)
	}

	// Booking routes (signed-in user)
	bookings := v1.Group("/bookings")
	bookings.Use(middleware.RequireSession())
	{
		bookings.POST("", h.Booking.Hold)
		bookings.GET("", h.Booking.List)
		bookings.POST("/:bookingId/payment", h.Booking.Pay)
		bookings.POST("/:bookingId/cancel", h.Booking.Cancel)
		bookings.GET("/:bookingId/ticket", h.Booking.Ticket)
		bookings.GET("/:bookingId/ticket/pdf", h.Booking.TicketPDF)
	}

	// Ticket validation (conductors and admins are signed-in users too)
	tickets := v1.Group("/tickets")
	tickets.Use(middleware.RequireSession())
	{
		tickets.GET("/validate/:ticketNumber", h.Booking.ValidateTicket)
	}

	// Admin routes
	admin := v1.Group("/admin")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/buses", h.Admin.ListBuses)
		admin.POST("/buses", h.Admin.CreateBus)
		admin.GET("/buses/:id", h.Admin.GetBus)
		admin.PUT("/buses/:id", h.Admin.UpdateBus)
		admin.DELETE("/buses/:id", h.Admin.DeleteBus)

		admin.GET("/routes", h.Admin.ListRoutes)
		admin.POST("/routes", h.Admin.CreateRoute)
		admin.GET("/routes/:id", h.Admin.GetRoute)
		admin.PUT("/routes/:id", h.Admin.UpdateRoute)
		admin.DELETE("/routes/:id", h.Admin.DeleteRoute)

		admin.GET("/trips", h.Admin.ListTrips)
		admin.POST("/trips", h.Admin.CreateTrip)
		admin.PUT("/trips/:id", h.Admin.UpdateTrip)
		admin.DELETE("/trips/:id", h.Admin.DeleteTrip)

		admin.GET("/bookings", h.Admin.ListBookings)
		admin.POST("/bookings/:id/confirm", h.Admin.ConfirmBooking)

		admin.GET("/payments", h.Admin.ListPayments)
		admin.GET("/payments/:paymentId", h.Admin.GetPayment)
		admin.POST("/payments/:paymentId/refund", h.Admin.RefundPayment)

		reports := admin.Group("/reports")
		{
			reports.GET("/dashboard", h.Admin.Dashboard)
			reports.GET("/overview", h.Admin.Overview)
			reports.GET("/sales", h.Admin.Sales)
			reports.GET("/occupancy", h.Admin.Occupancy)
			reports.GET("/route-performance", h.Admin.RoutePerformance)
			reports.GET("/daily-settlement", h.Admin.DailySettlement)
			reports.GET("/download", h.Admin.DownloadReport)
		}

		admin.GET("/jobs", h.Admin.Jobs)
	}
}
