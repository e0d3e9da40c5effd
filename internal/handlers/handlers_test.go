package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/config"
	"github.com/smarttransit/busticket-client/internal/gateway"
	"github.com/smarttransit/busticket-client/internal/middleware"
	"github.com/smarttransit/busticket-client/internal/models"
	"github.com/smarttransit/busticket-client/internal/services"
	"github.com/smarttransit/busticket-client/internal/session"
	"github.com/smarttransit/busticket-client/internal/state"
	"github.com/smarttransit/busticket-client/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// backendLogin answers /auth/login with a user whose role is the password
func backendLogin(r *gin.RouterGroup) {
	r.POST("/auth/login", func(c *gin.Context) {
		var req models.LoginRequest
		_ = c.ShouldBindJSON(&req)
		if req.Password == "wrong" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password", "code": "BAD_CREDENTIALS"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"token":        "access-token",
			"refreshToken": "refresh-token",
			"user":         gin.H{"id": 7, "name": "Nimal", "email": req.Email, "role": req.Password},
		})
	})
	r.POST("/auth/logout", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// setupBFF starts a fake backend and returns the BFF engine wired to it
func setupBFF(t *testing.T, register func(r *gin.RouterGroup)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := gin.New()
	group := backend.Group("/api/v1")
	backendLogin(group)
	register(group)
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	logger := testLogger()
	api := gateway.NewAPI(gateway.NewClient(config.APIConfig{
		BaseURL: server.URL + "/api/v1",
		Timeout: 5 * time.Second,
	}, logger))
	vault := state.NewVault(state.NewMemoryStore(), "test")
	v := validator.New("94")

	store := session.NewStore(api.Auth, vault, logger)
	myBookings := services.NewMyBookingsService(api, vault, logger)
	store.OnLogout(myBookings.Reset)

	router := gin.New()
	router.Use(middleware.AttachSession(store))
	RegisterRoutes(router.Group("/api/v1"), Handlers{
		Session: NewSessionHandler(store, v, logger),
		Trips:   NewTripHandler(services.NewTripService(api, logger), services.NewSeatService(api, 40, logger), logger),
		Booking: NewBookingHandler(
			services.NewBookingService(api, vault, v, logger),
			services.NewPaymentService(api, vault, config.BookingConfig{DefaultPaymentMethod: "UPI", DefaultPaymentGateway: "INTERNAL"}, logger),
			myBookings,
			services.NewTicketService(api, logger),
			logger,
		),
		Admin: NewAdminHandler(api, services.NewReportService(api, logger), nil, logger),
	})
	return router
}

func do(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, router *gin.Engine, role string) {
	t.Helper()
	w := do(router, http.MethodPost, "/api/v1/session/login", gin.H{"email": "nimal@example.com", "password": role})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestSessionLifecycle(t *testing.T) {
	router := setupBFF(t, func(r *gin.RouterGroup) {})

	w := do(router, http.MethodGet, "/api/v1/session", nil)
	assert.Equal(t, "LOGGED_OUT", decode(t, w)["state"])

	login(t, router, "USER")

	w = do(router, http.MethodGet, "/api/v1/session", nil)
	body := decode(t, w)
	assert.Equal(t, "LOGGED_IN", body["state"])
	// digit-only ids are written as JSON numbers
	assert.Equal(t, 7.0, body["user"].(map[string]interface{})["id"])

	w = do(router, http.MethodPost, "/api/v1/session/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodGet, "/api/v1/session", nil)
	assert.Equal(t, "LOGGED_OUT", decode(t, w)["state"])
}

func TestLogin_BadCredentials(t *testing.T) {
	router := setupBFF(t, func(r *gin.RouterGroup) {})

	w := do(router, http.MethodPost, "/api/v1/session/login", gin.H{"email": "nimal@example.com", "password": "wrong"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Invalid email or password", body["message"])
	assert.Equal(t, "BAD_CREDENTIALS", body["code"])
}

func TestRegister_InvalidPhone(t *testing.T) {
	var calls int32
	router := setupBFF(t, func(r *gin.RouterGroup) {
		r.POST("/auth/register", func(c *gin.Context) {
			atomic.AddInt32(&calls, 1)
			c.Status(http.StatusInternalServerError)
		})
	})

	w := do(router, http.MethodPost, "/api/v1/session/register", gin.H{
		"name": "Nimal", "email": "nimal@example.com", "password": "secret", "phone": "12ab",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "phone", decode(t, w)["field"])
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestBookings_RequireSession(t *testing.T) {
	router := setupBFF(t, func(r *gin.RouterGroup) {})

	w := do(router, http.MethodGet, "/api/v1/bookings", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "NOT_LOGGED_IN", decode(t, w)["code"])
}

func TestHold_ValidationNeverReachesBackend(t *testing.T) {
	var holds int32
	router := setupBFF(t, func(r *gin.RouterGroup) {
		r.POST("/bookings/hold", func(c *gin.Context) {
			atomic.AddInt32(&holds, 1)
			c.JSON(http.StatusOK, gin.H{"id": 1})
		})
	})
	login(t, router, "USER")

	w := do(router, http.MethodPost, "/api/v1/bookings", gin.H{"tripId": "10", "seatNumbers": []int{}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", decode(t, w)["code"])
	assert.Zero(t, atomic.LoadInt32(&holds))
}

func TestHold_UsesFareAliasFromRequestTrip(t *testing.T) {
	var hold map[string]interface{}
	router := setupBFF(t, func(r *gin.RouterGroup) {
		r.GET("/trips/:id", func(c *gin.Context) {
			t.Error("trip resource should not be fetched")
			c.Status(http.StatusInternalServerError)
		})
		r.POST("/bookings/hold", func(c *gin.Context) {
			require.NoError(t, c.ShouldBindJSON(&hold))
			c.JSON(http.StatusCreated, gin.H{"id": 21})
		})
	})
	login(t, router, "USER")

	w := do(router, http.MethodPost, "/api/v1/bookings", gin.H{
		"tripId":      "10",
		"trip":        gin.H{"id": 10, "farePerSeat": "120"},
		"seatNumbers": []int{1, 2},
		"passengers": []gin.H{
			{"name": "Nimal", "age": 30, "gender": "MALE"},
			{"name": "Kamala", "age": 28, "gender": "FEMALE"},
		},
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, 120.0, body["farePerSeat"])
	assert.Equal(t, 240.0, body["totalAmount"])
	assert.Equal(t, 240.0, hold["totalAmount"])
}

func TestList_AfterPaymentPinsPaidBooking(t *testing.T) {
	router := setupBFF(t, func(r *gin.RouterGroup) {
		r.GET("/bookings/:id", func(c *gin.Context) {
			if c.Param("id") == "my" {
				c.JSON(http.StatusOK, []gin.H{
					{"id": 3, "status": "CONFIRMED", "user": gin.H{"id": 7}},
				})
				return
			}
			c.JSON(http.StatusOK, gin.H{"id": 5, "status": "CONFIRMED", "user": gin.H{"id": 7}})
		})
	})
	login(t, router, "USER")

	w := do(router, http.MethodGet, "/api/v1/bookings?paymentSuccess=true&bookingId=5", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	bookings := decode(t, w)["bookings"].([]interface{})
	require.Len(t, bookings, 2)
	assert.Equal(t, 5.0, bookings[0].(map[string]interface{})["id"])
	assert.Equal(t, 3.0, bookings[1].(map[string]interface{})["id"])
}

func TestPay_AlreadyConfirmedIsSuccess(t *testing.T) {
	router := setupBFF(t, func(r *gin.RouterGroup) {
		r.POST("/payments/checkout", func(c *gin.Context) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Booking is already confirmed", "code": "BOOKING_ALREADY_CONFIRMED"})
		})
		r.POST("/tickets/generate/:id", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"id": 1, "ticketNumber": "TKT-1"})
		})
		r.GET("/bookings/:id", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"id": 5, "status": "CONFIRMED", "user": gin.H{"id": 7}})
		})
	})
	login(t, router, "USER")

	w := do(router, http.MethodPost, "/api/v1/bookings/5/payment", gin.H{"amount": 900})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["alreadyConfirmed"])
	assert.Equal(t, true, body["ticketGenerated"])
}

func TestTicketPDF_RendersLocallyWithoutBackendPDF(t *testing.T) {
	router := setupBFF(t, func(r *gin.RouterGroup) {
		r.GET("/tickets/booking/:id", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"id": 11, "ticketNumber": "TKT-11", "booking": gin.H{"id": 5}})
		})
		r.GET("/tickets/:id/pdf", func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"message": "PDF not available"})
		})
		r.GET("/bookings/:id", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"id": 5, "status": "CONFIRMED", "totalAmount": 900})
		})
	})
	login(t, router, "USER")

	w := do(router, http.MethodGet, "/api/v1/bookings/5/ticket/pdf", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestSessionExpired_RedirectsToLogin(t *testing.T) {
	router := setupBFF(t, func(r *gin.RouterGroup) {
		r.GET("/bookings/my", func(c *gin.Context) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Token expired"})
		})
		r.POST("/auth/refresh", func(c *gin.Context) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Refresh token expired"})
		})
	})
	login(t, router, "USER")

	w := do(router, http.MethodGet, "/api/v1/bookings", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode(t, w)
	assert.Equal(t, "SESSION_EXPIRED", body["code"])
	assert.Equal(t, LoginPath, body["redirect"])

	w = do(router, http.MethodGet, "/api/v1/session", nil)
	assert.Equal(t, "LOGGED_OUT", decode(t, w)["state"])
}

func TestAdmin_RoleGuard(t *testing.T) {
	router := setupBFF(t, func(r *gin.RouterGroup) {
		r.GET("/buses", func(c *gin.Context) {
			c.JSON(http.StatusOK, []gin.H{{"id": 1, "busNumber": "NB-1234", "totalSeats": 40}})
		})
	})

	login(t, router, "USER")
	w := do(router, http.MethodGet, "/api/v1/admin/buses", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	login(t, router, "ROLE_ADMIN")
	w = do(router, http.MethodGet, "/api/v1/admin/buses", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1.0, decode(t, w)["count"])
}

func TestAdmin_CreateTripValidation(t *testing.T) {
	router := setupBFF(t, func(r *gin.RouterGroup) {})
	login(t, router, "ADMIN")

	w := do(router, http.MethodPost, "/api/v1/admin/trips", gin.H{"busId": "1", "routeId": "2", "tripDate": "2026-10-20", "departureTime": "08:00", "fare": 0})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w)["code"])
}

func TestAdmin_ReportRangeRejected(t *testing.T) {
	router := setupBFF(t, func(r *gin.RouterGroup) {})
	login(t, router, "ADMIN")

	w := do(router, http.MethodGet, "/api/v1/admin/reports/sales?startDate=2026-10-10&endDate=2026-10-01", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "startDate", decode(t, w)["field"])
}

func TestErrorResponse(t *testing.T) {
	notFound := &gateway.APIError{Kind: gateway.KindNotFound, Status: http.StatusNotFound, Message: "Trip not found"}
	serverErr := &gateway.APIError{Kind: gateway.KindServer, Status: http.StatusInternalServerError, Message: "boom"}
	forbidden := &gateway.APIError{Kind: gateway.KindAuth, Status: http.StatusForbidden, Code: "ACCESS_DENIED"}

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &services.ValidationError{Field: "seatNumbers", Message: "Select a seat"}, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"fare", &services.FareUnavailableError{TripID: "1"}, http.StatusUnprocessableEntity, "FARE_UNAVAILABLE"},
		{"session expired", fmt.Errorf("%w: refresh rejected", gateway.ErrSessionExpired), http.StatusUnauthorized, "SESSION_EXPIRED"},
		{"no user", services.ErrNoUser, http.StatusUnauthorized, "NOT_LOGGED_IN"},
		{"ticket", services.ErrTicketNotFound, http.StatusNotFound, "TICKET_NOT_FOUND"},
		{"booking not found", &services.BookingError{Message: "Trip not found", Err: notFound}, http.StatusNotFound, "BOOKING_FAILED"},
		{"payment server", &services.PaymentError{Message: "Payment failed", Err: serverErr}, http.StatusBadGateway, "PAYMENT_FAILED"},
		{"forbidden", forbidden, http.StatusForbidden, "ACCESS_DENIED"},
		{"network", &gateway.NetworkError{Err: errors.New("dial tcp")}, http.StatusBadGateway, "NETWORK_ERROR"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := errorResponse(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
		})
	}
}
