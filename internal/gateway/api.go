package gateway

// API groups the typed resource clients
type API struct {
	Auth     *AuthAPI
	Trips    *TripAPI
	Bookings *BookingAPI
	Buses    *BusAPI
	Routes   *RouteAPI
	Payments *PaymentAPI
	Tickets  *TicketAPI
	Reports  *ReportAPI
}

// NewAPI builds every resource client on top of c
func NewAPI(c *Client) *API {
	return &API{
		Auth:     &AuthAPI{client: c},
		Trips:    &TripAPI{client: c},
		Bookings: &BookingAPI{client: c},
		Buses:    &BusAPI{client: c},
		Routes:   &RouteAPI{client: c},
		Payments: &PaymentAPI{client: c},
		Tickets:  &TicketAPI{client: c},
		Reports:  &ReportAPI{client: c},
	}
}
