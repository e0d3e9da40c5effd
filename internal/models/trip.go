package models

// Trip is a scheduled bus run
type Trip struct {
	ID             ID      `json:"id"`
	Route          *Route  `json:"route,omitempty"`
	Bus            *Bus    `json:"bus,omitempty"`
	TripDate       string  `json:"tripDate,omitempty"`
	DepartureTime  string  `json:"departureTime,omitempty"`
	ArrivalTime    string  `json:"arrivalTime,omitempty"`
	Fare           float64 `json:"fare"`
	AvailableSeats int     `json:"availableSeats,omitempty"`
	Status         string  `json:"status,omitempty"`
	TripCode       string  `json:"tripCode,omitempty"`
}

// Capacity returns the bus seat count, zero when unknown
func (t *Trip) Capacity() int {
	if t == nil || t.Bus == nil {
		return 0
	}
	return t.Bus.TotalSeats
}

// TripSearchRequest is the body of POST /trips/search
type TripSearchRequest struct {
	Source      string `json:"source" binding:"required"`
	Destination string `json:"destination" binding:"required"`
	TravelDate  string `json:"travelDate" binding:"required"`
	Passengers  int    `json:"passengers,omitempty"`
	BusType     string `json:"busType,omitempty"`
	SortBy      string `json:"sortBy,omitempty"`
	SortOrder   string `json:"sortOrder,omitempty"`
}

// TripRequest creates or updates a trip from the back office
type TripRequest struct {
	BusID         ID      `json:"busId"`
	RouteID       ID      `json:"routeId"`
	TripDate      string  `json:"tripDate"`
	DepartureTime string  `json:"departureTime"`
	ArrivalTime   string  `json:"arrivalTime,omitempty"`
	Fare          float64 `json:"fare"`
	Status        string  `json:"status,omitempty"`
}
