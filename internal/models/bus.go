package models

// Bus is a vehicle operated on trips
type Bus struct {
	ID           ID     `json:"id,omitempty"`
	BusNumber    string `json:"busNumber"`
	BusType      string `json:"busType,omitempty"`
	OperatorName string `json:"operatorName,omitempty"`
	TotalSeats   int    `json:"totalSeats"`
	SeatLayout   string `json:"seatLayout,omitempty"`
	Amenities    string `json:"amenities,omitempty"`
	IsActive     *bool  `json:"isActive,omitempty"`
}

// Route connects a source and a destination
type Route struct {
	ID          ID      `json:"id,omitempty"`
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	Distance    float64 `json:"distance,omitempty"`
	Duration    string  `json:"duration,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}
