package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/compat"
	"github.com/smarttransit/busticket-client/internal/gateway"
	"github.com/smarttransit/busticket-client/internal/models"
	"github.com/smarttransit/busticket-client/pkg/ticketpdf"
)

// ErrTicketNotFound means no ticket exists or could be generated for a booking
var ErrTicketNotFound = errors.New("ticket not found")

// TicketView is a ticket with its booking
type TicketView struct {
	Ticket  *models.Ticket  `json:"ticket"`
	Booking *models.Booking `json:"booking,omitempty"`
}

// TicketDocument is a downloadable ticket
type TicketDocument struct {
	Data        []byte
	ContentType string
	Filename    string
	Rendered    bool
}

// TicketService retrieves, generates and prints tickets
type TicketService struct {
	api    *gateway.API
	logger *logrus.Logger
}

// NewTicketService creates a new TicketService
func NewTicketService(api *gateway.API, logger *logrus.Logger) *TicketService {
	return &TicketService{api: api, logger: logger}
}

// GetForBooking returns the ticket of a booking, generating it when none
// exists. When the backend holds several tickets the newest wins.
func (s *TicketService) GetForBooking(ctx context.Context, bookingID models.ID) (*TicketView, error) {
	log := s.logger.WithField("booking_id", bookingID)

	ticket, err := s.api.Tickets.ByBooking(ctx, bookingID)
	switch {
	case err == nil && ticket != nil:
	case err == nil || gateway.IsKind(err, gateway.KindNotFound):
		log.Info("No ticket yet, generating")
		ticket, err = s.generate(ctx, bookingID)
		if err != nil {
			return nil, err
		}
	case nonUniqueTicket(err):
		log.Warn("Booking has several tickets, picking the newest")
		ticket, err = s.latestFromAll(ctx, bookingID)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	view := &TicketView{Ticket: ticket, Booking: ticket.Booking}

	booking, err := s.api.Bookings.Get(ctx, bookingID)
	if err != nil {
		if isSessionExpired(err) {
			return nil, err
		}
		log.WithError(err).Debug("Booking lookup for ticket failed")
	} else {
		view.Booking = booking
	}

	return view, nil
}

// Generate issues the ticket of a booking
func (s *TicketService) Generate(ctx context.Context, bookingID models.ID) (*models.Ticket, error) {
	return s.api.Tickets.Generate(ctx, bookingID)
}

// Validate checks a ticket number
func (s *TicketService) Validate(ctx context.Context, ticketNumber string) (map[string]interface{}, error) {
	return s.api.Tickets.Validate(ctx, ticketNumber)
}

// DownloadPDF returns the backend's PDF of the booking's ticket, or renders
// one locally when the backend has none
func (s *TicketService) DownloadPDF(ctx context.Context, bookingID models.ID) (*TicketDocument, error) {
	view, err := s.GetForBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	data := pdfData(view)

	pdf, contentType, err := s.api.Tickets.PDF(ctx, view.Ticket.ID)
	if err == nil && len(pdf) > 0 {
		if contentType == "" {
			contentType = "application/pdf"
		}
		return &TicketDocument{Data: pdf, ContentType: contentType, Filename: ticketpdf.Filename(data)}, nil
	}
	if isSessionExpired(err) {
		return nil, err
	}
	if err != nil {
		s.logger.WithError(err).WithField("ticket_id", view.Ticket.ID).Info("Backend PDF unavailable, rendering locally")
	}

	rendered, filename, err := ticketpdf.Render(data)
	if err != nil {
		return nil, err
	}
	return &TicketDocument{Data: rendered, ContentType: "application/pdf", Filename: filename, Rendered: true}, nil
}

func (s *TicketService) generate(ctx context.Context, bookingID models.ID) (*models.Ticket, error) {
	if _, err := s.api.Tickets.Generate(ctx, bookingID); err != nil {
		s.logger.WithError(err).WithField("booking_id", bookingID).Warn("Ticket generation failed")
		if gateway.IsKind(err, gateway.KindNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrTicketNotFound, err)
		}
		return nil, err
	}

	ticket, err := s.api.Tickets.ByBooking(ctx, bookingID)
	if err != nil {
		if nonUniqueTicket(err) {
			return s.latestFromAll(ctx, bookingID)
		}
		return nil, err
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}
	return ticket, nil
}

func (s *TicketService) latestFromAll(ctx context.Context, bookingID models.ID) (*models.Ticket, error) {
	tickets, err := s.api.Tickets.All(ctx)
	if err != nil {
		return nil, err
	}
	ticket, ok := compat.LatestTicketFor(tickets, bookingID)
	if !ok {
		return nil, ErrTicketNotFound
	}
	return ticket, nil
}

// nonUniqueTicket recognises the backend failing on a booking with several tickets
func nonUniqueTicket(err error) bool {
	return gateway.MessageContains(err, "more than one row", "not return a unique")
}

func pdfData(view *TicketView) ticketpdf.Data {
	d := ticketpdf.Data{
		TicketNumber: view.Ticket.TicketNumber,
		Status:       view.Ticket.Status,
	}
	if ts := view.Ticket.IssuedOrCreated(); !ts.IsZero() {
		d.IssuedAt = ts.Format("2006-01-02 15:04")
	}

	b := view.Booking
	if b == nil {
		return d
	}
	d.BookingCode = b.BookingCode
	d.BookingID = b.ID.String()
	d.TotalAmount = b.TotalAmount
	d.ContactPhone = b.ContactPhone
	d.ContactEmail = b.ContactEmail
	d.Seats = b.SeatNumbers()
	if d.Status == "" {
		d.Status = string(b.Status)
	}

	for _, bs := range b.BookingSeats {
		if bs.PassengerName == "" {
			continue
		}
		p := ticketpdf.Passenger{Name: bs.PassengerName, Age: bs.PassengerAge, Gender: string(bs.PassengerGender)}
		if bs.Seat != nil {
			p.Seat = bs.Seat.SeatNumber
		}
		d.Passengers = append(d.Passengers, p)
	}

	if trip := b.Trip; trip != nil {
		d.TravelDate = trip.TripDate
		d.DepartureTime = trip.DepartureTime
		if trip.Route != nil {
			d.Source = trip.Route.Source
			d.Destination = trip.Route.Destination
		}
		if trip.Bus != nil {
			d.BusNumber = trip.Bus.BusNumber
			d.BusType = trip.Bus.BusType
		}
	}
	return d
}
