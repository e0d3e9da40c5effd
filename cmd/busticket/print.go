package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/smarttransit/busticket-client/internal/models"
	"github.com/smarttransit/busticket-client/internal/services"
)

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

func displayName(u *models.User) string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func routeName(t *models.Trip) string {
	if t == nil || t.Route == nil {
		return "-"
	}
	return t.Route.Source + " -> " + t.Route.Destination
}

func printTrips(trips []models.Trip) {
	if len(trips) == 0 {
		fmt.Println("No trips found")
		return
	}

	w := newTable()
	fmt.Fprintln(w, "TRIP\tROUTE\tDATE\tDEPARTS\tBUS\tFARE\tSEATS")
	for i := range trips {
		t := &trips[i]
		bus := "-"
		if t.Bus != nil {
			bus = strings.TrimSpace(t.Bus.BusNumber + " " + t.Bus.BusType)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\t%d\n",
			t.ID, routeName(t), t.TripDate, t.DepartureTime, bus, t.Fare, t.AvailableSeats)
	}
	w.Flush()
}

func printSeats(m *services.SeatMap) {
	if len(m.Seats) == 0 {
		fmt.Println("No seats available")
		return
	}
	if m.Synthesized {
		fmt.Printf("Seat list not provided by the server; showing 1-%d (capacity from %s)\n", len(m.Seats), m.CapacitySource)
	}
	fmt.Printf("%d seats available: %s\n", len(m.Seats), joinInts(m.Numbers()))
}

func printBookings(result *services.MyBookingsResult) {
	if result.Warning != "" {
		fmt.Fprintf(os.Stderr, "warning: %s\n", result.Warning)
	}
	if len(result.Bookings) == 0 {
		fmt.Println("No bookings yet")
		return
	}

	w := newTable()
	fmt.Fprintln(w, "BOOKING\tSTATUS\tROUTE\tDATE\tSEATS\tTOTAL\t")
	for _, entry := range result.Bookings {
		b := entry.Booking
		date := "-"
		if b.Trip != nil && b.Trip.TripDate != "" {
			date = b.Trip.TripDate
		}
		marker := ""
		if entry.Stale {
			marker = "(cached)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\t%s\n",
			b.ID, b.Status, routeName(b.Trip), date, joinInts(b.SeatNumbers()), b.TotalAmount, marker)
	}
	w.Flush()
	fmt.Printf("(source: %s)\n", result.Source)
}

func printTicket(view *services.TicketView) {
	t := view.Ticket
	fmt.Printf("Ticket %s (%s)\n", t.TicketNumber, t.Status)
	if issued := t.IssuedOrCreated(); !issued.IsZero() {
		fmt.Printf("Issued  %s\n", issued.Local().Format("2006-01-02 15:04"))
	}

	b := view.Booking
	if b == nil {
		b = t.Booking
	}
	if b == nil {
		return
	}
	fmt.Printf("Booking %s %s\n", b.ID, b.Status)
	if b.Trip != nil {
		fmt.Printf("Trip    %s on %s at %s\n", routeName(b.Trip), b.Trip.TripDate, b.Trip.DepartureTime)
	}
	if seats := b.SeatNumbers(); len(seats) > 0 {
		fmt.Printf("Seats   %s\n", joinInts(seats))
	}
	fmt.Printf("Total   %.2f\n", b.TotalAmount)
}
