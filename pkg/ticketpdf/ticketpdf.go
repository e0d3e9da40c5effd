// Package ticketpdf renders a printable e-ticket when the backend cannot supply one.
package ticketpdf

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/phpdave11/gofpdf"
)

// Passenger is one line of the passenger table
type Passenger struct {
	Name   string
	Age    int
	Gender string
	Seat   int
}

// Data is everything printed on the ticket
type Data struct {
	TicketNumber  string
	BookingCode   string
	BookingID     string
	Status        string
	Source        string
	Destination   string
	TravelDate    string
	DepartureTime string
	BusNumber     string
	BusType       string
	Seats         []int
	Passengers    []Passenger
	TotalAmount   float64
	ContactPhone  string
	ContactEmail  string
	IssuedAt      string
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Filename returns Ticket_<bookingCode|ticketNumber|bookingID>.pdf
func Filename(d Data) string {
	ref := firstNonEmpty(d.BookingCode, d.TicketNumber, d.BookingID, "ticket")
	return fmt.Sprintf("Ticket_%s.pdf", unsafeFilename.ReplaceAllString(ref, "_"))
}

// Render builds the PDF and returns it with its file name
func Render(d Data) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BUS E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Ticket No    : %s", safe(d.TicketNumber)),
		fmt.Sprintf("Booking Code : %s", safe(firstNonEmpty(d.BookingCode, d.BookingID))),
		fmt.Sprintf("Status       : %s", safe(d.Status)),
		fmt.Sprintf("Route        : %s -> %s", safe(d.Source), safe(d.Destination)),
		fmt.Sprintf("Date / Time  : %s %s", safe(d.TravelDate), d.DepartureTime),
		fmt.Sprintf("Bus          : %s %s", safe(d.BusNumber), d.BusType),
		fmt.Sprintf("Seats        : %s", safe(joinInts(d.Seats))),
		fmt.Sprintf("Total Paid   : %.2f", d.TotalAmount),
		fmt.Sprintf("Contact      : %s %s", safe(d.ContactPhone), d.ContactEmail),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	if len(d.Passengers) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, "Passengers")
		pdf.Ln(8)

		pdf.SetFont("Helvetica", "", 11)
		for i, p := range d.Passengers {
			pdf.Cell(0, 6, fmt.Sprintf("%d. %s, %d, %s, seat %d", i+1, safe(p.Name), p.Age, safe(p.Gender), p.Seat))
			pdf.Ln(6)
		}
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	note := "Please present this ticket with a valid ID when boarding."
	if d.IssuedAt != "" {
		note = fmt.Sprintf("Issued %s. %s", d.IssuedAt, note)
	}
	pdf.MultiCell(0, 6, note, "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to render ticket: %w", err)
	}

	return buf.Bytes(), Filename(d), nil
}

func safe(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
