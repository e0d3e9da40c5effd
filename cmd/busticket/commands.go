package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/smarttransit/busticket-client/internal/models"
	"github.com/smarttransit/busticket-client/internal/services"
	"github.com/spf13/pflag"
)

// PasswordEnv lets scripts log in without the password on the command line
const PasswordEnv = "BUSTICKET_PASSWORD"

func commands() []command {
	return []command{
		{name: "login", usage: "login --email EMAIL [--password PASSWORD]", summary: "Sign in and keep the session", flags: loginCmd},
		{name: "register", usage: "register --name NAME --email EMAIL [--phone PHONE] [--password PASSWORD]", summary: "Create an account and sign in", flags: registerCmd},
		{name: "logout", usage: "logout", summary: "Sign out and forget the stored session", flags: logoutCmd},
		{name: "whoami", usage: "whoami", summary: "Show the signed-in user", flags: whoamiCmd},
		{name: "search", usage: "search --from SOURCE --to DESTINATION --date YYYY-MM-DD", summary: "Find trips", flags: searchCmd},
		{name: "seats", usage: "seats --trip TRIP_ID", summary: "Show the seats that can be booked", flags: seatsCmd},
		{name: "book", usage: "book --trip TRIP_ID --seats 3,4 --passenger 'Name:Age:Gender' ...", summary: "Hold seats for payment", flags: bookCmd},
		{name: "pay", usage: "pay --booking BOOKING_ID --amount AMOUNT", summary: "Pay for a held booking", flags: payCmd},
		{name: "bookings", usage: "bookings [--paid BOOKING_ID] [--cached]", summary: "List your bookings", flags: bookingsCmd},
		{name: "cancel", usage: "cancel --booking BOOKING_ID [--reason REASON]", summary: "Cancel a booking", flags: cancelCmd},
		{name: "ticket", usage: "ticket --booking BOOKING_ID [--pdf FILE]", summary: "Show or download a ticket", flags: ticketCmd},
		{name: "reports", usage: "reports [--kind overview] [--start DATE] [--end DATE] [--out FILE]", summary: "Back-office reports (admin)", flags: reportsCmd},
	}
}

func loginCmd(fs *pflag.FlagSet) func(ctx context.Context, a *app) error {
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (default $"+PasswordEnv+")")

	return func(ctx context.Context, a *app) error {
		if *password == "" {
			*password = os.Getenv(PasswordEnv)
		}
		if *email == "" || *password == "" {
			return errors.New("--email and --password are required")
		}

		user, err := a.session.Login(ctx, *email, *password)
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as %s (%s)\n", displayName(user), user.Email)
		return nil
	}
}

func registerCmd(fs *pflag.FlagSet) func(ctx context.Context, a *app) error {
	var req models.RegisterRequest
	fs.StringVar(&req.Name, "name", "", "full name")
	fs.StringVar(&req.Email, "email", "", "account email")
	fs.StringVar(&req.Phone, "phone", "", "mobile number")
	fs.StringVar(&req.Password, "password", "", "account password (default $"+PasswordEnv+")")
	fs.StringVar(&req.InviteCode, "invite", "", "invite code")

	return func(ctx context.Context, a *app) error {
		if req.Password == "" {
			req.Password = os.Getenv(PasswordEnv)
		}
		if req.Name == "" || req.Email == "" || req.Password == "" {
			return errors.New("--name, --email and --password are required")
		}

		user, err := a.session.Register(ctx, req)
		if err != nil {
			return err
		}
		fmt.Printf("Registered and logged in as %s\n", displayName(user))
		return nil
	}
}

func logoutCmd(fs *pflag.FlagSet) func(ctx context.Context, a *app) error {
	return func(ctx context.Context, a *app) error {
		a.session.Logout(ctx)
		fmt.Println("Logged out")
		return nil
	}
}

func whoamiCmd(fs *pflag.FlagSet) func(ctx context.Context, a *app) error {
	asJSON := fs.Bool("json", false, "print the session as JSON")

	return func(ctx context.Context, a *app) error {
		snap := a.session.Snapshot()
		if *asJSON {
			return printJSON(snap)
		}
		if snap.User == nil {
			fmt.Println("Not logged in")
			return nil
		}
		fmt.Printf("%s <%s> role=%s\n", displayName(snap.User), snap.User.Email, snap.User.Role)
		if snap.ExpiresAt != nil {
			fmt.Printf("Token expires %s\n", snap.ExpiresAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	}
}

func searchCmd(fs *pflag.FlagSet) func(ctx context.Context, a *app) error {
	var req models.TripSearchRequest
	fs.StringVar(&req.Source, "from", "", "departure town")
	fs.StringVar(&req.Destination, "to", "", "arrival town")
	fs.StringVar(&req.TravelDate, "date", "", "travel date YYYY-MM-DD")
	fs.IntVar(&req.Passengers, "passengers", 1, "number of passengers")
	fs.StringVar(&req.BusType, "bus-type", "", "AC, NON_AC, SLEEPER...")

	return func(ctx context.Context, a *app) error {
		trips, err := a.trips.Search(ctx, req)
		if err != nil {
			return err
		}
		printTrips(trips)
		return nil
	}
}

func seatsCmd(fs *pflag.FlagSet) func(ctx context.Context, a *app) error {
	tripID := fs.String("trip", "", "trip id")

	return func(ctx context.Context, a *app) error {
		if *tripID == "" {
			return errors.New("--trip is required")
		}
		seatMap, err := a.seats.LoadSeats(ctx, models.ID(*tripID))
		if err != nil {
			return err
		}
		printSeats(seatMap)
		return nil
	}
}

func bookCmd(fs *pflag.FlagSet) func(ctx context.Context, a *app) error {
	var req services.SubmitRequest
	tripID := fs.String("trip", "", "trip id")
	fs.IntSliceVar(&req.SeatNumbers, "seats", nil, "seat numbers, comma separated")
	passengers := fs.StringArray("passenger", nil, "Name:Age:Gender, once per seat in seat order")
	fs.StringVar(&req.ContactPhone, "phone", "", "contact phone")
	fs.StringVar(&req.ContactEmail, "email", "", "contact email (default the account email)")
	fs.StringVar(&req.SpecialRequests, "note", "", "special requests")

	return func(ctx context.Context, a *app) error {
		user := a.session.CurrentUser()
		if user == nil {
			return services.ErrNoUser
		}

		req.TripID = models.ID(*tripID)
		for _, spec := range *passengers {
			p, err := parsePassenger(spec)
			if err != nil {
				return err
			}
			req.Passengers = append(req.Passengers, p)
		}
		if req.ContactEmail == "" {
			req.ContactEmail = user.Email
		}

		result, err := a.bookings.Submit(ctx, user, req)
		if err != nil {
			return err
		}
		fmt.Printf("Booking %s held: seats %s, total %.2f (%.2f per seat)\n",
			result.BookingID, joinInts(req.SeatNumbers), result.TotalAmount, result.FarePerSeat)
		fmt.Printf("Pay with: busticket pay --booking %s --amount %.2f\n", result.BookingID, result.TotalAmount)
		return nil
	}
}

func payCmd(fs *pflag.FlagSet) func(ctx context.Context, a *app) error {
	var req services.PayRequest
	bookingID := fs.String("booking", "", "booking id")
	fs.Float64Var(&req.Amount, "amount", 0, "amount to pay")
	fs.StringVar(&req.PaymentMethod, "method", "", "UPI, CREDIT_CARD, DEBIT_CARD, NET_BANKING, WALLET or CASH")
	fs.StringVar(&req.PaymentGateway, "gateway", "", "INTERNAL, STRIPE, PAYPAL or RAZORPAY")
	fs.StringVar(&req.TransactionRef, "transaction", "", "transaction reference (generated when empty)")

	return func(ctx context.Context, a *app) error {
		user := a.session.CurrentUser()
		if user == nil {
			return services.ErrNoUser
		}
		req.BookingID = models.ID(*bookingID)

		result, err := a.payments.Pay(ctx, user, req)
		if err != nil {
			return err
		}
		if result.AlreadyConfirmed {
			fmt.Printf("Booking %s was already paid\n", req.BookingID)
		} else {
			fmt.Printf("Payment %s accepted for booking %s\n", result.TransactionRef, req.BookingID)
		}
		if result.TicketGenerated {
			fmt.Printf("Ticket ready: busticket ticket --booking %s\n", req.BookingID)
		}

		list, err := a.myBookings.LoadAfterPayment(ctx, user, req.BookingID)
		if err != nil {
			a.logger.WithError(err).Debug("Bookings reload after payment failed")
			return nil
		}
		printBookings(list)
		return nil
	}
}

func bookingsCmd(fs *pflag.FlagSet) func(ctx context.Context, a *app) error {
	paid := fs.String("paid", "", "booking id just paid; listed first")
	cached := fs.Bool("cached", false, "show the locally cached booking only")
	asJSON := fs.Bool("json", false, "print as JSON")

	return func(ctx context.Context, a *app) error {
		user := a.session.CurrentUser()
		if user == nil {
			return services.ErrNoUser
		}

		var (
			result *services.MyBookingsResult
			err    error
		)
		switch {
		case *cached:
			result = &services.MyBookingsResult{Bookings: a.myBookings.Cached(ctx, user), Source: services.SourceCache}
		case *paid != "":
			result, err = a.myBookings.LoadAfterPayment(ctx, user, models.ID(*paid))
		default:
			result, err = a.myBookings.Load(ctx, user)
		}
		if err != nil {
			return err
		}

		if *asJSON {
			return printJSON(result)
		}
		printBookings(result)
		return nil
	}
}

func cancelCmd(fs *pflag.FlagSet) func(ctx context.Context, a *app) error {
	bookingID := fs.String("booking", "", "booking id")
	reason := fs.String("reason", "", "cancellation reason")

	return func(ctx context.Context, a *app) error {
		user := a.session.CurrentUser()
		if user == nil {
			return services.ErrNoUser
		}
		if *bookingID == "" {
			return errors.New("--booking is required")
		}

		result, err := a.myBookings.Cancel(ctx, user, models.ID(*bookingID), *reason)
		if err != nil {
			return err
		}
		fmt.Printf("Booking %s cancelled\n", *bookingID)
		printBookings(result)
		return nil
	}
}

func ticketCmd(fs *pflag.FlagSet) func(ctx context.Context, a *app) error {
	bookingID := fs.String("booking", "", "booking id")
	pdfPath := fs.String("pdf", "", "write the printable ticket to this file ('.' for its default name)")

	return func(ctx context.Context, a *app) error {
		if *bookingID == "" {
			return errors.New("--booking is required")
		}
		id := models.ID(*bookingID)

		if *pdfPath == "" {
			view, err := a.tickets.GetForBooking(ctx, id)
			if err != nil {
				return err
			}
			printTicket(view)
			return nil
		}

		doc, err := a.tickets.DownloadPDF(ctx, id)
		if err != nil {
			return err
		}
		path := *pdfPath
		if path == "." {
			path = doc.Filename
		}
		if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Printf("Ticket written to %s\n", path)
		return nil
	}
}

func reportsCmd(fs *pflag.FlagSet) func(ctx context.Context, a *app) error {
	var r services.DateRange
	kind := fs.String("kind", "overview", "overview, dashboard, sales, occupancy, route-performance or daily")
	fs.StringVar(&r.Start, "start", "", "first day YYYY-MM-DD (default 30 days before --end)")
	fs.StringVar(&r.End, "end", "", "last day YYYY-MM-DD (default today)")
	date := fs.String("date", "", "day of the daily settlement (default today)")
	out := fs.String("out", "", "download the report document to this file")

	return func(ctx context.Context, a *app) error {
		if *out != "" {
			doc, err := a.reports.Download(ctx, r)
			if err != nil {
				return err
			}
			if err := os.WriteFile(*out, doc.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", *out, err)
			}
			fmt.Printf("Report written to %s\n", *out)
			return nil
		}

		var (
			report interface{}
			err    error
		)
		switch *kind {
		case "overview":
			report, err = a.reports.Overview(ctx, r)
		case "dashboard":
			report, err = a.reports.Dashboard(ctx)
		case "sales":
			report, err = a.reports.Sales(ctx, r)
		case "occupancy":
			report, err = a.reports.Occupancy(ctx, r)
		case "route-performance":
			report, err = a.reports.RoutePerformance(ctx, r)
		case "daily":
			report, err = a.reports.DailySettlement(ctx, *date)
		default:
			return fmt.Errorf("unknown report kind %q", *kind)
		}
		if err != nil {
			return err
		}
		return printJSON(report)
	}
}

// parsePassenger reads Name:Age:Gender
func parsePassenger(spec string) (models.Passenger, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return models.Passenger{}, fmt.Errorf("passenger %q must be Name:Age:Gender", spec)
	}
	age, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return models.Passenger{}, fmt.Errorf("passenger %q: age must be a number", spec)
	}
	return models.Passenger{
		Name:   strings.TrimSpace(parts[0]),
		Age:    age,
		Gender: models.Gender(strings.TrimSpace(parts[2])),
	}, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
