// busticket is the terminal client of the bus ticket reservation API.
//
// The session lives in the configured state backend (STATE_BACKEND), so a
// login made by one invocation is used by the next. The memory backend
// forgets everything when the process exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/config"
	"github.com/smarttransit/busticket-client/internal/gateway"
	"github.com/smarttransit/busticket-client/internal/services"
	"github.com/smarttransit/busticket-client/internal/session"
	"github.com/smarttransit/busticket-client/internal/state"
	"github.com/smarttransit/busticket-client/pkg/validator"
	"github.com/spf13/pflag"
)

const homeCountryCode = "94"

// command is one subcommand of the CLI
type command struct {
	name    string
	usage   string
	summary string
	flags   func(fs *pflag.FlagSet) func(ctx context.Context, a *app) error
}

// app holds the wiring shared by every command
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	backend *state.Backend
	vault   *state.Vault
	api     *gateway.API
	session *session.Store

	trips      *services.TripService
	seats      *services.SeatService
	bookings   *services.BookingService
	payments   *services.PaymentService
	myBookings *services.MyBookingsService
	tickets    *services.TicketService
	reports    *services.ReportService
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", describe(err))
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return nil
	}

	cmd, ok := lookup(args[0])
	if !ok {
		printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}

	fs := pflag.NewFlagSet("busticket "+cmd.name, pflag.ContinueOnError)
	verbose := fs.BoolP("verbose", "v", false, "log backend calls to stderr")
	action := cmd.flags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: busticket %s\n\n%s\n\nFlags:\n%s", cmd.usage, cmd.summary, fs.FlagUsages())
	}
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, *verbose)
	if err != nil {
		return err
	}
	defer a.backend.Close()

	// backend calls authenticate as the stored session
	return action(gateway.WithSession(ctx, a.session), a)
}

func newApp(ctx context.Context, verbose bool) (*app, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	backend, err := state.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s state backend: %w", cfg.State.Backend, err)
	}
	if backend.Name == config.StateBackendMemory {
		logger.Warn("STATE_BACKEND is memory; the session will not outlive this command")
	}

	vault := state.NewVault(backend.Store, cfg.State.Namespace)
	api := gateway.NewAPI(gateway.NewClient(cfg.API, logger))

	store := session.NewStore(api.Auth, vault, logger)
	if err := store.Init(ctx); err != nil {
		backend.Close()
		return nil, err
	}

	v := validator.New(homeCountryCode)
	return &app{
		cfg:        cfg,
		logger:     logger,
		backend:    backend,
		vault:      vault,
		api:        api,
		session:    store,
		trips:      services.NewTripService(api, logger),
		seats:      services.NewSeatService(api, cfg.Booking.DefaultSeatCapacity, logger),
		bookings:   services.NewBookingService(api, vault, v, logger),
		payments:   services.NewPaymentService(api, vault, cfg.Booking, logger),
		myBookings: services.NewMyBookingsService(api, vault, logger),
		tickets:    services.NewTicketService(api, logger),
		reports:    services.NewReportService(api, logger),
	}, nil
}

func lookup(name string) (command, bool) {
	for _, cmd := range commands() {
		if cmd.name == name {
			return cmd, true
		}
	}
	return command{}, false
}

func isHelp(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}

func printUsage() {
	cmds := commands()
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].name < cmds[j].name })

	var b strings.Builder
	b.WriteString("Usage: busticket <command> [flags]\n\nCommands:\n")
	for _, cmd := range cmds {
		fmt.Fprintf(&b, "  %-10s %s\n", cmd.name, cmd.summary)
	}
	b.WriteString("\nRun 'busticket <command> --help' for the flags of a command.\n")
	fmt.Fprint(os.Stderr, b.String())
}

// describe turns an error into the sentence shown to the user
func describe(err error) string {
	var (
		validationErr *services.ValidationError
		sessionErr    *session.Error
		bookingErr    *services.BookingError
		paymentErr    *services.PaymentError
		networkErr    *gateway.NetworkError
	)

	switch {
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.Is(err, gateway.ErrSessionExpired):
		return "your session has expired, run 'busticket login' again"
	case errors.Is(err, services.ErrNoUser):
		return "not logged in, run 'busticket login' first"
	case errors.As(err, &sessionErr):
		return sessionErr.Message
	case errors.As(err, &bookingErr):
		return bookingErr.Message
	case errors.As(err, &paymentErr):
		return paymentErr.Message
	case errors.As(err, &networkErr):
		return "could not reach the booking server: " + networkErr.Err.Error()
	default:
		return gateway.UserMessage(err, err.Error())
	}
}
