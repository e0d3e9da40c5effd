package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/compat"
	"github.com/smarttransit/busticket-client/internal/gateway"
	"github.com/smarttransit/busticket-client/internal/models"
	"github.com/smarttransit/busticket-client/internal/state"
)

// Sources of a my-bookings list, in the order they are tried
const (
	SourceMine    = "my"
	SourceByUser  = "user"
	SourceAll     = "all"
	SourceTickets = "tickets"
	SourceCache   = "cache"
	SourceNone    = "none"
)

const partialLoadWarning = "Some bookings could not be loaded."

// BookingEntry is a booking in the list. Stale entries come from the local
// cache or an earlier load, not from this read of the server.
type BookingEntry struct {
	*models.Booking
	Stale bool `json:"stale"`
}

// MyBookingsResult is one load of the current user's bookings
type MyBookingsResult struct {
	Bookings []BookingEntry `json:"bookings"`
	Source   string         `json:"source"`
	Warning  string         `json:"warning,omitempty"`
}

// MyBookingsService assembles the user's bookings from whichever endpoint
// answers, falling back to the locally cached booking
type MyBookingsService struct {
	api    *gateway.API
	vault  *state.Vault
	logger *logrus.Logger

	mu    sync.Mutex
	lists map[models.ID][]BookingEntry
}

// NewMyBookingsService creates a new MyBookingsService
func NewMyBookingsService(api *gateway.API, vault *state.Vault, logger *logrus.Logger) *MyBookingsService {
	return &MyBookingsService{
		api:    api,
		vault:  vault,
		logger: logger,
		lists:  make(map[models.ID][]BookingEntry),
	}
}

// Cached returns the cached recent booking of user without any backend call
func (s *MyBookingsService) Cached(ctx context.Context, user *models.User) []BookingEntry {
	if entry, ok := s.cachedEntry(ctx, user); ok {
		return []BookingEntry{entry}
	}
	return nil
}

// Load reconciles the user's bookings. Sources are tried in order and only
// while the previous ones returned nothing.
func (s *MyBookingsService) Load(ctx context.Context, user *models.User) (*MyBookingsResult, error) {
	return s.load(ctx, user, nil)
}

// LoadAfterPayment fetches the just-paid booking first and keeps it at the
// head of the list, replacing any stale copy
func (s *MyBookingsService) LoadAfterPayment(ctx context.Context, user *models.User, bookingID models.ID) (*MyBookingsResult, error) {
	if user == nil {
		return nil, ErrNoUser
	}

	booking, err := s.api.Bookings.Get(ctx, bookingID)
	if err != nil {
		if isSessionExpired(err) {
			return nil, err
		}
		s.logger.WithError(err).WithField("booking_id", bookingID).Warn("Failed to fetch paid booking")
		return s.load(ctx, user, nil)
	}
	if booking == nil {
		s.logger.WithField("booking_id", bookingID).Warn("Paid booking fetch returned no booking")
		return s.load(ctx, user, nil)
	}

	if err := s.vault.SaveRecentBooking(ctx, state.RecentBooking{UserID: user.ID, Booking: booking}); err != nil {
		s.logger.WithError(err).Warn("Failed to cache paid booking")
	}

	pinned := BookingEntry{Booking: booking}
	s.mu.Lock()
	s.lists[user.ID] = dedupe([]BookingEntry{pinned}, s.lists[user.ID])
	s.mu.Unlock()

	return s.load(ctx, user, &pinned)
}

// Reset forgets every in-memory list. It runs on logout.
func (s *MyBookingsService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists = make(map[models.ID][]BookingEntry)
}

// Cancel cancels a booking, marks it CANCELLED locally and reloads
func (s *MyBookingsService) Cancel(ctx context.Context, user *models.User, bookingID models.ID, reason string) (*MyBookingsResult, error) {
	if user == nil {
		return nil, ErrNoUser
	}
	if strings.TrimSpace(reason) == "" {
		reason = models.DefaultCancelReason
	}

	if err := s.api.Bookings.Cancel(ctx, bookingID, reason); err != nil {
		if isSessionExpired(err) {
			return nil, err
		}
		s.logger.WithError(err).WithField("booking_id", bookingID).Warn("Cancellation failed")
		return nil, &BookingError{Message: gateway.UserMessage(err, "Failed to cancel booking."), Err: err}
	}

	s.markCancelled(user.ID, bookingID)
	if _, err := s.vault.MarkRecentBookingCancelled(ctx, bookingID); err != nil {
		s.logger.WithError(err).Warn("Failed to update cached booking")
	}

	s.logger.WithField("booking_id", bookingID).Info("Booking cancelled")

	result, err := s.Load(ctx, user)
	if err != nil {
		return nil, err
	}

	// The cancel call succeeded; a list endpoint lagging behind does not undo it
	result.Bookings = s.markCancelled(user.ID, bookingID)
	return result, nil
}

// markCancelled sets CANCELLED on the in-memory copy and returns the list
func (s *MyBookingsService) markCancelled(userID, bookingID models.ID) []BookingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[userID]
	for i, entry := range list {
		if entry.ID == bookingID && entry.Status.Normalize() != models.BookingStatusCancelled {
			cancelled := *entry.Booking
			cancelled.Status = models.BookingStatusCancelled
			list[i].Booking = &cancelled
		}
	}
	return append([]BookingEntry(nil), list...)
}

func (s *MyBookingsService) load(ctx context.Context, user *models.User, pinned *BookingEntry) (*MyBookingsResult, error) {
	if user == nil {
		return nil, ErrNoUser
	}

	seed, seeded := s.cachedEntry(ctx, user)

	found, source, warning, err := s.fetch(ctx, user)
	if err != nil {
		return nil, err
	}

	if len(found) == 0 && seeded {
		found, source = []BookingEntry{seed}, SourceCache
	}

	s.mu.Lock()
	previous := markStale(s.lists[user.ID])
	var groups [][]BookingEntry
	if pinned != nil {
		groups = append(groups, []BookingEntry{*pinned})
	}
	groups = append(groups, found)
	if seeded {
		groups = append(groups, []BookingEntry{seed})
	}
	groups = append(groups, previous)
	merged := dedupe(groups...)
	s.lists[user.ID] = merged
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"source":  source,
		"count":   len(merged),
	}).Debug("Bookings loaded")

	return &MyBookingsResult{
		Bookings: append([]BookingEntry(nil), merged...),
		Source:   source,
		Warning:  warning,
	}, nil
}

// fetch walks the endpoints in order and stops at the first non-empty one
func (s *MyBookingsService) fetch(ctx context.Context, user *models.User) ([]BookingEntry, string, string, error) {
	var warnings []string

	// 1. Current-user endpoint
	bookings, err := s.api.Bookings.Mine(ctx)
	if err != nil {
		if isSessionExpired(err) {
			return nil, "", "", err
		}
		s.logger.WithError(err).Debug("GET /bookings/my failed")
	}
	if len(bookings) > 0 {
		return fresh(bookings), SourceMine, "", nil
	}

	// 2. Bookings by user id
	if !user.ID.IsZero() {
		bookings, err = s.api.Bookings.ByUser(ctx, user.ID)
		if err != nil {
			if isSessionExpired(err) {
				return nil, "", "", err
			}
			s.logger.WithError(err).Debug("GET /bookings/user failed")
		}
		if len(bookings) > 0 {
			return fresh(bookings), SourceByUser, "", nil
		}
	}

	// 3. All bookings, for privileged callers
	bookings, err = s.api.Bookings.All(ctx)
	if err != nil {
		if isSessionExpired(err) {
			return nil, "", "", err
		}
		if !accessDenied(err) {
			warnings = append(warnings, gateway.UserMessage(err, partialLoadWarning))
		}
	}
	if owned := ownedBy(bookings, user.ID); len(owned) > 0 {
		return fresh(owned), SourceAll, "", nil
	}

	// 4. Tickets, newest per booking
	tickets, err := s.api.Tickets.All(ctx)
	if err != nil {
		if isSessionExpired(err) {
			return nil, "", "", err
		}
		if !accessDenied(err) {
			warnings = append(warnings, gateway.UserMessage(err, partialLoadWarning))
		}
	}
	if fromTickets := bookingsFromTickets(tickets, user.ID); len(fromTickets) > 0 {
		return fresh(fromTickets), SourceTickets, "", nil
	}

	warning := ""
	if len(warnings) > 0 {
		warning = warnings[0]
	}
	return nil, SourceNone, warning, nil
}

// cachedEntry returns the cached booking when it belongs to user
func (s *MyBookingsService) cachedEntry(ctx context.Context, user *models.User) (BookingEntry, bool) {
	if user == nil || user.ID.IsZero() {
		return BookingEntry{}, false
	}

	recent, err := s.vault.LoadRecentBooking(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Cached booking unreadable")
		return BookingEntry{}, false
	}
	if recent == nil || recent.Booking == nil || recent.Booking.ID.IsZero() {
		return BookingEntry{}, false
	}

	owner := recent.UserID
	if owner.IsZero() {
		owner = recent.Booking.OwnerID()
	}
	if owner != user.ID {
		return BookingEntry{}, false
	}

	booking := *recent.Booking
	return BookingEntry{Booking: &booking, Stale: true}, true
}

// accessDenied reports a refusal of a privilege-gated endpoint
func accessDenied(err error) bool {
	return gateway.IsStatus(err, 401, 403) || gateway.MessageContains(err, "access denied", "forbidden")
}

func fresh(bookings []models.Booking) []BookingEntry {
	entries := make([]BookingEntry, len(bookings))
	for i := range bookings {
		b := bookings[i]
		entries[i] = BookingEntry{Booking: &b}
	}
	return entries
}

func ownedBy(bookings []models.Booking, userID models.ID) []models.Booking {
	var owned []models.Booking
	for _, b := range bookings {
		if !userID.IsZero() && b.OwnerID() == userID {
			owned = append(owned, b)
		}
	}
	return owned
}

// bookingsFromTickets maps each booking's newest ticket back to the booking
func bookingsFromTickets(tickets []models.Ticket, userID models.ID) []models.Booking {
	type latest struct {
		ticket  *models.Ticket
		booking models.Booking
	}

	seen := make(map[models.ID]bool)
	var picked []latest
	for _, t := range tickets {
		id := t.BookingID()
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true

		ticket, ok := compat.LatestTicketFor(tickets, id)
		if !ok || ticket.Booking == nil {
			continue
		}
		// GET /tickets lists every user's tickets; keep only bookings known to be ours
		if userID.IsZero() || ticket.Booking.OwnerID() != userID {
			continue
		}
		picked = append(picked, latest{ticket: ticket, booking: *ticket.Booking})
	}

	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].ticket.IssuedOrCreated().After(picked[j].ticket.IssuedOrCreated())
	})

	bookings := make([]models.Booking, len(picked))
	for i, p := range picked {
		bookings[i] = p.booking
	}
	return bookings
}

func markStale(entries []BookingEntry) []BookingEntry {
	stale := make([]BookingEntry, len(entries))
	for i, e := range entries {
		stale[i] = BookingEntry{Booking: e.Booking, Stale: true}
	}
	return stale
}

// dedupe concatenates groups keeping the first entry of each booking id
func dedupe(groups ...[]BookingEntry) []BookingEntry {
	seen := make(map[models.ID]bool)
	var merged []BookingEntry
	for _, group := range groups {
		for _, e := range group {
			if e.Booking == nil || seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			merged = append(merged, e)
		}
	}
	return merged
}
