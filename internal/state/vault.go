package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/smarttransit/busticket-client/internal/models"
)

const (
	keyToken         = "token"
	keyRefreshToken  = "refreshToken"
	keyUser          = "user"
	keyRecentBooking = "recentBooking"
)

// ErrMalformed is returned when a persisted value cannot be decoded
var ErrMalformed = errors.New("state: malformed value")

// Credentials is the persisted token pair
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// RecentBooking is the cached last booking of a user
type RecentBooking struct {
	UserID    models.ID       `json:"userId,omitempty"`
	BookingID models.ID       `json:"bookingId"`
	Booking   *models.Booking `json:"booking"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Vault reads and writes the typed client state of one namespace
type Vault struct {
	store     Store
	namespace string
}

// NewVault creates a vault over store; keys are scoped by namespace
func NewVault(store Store, namespace string) *Vault {
	return &Vault{store: store, namespace: namespace}
}

// Namespace returns the vault namespace
func (v *Vault) Namespace() string {
	return v.namespace
}

func (v *Vault) key(name string) string {
	if v.namespace == "" {
		return name
	}
	return v.namespace + "/" + name
}

// SaveCredentials persists the token pair. An empty refresh token removes the stored one.
func (v *Vault) SaveCredentials(ctx context.Context, creds Credentials) error {
	if err := v.store.Set(ctx, v.key(keyToken), []byte(creds.AccessToken)); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	if creds.RefreshToken == "" {
		return v.store.Delete(ctx, v.key(keyRefreshToken))
	}
	if err := v.store.Set(ctx, v.key(keyRefreshToken), []byte(creds.RefreshToken)); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

// LoadCredentials returns the stored token pair; missing values are empty
func (v *Vault) LoadCredentials(ctx context.Context) (Credentials, error) {
	var creds Credentials

	token, err := v.optional(ctx, keyToken)
	if err != nil {
		return creds, err
	}
	refresh, err := v.optional(ctx, keyRefreshToken)
	if err != nil {
		return creds, err
	}

	creds.AccessToken = string(token)
	creds.RefreshToken = string(refresh)
	return creds, nil
}

// SaveUser persists the signed-in user profile
func (v *Vault) SaveUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return v.store.Delete(ctx, v.key(keyUser))
	}
	return v.saveJSON(ctx, keyUser, user)
}

// LoadUser returns the stored user, nil if none. A value that does not decode returns ErrMalformed.
func (v *Vault) LoadUser(ctx context.Context) (*models.User, error) {
	var user models.User
	found, err := v.loadJSON(ctx, keyUser, &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// SaveRecentBooking caches the last booking
func (v *Vault) SaveRecentBooking(ctx context.Context, recent RecentBooking) error {
	if recent.BookingID.IsZero() && recent.Booking != nil {
		recent.BookingID = recent.Booking.ID
	}
	if recent.CreatedAt.IsZero() {
		recent.CreatedAt = time.Now()
	}
	return v.saveJSON(ctx, keyRecentBooking, recent)
}

// LoadRecentBooking returns the cached booking, nil if none
func (v *Vault) LoadRecentBooking(ctx context.Context) (*RecentBooking, error) {
	var recent RecentBooking
	found, err := v.loadJSON(ctx, keyRecentBooking, &recent)
	if err != nil || !found {
		return nil, err
	}
	return &recent, nil
}

// MarkRecentBookingCancelled flips the cached booking to CANCELLED when it matches bookingID
func (v *Vault) MarkRecentBookingCancelled(ctx context.Context, bookingID models.ID) (bool, error) {
	recent, err := v.LoadRecentBooking(ctx)
	if err != nil || recent == nil || recent.Booking == nil {
		return false, err
	}
	if recent.BookingID != bookingID && recent.Booking.ID != bookingID {
		return false, nil
	}

	recent.Booking.Status = models.BookingStatusCancelled
	return true, v.saveJSON(ctx, keyRecentBooking, recent)
}

// ClearRecentBooking removes the cached booking
func (v *Vault) ClearRecentBooking(ctx context.Context) error {
	return v.store.Delete(ctx, v.key(keyRecentBooking))
}

// Clear removes every key of the namespace
func (v *Vault) Clear(ctx context.Context) error {
	return v.store.Delete(ctx,
		v.key(keyToken),
		v.key(keyRefreshToken),
		v.key(keyUser),
		v.key(keyRecentBooking),
	)
}

func (v *Vault) optional(ctx context.Context, name string) ([]byte, error) {
	value, err := v.store.Get(ctx, v.key(name))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return value, nil
}

func (v *Vault) saveJSON(ctx context.Context, name string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := v.store.Set(ctx, v.key(name), data); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}

func (v *Vault) loadJSON(ctx context.Context, name string, out interface{}) (bool, error) {
	data, err := v.optional(ctx, name)
	if err != nil || len(data) == 0 {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	return true, nil
}
