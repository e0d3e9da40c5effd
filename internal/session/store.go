// Package session holds the signed-in identity of the client: tokens, the
// user profile and the LoggedOut -> LoggingIn -> LoggedIn lifecycle.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/gateway"
	"github.com/smarttransit/busticket-client/internal/models"
	"github.com/smarttransit/busticket-client/internal/state"
	"github.com/smarttransit/busticket-client/pkg/jwt"
)

// State of the session lifecycle
type State string

const (
	StateLoggedOut State = "LOGGED_OUT"
	StateLoggingIn State = "LOGGING_IN"
	StateLoggedIn  State = "LOGGED_IN"
)

const (
	defaultLoginMessage    = "Login failed"
	defaultRegisterMessage = "Registration failed"
)

// AuthAPI is the subset of the backend used by the store
type AuthAPI interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error)
	Logout(ctx context.Context) error
}

// Error is a failed login or registration with a message fit for the user
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Snapshot is a read-only view of the session
type Snapshot struct {
	State     State        `json:"state"`
	User      *models.User `json:"user,omitempty"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
}

// Store is safe for concurrent use and implements gateway.Session
type Store struct {
	auth      AuthAPI
	vault     *state.Vault
	inspector *jwt.Inspector
	logger    *logrus.Logger

	mu           sync.RWMutex
	state        State
	token        string
	refreshToken string
	user         *models.User
	listeners    []func()

	// serialises refresh round trips
	refreshMu sync.Mutex
}

// NewStore creates a logged-out store; call Init to restore persisted state
func NewStore(auth AuthAPI, vault *state.Vault, logger *logrus.Logger) *Store {
	return &Store{
		auth:      auth,
		vault:     vault,
		inspector: jwt.NewInspector(),
		logger:    logger,
		state:     StateLoggedOut,
	}
}

// Init restores the persisted session. Unreadable or unusable state logs out.
func (s *Store) Init(ctx context.Context) error {
	creds, err := s.vault.LoadCredentials(ctx)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	user, err := s.vault.LoadUser(ctx)
	if err != nil {
		if errors.Is(err, state.ErrMalformed) {
			s.logger.WithError(err).Warn("Persisted user is malformed, clearing session")
			s.Logout(ctx)
			return nil
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	if creds.AccessToken == "" {
		s.setState(StateLoggedOut)
		return nil
	}

	if s.inspector.IsTokenExpired(creds.AccessToken) && creds.RefreshToken == "" {
		s.logger.Info("Access token expired and no refresh token stored, clearing session")
		s.Logout(ctx)
		return nil
	}

	if user == nil {
		user = s.userFromToken(creds.AccessToken)
	}

	s.mu.Lock()
	s.token = creds.AccessToken
	s.refreshToken = creds.RefreshToken
	s.user = user
	s.state = StateLoggedIn
	s.mu.Unlock()

	s.logger.WithField("user_id", user.ID).Debug("Session restored")
	return nil
}

// Login signs in with email and password
func (s *Store) Login(ctx context.Context, email, password string) (*models.User, error) {
	return s.authenticate(ctx, "login", defaultLoginMessage, func() (*models.AuthResponse, error) {
		return s.auth.Login(ctx, models.LoginRequest{Email: email, Password: password})
	})
}

// Register creates an account and signs in with it
func (s *Store) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	return s.authenticate(ctx, "register", defaultRegisterMessage, func() (*models.AuthResponse, error) {
		return s.auth.Register(ctx, req)
	})
}

func (s *Store) authenticate(ctx context.Context, op, fallback string, exchange func() (*models.AuthResponse, error)) (*models.User, error) {
	previous := s.State()
	s.setState(StateLoggingIn)

	resp, err := exchange()
	if err == nil && (resp == nil || resp.Token == "") {
		err = errors.New("response carried no token")
	}
	if err != nil {
		s.setState(previous)
		s.logger.WithError(err).WithField("op", op).Warn("Authentication failed")
		return nil, &Error{Op: op, Message: gateway.UserMessage(err, fallback), Err: err}
	}

	user := resp.User
	if user == nil {
		user = s.userFromToken(resp.Token)
	}

	if err := s.persist(ctx, resp.Token, resp.RefreshToken, user); err != nil {
		s.setState(previous)
		return nil, &Error{Op: op, Message: fallback, Err: err}
	}

	s.mu.Lock()
	s.token = resp.Token
	s.refreshToken = resp.RefreshToken
	s.user = user
	s.state = StateLoggedIn
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"op":      op,
		"user_id": user.ID,
	}).Info("Signed in")

	return user, nil
}

// Logout clears all persisted identity state. It always succeeds.
func (s *Store) Logout(ctx context.Context) {
	if s.AccessToken() != "" {
		// Best effort; /auth calls never trigger a refresh
		if err := s.auth.Logout(gateway.WithSession(ctx, s)); err != nil {
			s.logger.WithError(err).Debug("Server logout failed")
		}
	}

	if err := s.vault.Clear(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to clear persisted session")
	}

	s.mu.Lock()
	s.token = ""
	s.refreshToken = ""
	s.user = nil
	s.state = StateLoggedOut
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Refresh exchanges the refresh token for a new access token. On failure
// the session is logged out and the error wraps gateway.ErrSessionExpired.
func (s *Store) Refresh(ctx context.Context) (string, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.refresh(ctx)
}

// RenewAccessToken implements gateway.Session
func (s *Store) RenewAccessToken(ctx context.Context, rejected string) (string, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if current := s.AccessToken(); current != "" && current != rejected {
		return current, nil
	}
	return s.refresh(ctx)
}

func (s *Store) refresh(ctx context.Context) (string, error) {
	s.mu.RLock()
	refreshToken := s.refreshToken
	s.mu.RUnlock()

	if refreshToken == "" {
		s.Logout(ctx)
		return "", fmt.Errorf("%w: no refresh token", gateway.ErrSessionExpired)
	}

	resp, err := s.auth.Refresh(ctx, refreshToken)
	if err == nil && (resp == nil || resp.Token == "") {
		err = errors.New("response carried no token")
	}
	if err != nil {
		s.logger.WithError(err).Warn("Token refresh failed, logging out")
		s.Logout(ctx)
		return "", fmt.Errorf("%w: %v", gateway.ErrSessionExpired, err)
	}

	s.mu.Lock()
	s.token = resp.Token
	if resp.RefreshToken != "" {
		s.refreshToken = resp.RefreshToken
	}
	if resp.User != nil {
		s.user = resp.User
	}
	s.state = StateLoggedIn
	token, refresh, user := s.token, s.refreshToken, s.user
	s.mu.Unlock()

	if err := s.persist(ctx, token, refresh, user); err != nil {
		s.logger.WithError(err).Error("Failed to persist refreshed token")
	}

	s.logger.Debug("Access token refreshed")
	return token, nil
}

// AccessToken implements gateway.Session
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// CurrentUser returns the signed-in user, nil when logged out
func (s *Store) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	user := *s.user
	return &user
}

// State returns the lifecycle state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LoggedIn reports whether a token is held
func (s *Store) LoggedIn() bool {
	return s.State() == StateLoggedIn
}

// HasRefreshToken reports whether the session can be renewed
func (s *Store) HasRefreshToken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken != ""
}

// ExpiresWithin reports whether the access token expires inside window
func (s *Store) ExpiresWithin(window time.Duration) bool {
	token := s.AccessToken()
	return token != "" && s.inspector.ExpiresWithin(token, window)
}

// Snapshot returns the current state, user and token expiry
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{State: s.State(), User: s.CurrentUser()}
	if token := s.AccessToken(); token != "" {
		if expiry, err := s.inspector.GetTokenExpiry(token); err == nil {
			snap.ExpiresAt = &expiry
		}
	}
	return snap
}

// OnLogout registers fn to run after every logout, including forced ones
func (s *Store) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *Store) persist(ctx context.Context, token, refreshToken string, user *models.User) error {
	if err := s.vault.SaveCredentials(ctx, state.Credentials{AccessToken: token, RefreshToken: refreshToken}); err != nil {
		return err
	}
	return s.vault.SaveUser(ctx, user)
}

// userFromToken derives a profile from the token claims
func (s *Store) userFromToken(token string) *models.User {
	user := &models.User{}
	claims, err := s.inspector.ExtractClaims(token)
	if err != nil {
		s.logger.WithError(err).Debug("Token claims unreadable")
		return user
	}
	user.ID = models.ID(claims.Identity())
	user.Name = claims.Name
	user.Email = claims.Email
	user.Role = claims.Role
	return user
}
