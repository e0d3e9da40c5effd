package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/gateway"
	"github.com/smarttransit/busticket-client/internal/models"
	"github.com/smarttransit/busticket-client/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	mu           sync.Mutex
	loginResp    *models.AuthResponse
	loginErr     error
	registerReq  models.RegisterRequest
	refreshResp  *models.AuthResponse
	refreshErr   error
	refreshCalls int
	logoutCalls  int
}

func (f *fakeAuth) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	f.registerReq = req
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	return f.refreshResp, f.refreshErr
}

func (f *fakeAuth) Logout(ctx context.Context) error {
	f.logoutCalls++
	return errors.New("logout endpoint unavailable")
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func mintToken(t *testing.T, claims gojwt.MapClaims) string {
	t.Helper()
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func setupSessionTest(t *testing.T) (*Store, *fakeAuth, *state.Vault, *state.MemoryStore) {
	auth := &fakeAuth{}
	mem := state.NewMemoryStore()
	vault := state.NewVault(mem, "test")
	return NewStore(auth, vault, testLogger()), auth, vault, mem
}

func TestLogin_PersistsCredentials(t *testing.T) {
	store, auth, vault, _ := setupSessionTest(t)
	ctx := context.Background()

	auth.loginResp = &models.AuthResponse{
		Token:        "access",
		RefreshToken: "refresh",
		User:         &models.User{ID: "7", Name: "Nimal", Email: "nimal@example.com", Role: models.RoleUser},
	}

	user, err := store.Login(ctx, "nimal@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, models.ID("7"), user.ID)
	assert.Equal(t, StateLoggedIn, store.State())
	assert.Equal(t, "access", store.AccessToken())

	creds, err := vault.LoadCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access", creds.AccessToken)
	assert.Equal(t, "refresh", creds.RefreshToken)

	saved, err := vault.LoadUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Nimal", saved.Name)
}

func TestLogin_DerivesUserFromClaims(t *testing.T) {
	store, auth, _, _ := setupSessionTest(t)

	auth.loginResp = &models.AuthResponse{Token: mintToken(t, gojwt.MapClaims{
		"userId": 12,
		"email":  "admin@example.com",
		"role":   "ADMIN",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})}

	user, err := store.Login(context.Background(), "admin@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, models.ID("12"), user.ID)
	assert.True(t, user.HasRole(models.RoleAdmin))
}

func TestLogin_Failure(t *testing.T) {
	store, auth, _, _ := setupSessionTest(t)

	t.Run("Server message", func(t *testing.T) {
		auth.loginErr = &gateway.APIError{Kind: gateway.KindAuth, Status: http.StatusUnauthorized, Message: "Invalid email or password"}
		_, err := store.Login(context.Background(), "a@b.c", "bad")

		var sessionErr *Error
		require.ErrorAs(t, err, &sessionErr)
		assert.Equal(t, "Invalid email or password", sessionErr.Message)
		assert.Equal(t, StateLoggedOut, store.State())
	})

	t.Run("Default message", func(t *testing.T) {
		auth.loginErr = &gateway.NetworkError{Method: "POST", Path: "/auth/login", Err: errors.New("refused")}
		_, err := store.Login(context.Background(), "a@b.c", "bad")
		require.Error(t, err)
		assert.Equal(t, "Login failed", err.Error())
	})

	t.Run("Register default message", func(t *testing.T) {
		auth.loginErr = errors.New("boom")
		_, err := store.Register(context.Background(), models.RegisterRequest{Name: "N", InviteCode: "INV1"})
		require.Error(t, err)
		assert.Equal(t, "Registration failed", err.Error())
		assert.Equal(t, "INV1", auth.registerReq.InviteCode)
	})
}

func TestLogout_ClearsEverything(t *testing.T) {
	store, auth, vault, _ := setupSessionTest(t)
	ctx := context.Background()

	auth.loginResp = &models.AuthResponse{Token: "access", RefreshToken: "refresh", User: &models.User{ID: "7"}}
	_, err := store.Login(ctx, "a@b.c", "x")
	require.NoError(t, err)
	require.NoError(t, vault.SaveRecentBooking(ctx, state.RecentBooking{UserID: "7", Booking: &models.Booking{ID: "1"}}))

	fired := 0
	store.OnLogout(func() { fired++ })
	store.Logout(ctx)

	assert.Equal(t, StateLoggedOut, store.State())
	assert.Empty(t, store.AccessToken())
	assert.Nil(t, store.CurrentUser())
	assert.Equal(t, 1, fired)
	assert.Equal(t, 1, auth.logoutCalls)

	creds, err := vault.LoadCredentials(ctx)
	require.NoError(t, err)
	assert.Empty(t, creds.AccessToken)
	recent, err := vault.LoadRecentBooking(ctx)
	require.NoError(t, err)
	assert.Nil(t, recent)

	// Logging out twice is harmless
	store.Logout(ctx)
	assert.Equal(t, StateLoggedOut, store.State())
}

func TestInit(t *testing.T) {
	ctx := context.Background()

	t.Run("Restores session", func(t *testing.T) {
		store, _, vault, _ := setupSessionTest(t)
		require.NoError(t, vault.SaveCredentials(ctx, state.Credentials{AccessToken: "access", RefreshToken: "refresh"}))
		require.NoError(t, vault.SaveUser(ctx, &models.User{ID: "7"}))

		require.NoError(t, store.Init(ctx))
		assert.Equal(t, StateLoggedIn, store.State())
		assert.Equal(t, models.ID("7"), store.CurrentUser().ID)
	})

	t.Run("Malformed user logs out", func(t *testing.T) {
		store, _, vault, mem := setupSessionTest(t)
		require.NoError(t, vault.SaveCredentials(ctx, state.Credentials{AccessToken: "access"}))
		require.NoError(t, mem.Set(ctx, "test/user", []byte("{broken")))

		require.NoError(t, store.Init(ctx))
		assert.Equal(t, StateLoggedOut, store.State())

		creds, err := vault.LoadCredentials(ctx)
		require.NoError(t, err)
		assert.Empty(t, creds.AccessToken)
	})

	t.Run("Expired token without refresh token logs out", func(t *testing.T) {
		store, _, vault, _ := setupSessionTest(t)
		expired := mintToken(t, gojwt.MapClaims{"userId": 7, "exp": time.Now().Add(-time.Hour).Unix()})
		require.NoError(t, vault.SaveCredentials(ctx, state.Credentials{AccessToken: expired}))

		require.NoError(t, store.Init(ctx))
		assert.Equal(t, StateLoggedOut, store.State())
	})

	t.Run("Nothing stored", func(t *testing.T) {
		store, _, _, _ := setupSessionTest(t)
		require.NoError(t, store.Init(ctx))
		assert.Equal(t, StateLoggedOut, store.State())
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("Success keeps refresh token", func(t *testing.T) {
		store, auth, vault, _ := setupSessionTest(t)
		auth.loginResp = &models.AuthResponse{Token: "old", RefreshToken: "refresh", User: &models.User{ID: "7"}}
		_, err := store.Login(ctx, "a@b.c", "x")
		require.NoError(t, err)

		auth.refreshResp = &models.AuthResponse{Token: "new"}
		token, err := store.Refresh(ctx)
		require.NoError(t, err)
		assert.Equal(t, "new", token)

		creds, err := vault.LoadCredentials(ctx)
		require.NoError(t, err)
		assert.Equal(t, state.Credentials{AccessToken: "new", RefreshToken: "refresh"}, creds)
	})

	t.Run("Failure logs out", func(t *testing.T) {
		store, auth, _, _ := setupSessionTest(t)
		auth.loginResp = &models.AuthResponse{Token: "old", RefreshToken: "refresh", User: &models.User{ID: "7"}}
		_, err := store.Login(ctx, "a@b.c", "x")
		require.NoError(t, err)

		auth.refreshErr = errors.New("refresh token revoked")
		_, err = store.Refresh(ctx)
		assert.True(t, errors.Is(err, gateway.ErrSessionExpired))
		assert.Equal(t, StateLoggedOut, store.State())
	})

	t.Run("No refresh token", func(t *testing.T) {
		store, auth, _, _ := setupSessionTest(t)
		auth.loginResp = &models.AuthResponse{Token: "old", User: &models.User{ID: "7"}}
		_, err := store.Login(ctx, "a@b.c", "x")
		require.NoError(t, err)

		_, err = store.Refresh(ctx)
		assert.True(t, errors.Is(err, gateway.ErrSessionExpired))
		assert.Equal(t, 0, auth.refreshCalls)
	})
}

func TestRenewAccessToken_SkipsWhenAlreadyRenewed(t *testing.T) {
	store, auth, _, _ := setupSessionTest(t)
	ctx := context.Background()

	auth.loginResp = &models.AuthResponse{Token: "old", RefreshToken: "refresh", User: &models.User{ID: "7"}}
	_, err := store.Login(ctx, "a@b.c", "x")
	require.NoError(t, err)

	auth.refreshResp = &models.AuthResponse{Token: "new"}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := store.RenewAccessToken(ctx, "old")
			assert.NoError(t, err)
			assert.Equal(t, "new", token)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, auth.refreshCalls)
}

func TestExpiresWithin(t *testing.T) {
	store, auth, _, _ := setupSessionTest(t)
	assert.False(t, store.ExpiresWithin(time.Hour))

	auth.loginResp = &models.AuthResponse{
		Token: mintToken(t, gojwt.MapClaims{"userId": 1, "exp": time.Now().Add(time.Minute).Unix()}),
		User:  &models.User{ID: "1"},
	}
	_, err := store.Login(context.Background(), "a@b.c", "x")
	require.NoError(t, err)

	assert.True(t, store.ExpiresWithin(2*time.Minute))
	assert.False(t, store.ExpiresWithin(time.Second))
	assert.NotNil(t, store.Snapshot().ExpiresAt)
}
