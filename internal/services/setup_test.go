package services

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/config"
	"github.com/smarttransit/busticket-client/internal/gateway"
	"github.com/smarttransit/busticket-client/internal/models"
	"github.com/smarttransit/busticket-client/internal/state"
)

type staticSession struct {
	token string
}

func (s *staticSession) AccessToken() string { return s.token }

func (s *staticSession) RenewAccessToken(ctx context.Context, rejected string) (string, error) {
	return "", gateway.ErrSessionExpired
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// setupServiceTest starts a fake backend whose routes are registered on a gin
// engine and returns an API client pointed at it plus an in-memory vault
func setupServiceTest(t *testing.T, register func(r *gin.RouterGroup)) (*gateway.API, *state.Vault) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	register(router.Group("/api/v1"))

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	client := gateway.NewClient(config.APIConfig{
		BaseURL: server.URL + "/api/v1",
		Timeout: 5 * time.Second,
	}, testLogger())

	return gateway.NewAPI(client), state.NewVault(state.NewMemoryStore(), "test")
}

func authedContext() context.Context {
	return gateway.WithSession(context.Background(), &staticSession{token: "token"})
}

func testUser() *models.User {
	return &models.User{ID: "7", Name: "Nimal Perera", Email: "nimal@example.com", Role: models.RoleUser}
}
