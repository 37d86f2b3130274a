package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/appointment-service/internal/domain"
	apperrors "github.com/spec-kit/appointment-service/pkg/util/errorutil"
)

type stubUsers map[int64]domain.User

func (s stubUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (s stubUsers) IsProvider(_ context.Context, id int64) (bool, error) {
	return s[id].Provider, nil
}

func (s stubUsers) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := s[id]
	return ok, nil
}

func testApp(mw *AuthMiddleware, extra ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
		},
	})
	handlers := append([]fiber.Handler{mw.Handle}, extra...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.User.Name)
	})
	app.Get("/me", handlers...)
	return app
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 10)
	token, exp, err := tm.GenerateToken(42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), exp, time.Minute)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)

	_, err = NewTokenManager("other", 10).ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenFallsBackToSubject(t *testing.T) {
	tm := NewTokenManager("secret", 10)
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	signed, err := raw.SignedString([]byte("secret"))
	require.NoError(t, err)

	claims, err := tm.ParseToken(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
}

func TestMiddlewareLoadsPrincipal(t *testing.T) {
	tm := NewTokenManager("secret", 10)
	app := testApp(NewAuthMiddleware(tm, stubUsers{1: {ID: 1, Name: "Ana"}}))
	token, _, err := tm.GenerateToken(1)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ana", string(body))
}

func TestMiddlewareRejections(t *testing.T) {
	tm := NewTokenManager("secret", 10)
	app := testApp(NewAuthMiddleware(tm, stubUsers{}))
	ghost, _, err := tm.GenerateToken(99)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"garbage":      "Bearer not-a-jwt",
		"unknown user": "Bearer " + ghost,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestRequireCustomerBlocksProviders(t *testing.T) {
	tm := NewTokenManager("secret", 10)
	users := stubUsers{1: {ID: 1, Name: "Ana"}, 2: {ID: 2, Name: "Bruno", Provider: true}}
	app := testApp(NewAuthMiddleware(tm, users), RequireCustomer())

	for id, want := range map[int64]int{1: http.StatusOK, 2: http.StatusUnauthorized} {
		token, _, err := tm.GenerateToken(id)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, "user %d", id)
	}
}

func TestRateLimiterPerCaller(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	assert.True(t, rl.Allow("user:1"))
	assert.True(t, rl.Allow("user:1"))
	assert.False(t, rl.Allow("user:1"))
	assert.True(t, rl.Allow("user:2"))

	rl.Sweep(time.Now().Add(time.Hour))
	assert.Empty(t, rl.clients)
}

func TestRateLimiterMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 10)
	rl := NewRateLimiter(1, 1)
	app := testApp(NewAuthMiddleware(tm, stubUsers{1: {ID: 1, Name: "Ana"}}), rl.Middleware())
	token, _, err := tm.GenerateToken(1)
	require.NoError(t, err)

	statuses := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, statuses)
}
