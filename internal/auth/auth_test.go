package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/atendimento-service/internal/domain"
	"github.com/spec-kit/atendimento-service/internal/repository"
	apperrors "github.com/spec-kit/atendimento-service/pkg/util/errorutil"
)

type mockAgents struct {
	GetByIDFunc func(ctx context.Context, id string) (*domain.Agent, error)
}

func (m *mockAgents) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	return m.GetByIDFunc(ctx, id)
}

func testApp(tokens *TokenManager, agents AgentLookup, guard fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	mw := NewAuthMiddleware(tokens, agents)
	app.Get("/me", mw.Handle, guard, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.Actor())
	})
	return app
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("s3cret", 30)
	agent := &domain.Agent{ID: "a-1", Email: "ana@example.com", Role: domain.AgentRoleSupervisor}

	token, exp, err := tm.GenerateToken(agent)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "a-1", claims.Subject)
	assert.Equal(t, domain.AgentRoleSupervisor, claims.Role)

	_, err = NewTokenManager("other", 30).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	tm := NewTokenManager("s3cret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := tm.GenerateToken(&domain.Agent{ID: "a-1"})
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "hunter22"))
	assert.Error(t, ComparePassword(hash, "wrong"))
}

func TestMiddleware(t *testing.T) {
	tm := NewTokenManager("s3cret", 30)
	agents := map[string]*domain.Agent{
		"a-1": {ID: "a-1", Email: "ana@example.com", Role: domain.AgentRoleAgent, Active: true},
		"a-2": {ID: "a-2", Email: "old@example.com", Role: domain.AgentRoleAdmin, Active: false},
		"a-3": {ID: "a-3", Email: "root@example.com", Role: domain.AgentRoleAdmin, Active: true},
	}
	lookup := &mockAgents{GetByIDFunc: func(_ context.Context, id string) (*domain.Agent, error) {
		if a, ok := agents[id]; ok {
			return a, nil
		}
		return nil, repository.ErrNotFound
	}}
	tokenFor := func(id string) string {
		a := agents[id]
		if a == nil {
			a = &domain.Agent{ID: id}
		}
		tok, _, err := tm.GenerateToken(a)
		require.NoError(t, err)
		return tok
	}

	tests := []struct {
		name       string
		guard      fiber.Handler
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "missing header", guard: RequireAgent(), wantStatus: http.StatusUnauthorized},
		{name: "bad scheme", guard: RequireAgent(), header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", guard: RequireAgent(), header: "Bearer abc", wantStatus: http.StatusUnauthorized},
		{name: "unknown agent", guard: RequireAgent(), header: "Bearer " + tokenFor("ghost"), wantStatus: http.StatusUnauthorized},
		{name: "inactive agent", guard: RequireAgent(), header: "Bearer " + tokenFor("a-2"), wantStatus: http.StatusUnauthorized},
		{name: "agent ok", guard: RequireAgent(), header: "Bearer " + tokenFor("a-1"), wantStatus: http.StatusOK, wantBody: "ana@example.com"},
		{name: "admin only rejects agent", guard: RequireRole(domain.AgentRoleAdmin), header: "Bearer " + tokenFor("a-1"), wantStatus: http.StatusForbidden},
		{name: "admin only allows admin", guard: RequireRole(domain.AgentRoleAdmin), header: "Bearer " + tokenFor("a-3"), wantStatus: http.StatusOK, wantBody: "root@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testApp(tm, lookup, tt.guard)
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantBody != "" {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.wantBody, string(body))
			}
		})
	}
}
