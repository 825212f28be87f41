package http_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/atendimento-service/internal/api/http"
	"github.com/spec-kit/atendimento-service/internal/observability"
	apperrors "github.com/spec-kit/atendimento-service/pkg/util/errorutil"
)

type envelope struct {
	Error struct {
		Code      string `json:"code"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func middlewareApp(t *testing.T, metrics *observability.Metrics, handler fiber.Handler) *fiber.App {
	t.Helper()
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, zap.NewNop(), metrics, 50*time.Millisecond)
	app.Get("/probe", handler)
	return app
}

func probe(t *testing.T, app *fiber.App) (int, envelope, *http.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(observability.RequestIDHeader, "req-42")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}
	return resp.StatusCode, env, resp
}

func TestErrorEnvelope(t *testing.T) {
	metrics := observability.NewMetrics()
	app := middlewareApp(t, metrics, func(c *fiber.Ctx) error {
		return apperrors.NewConflict("ticket changed", nil)
	})

	status, env, resp := probe(t, app)

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)
	assert.Equal(t, "req-42", env.Error.RequestID)
	assert.Equal(t, "req-42", resp.Header.Get(observability.RequestIDHeader))
}

func TestRequestDeadline(t *testing.T) {
	app := middlewareApp(t, nil, func(c *fiber.Ctx) error {
		<-c.UserContext().Done()
		return c.UserContext().Err()
	})

	status, env, _ := probe(t, app)

	assert.Equal(t, http.StatusGatewayTimeout, status)
	assert.Equal(t, "TIMEOUT", env.Error.Code)
}

func TestPanicBecomesInternalError(t *testing.T) {
	app := middlewareApp(t, nil, func(c *fiber.Ctx) error {
		panic(errors.New("boom"))
	})

	status, env, _ := probe(t, app)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotEmpty(t, env.Error.Code)
}
