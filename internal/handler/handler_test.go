package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/service"
	"github.com/dafibh/fortuna/vault-backend/internal/testutil"
	"github.com/dafibh/fortuna/vault-backend/internal/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type testServer struct {
	e           *echo.Echo
	clock       *testutil.FakeClock
	ledger      *service.LedgerService
	goals       *service.GoalService
	investments *service.InvestmentService
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc {
	return next
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	clock := testutil.NewFakeClock(testNow)
	ledger := service.NewLedgerService(nil, nil, clock, zerolog.Nop(), service.DefaultLedgerConfig())
	goals := service.NewGoalService(ledger)
	investments := service.NewInvestmentService(ledger)

	e := echo.New()
	RegisterRoutes(e, Handlers{
		Ledger:     NewLedgerHandler(ledger, service.NewExportService(ledger)),
		Goal:       NewGoalHandler(goals),
		Investment: NewInvestmentHandler(investments),
		Metrics:    NewMetricsHandler(service.NewMetricsService(ledger), service.NewAutomationService(ledger)),
		WebSocket:  NewWebSocketHandler(websocket.NewHub(), nil),
	}, passThrough)

	return &testServer{e: e, clock: clock, ledger: ledger, goals: goals, investments: investments}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetails {
	t.Helper()
	var problem ProblemDetails
	decodeJSON(t, rec, &problem)
	return problem
}

func decimalOf(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
