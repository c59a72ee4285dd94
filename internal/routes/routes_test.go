package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"custody/internal/domain/ledger"
	"custody/internal/handlers"
	"custody/internal/metrics"
	"custody/internal/models"
	"custody/internal/repositories/memory"
	ledgerservice "custody/internal/services/ledger"
	"custody/internal/services/transfer"
	"custody/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testApp struct {
	app      *fiber.App
	registry *transfer.Registry
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	store := memory.New()
	_, err := ledgerservice.Initialize(context.Background(), store, ledger.Config{
		Name:        "Test Bank",
		Owner:       "0xowner",
		WithdrawCap: 250_000,
		BankCap:     10_000_000,
	})
	require.NoError(t, err)

	registry := transfer.NewRegistry()
	collector := metrics.NewCollector("test")
	svc := ledgerservice.NewService(store, transfer.NewGateway(registry, nil), nil, collector, nil)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(nil)})
	SetupRoutes(app, Dependencies{
		Ledger:    svc,
		JWTSecret: testSecret,
		Health: handlers.NewHealthHandler("test", map[string]handlers.HealthCheckFunc{
			"store": func(ctx context.Context) error {
				_, err := store.Load(ctx)
				return err
			},
		}, nil),
		Metrics: collector.Handler(),
	})
	return &testApp{app: app, registry: registry}
}

func token(t *testing.T, account string, permissions ...string) string {
	t.Helper()
	if len(permissions) == 0 {
		permissions = models.GetDefaultPermissions()
	}
	tok, err := utils.GenerateToken(testSecret, account, permissions, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *testApp) do(t *testing.T, method, path, tok string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestLedgerRoutes_Auth(t *testing.T) {
	a := setupTestApp(t)

	status, body := a.do(t, http.MethodGet, "/api/ledger/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "missing authorization header", body["error"])

	status, _ = a.do(t, http.MethodGet, "/api/ledger/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	forged, err := utils.GenerateToken("other-secret", "0xalice", models.GetDefaultPermissions(), time.Hour)
	require.NoError(t, err)
	status, _ = a.do(t, http.MethodGet, "/api/ledger/me", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	readOnly := token(t, "0xalice", models.PermissionLedgerRead)
	status, _ = a.do(t, http.MethodPost, "/api/ledger/deposit", readOnly, map[string]uint64{"amount": 10})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestLedgerRoutes_DepositWithdraw(t *testing.T) {
	a := setupTestApp(t)
	alice := token(t, "0xalice")

	status, body := a.do(t, http.MethodPost, "/api/ledger/deposit", alice, map[string]uint64{"amount": 500})
	require.Equal(t, http.StatusOK, status)
	event := body["event"].(map[string]interface{})
	assert.Equal(t, "Deposited", event["type"])
	assert.Equal(t, float64(500), event["new_account_balance"])

	status, body = a.do(t, http.MethodPost, "/api/ledger/withdraw", alice, map[string]interface{}{"amount": 600, "to": "0xbob"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INSUFFICIENT_BALANCE", body["code"])

	status, body = a.do(t, http.MethodPost, "/api/ledger/withdraw", alice, map[string]interface{}{"amount": 300_000, "to": "0xbob"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "WITHDRAW_CAP_EXCEEDED", body["code"])

	status, body = a.do(t, http.MethodPost, "/api/ledger/withdraw", alice, map[string]interface{}{"amount": 100, "to": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ZERO_ADDRESS", body["code"])

	a.registry.Register("0xbroken", func(ctx context.Context, amount ledger.Amount) error {
		return errors.New("rejects value")
	})
	status, body = a.do(t, http.MethodPost, "/api/ledger/withdraw", alice, map[string]interface{}{"amount": 100, "to": "0xbroken"})
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "TRANSFER_FAILED", body["code"])

	status, body = a.do(t, http.MethodPost, "/api/ledger/withdraw", alice, map[string]interface{}{"amount": 200, "to": "0xbob"})
	require.Equal(t, http.StatusOK, status)
	event = body["event"].(map[string]interface{})
	assert.Equal(t, "Withdrawn", event["type"])
	assert.Equal(t, "0xbob", event["to"])
	assert.Equal(t, float64(300), event["new_account_balance"])
	assert.Equal(t, ledger.Amount(200), a.registry.Received("0xbob"))

	status, body = a.do(t, http.MethodGet, "/api/ledger/me", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(300), body["balance"])

	status, body = a.do(t, http.MethodGet, "/api/ledger/balance/0xalice", token(t, "0xbob"), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(300), body["balance"])

	status, body = a.do(t, http.MethodGet, "/api/ledger/stats", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(300), body["custodial_total"])
	assert.Equal(t, float64(1), body["deposit_count"])
	assert.Equal(t, float64(1), body["withdraw_count"])
	assert.Equal(t, "Test Bank", body["name"])
}

func TestLedgerRoutes_BadInput(t *testing.T) {
	a := setupTestApp(t)
	alice := token(t, "0xalice")

	status, body := a.do(t, http.MethodPost, "/api/ledger/deposit", alice, map[string]interface{}{"amount": -5})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_AMOUNT", body["code"])

	status, body = a.do(t, http.MethodPost, "/api/ledger/deposit", alice, map[string]interface{}{"amount": "ten"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_AMOUNT", body["code"])

	status, body = a.do(t, http.MethodPut, "/api/ledger/name", alice, map[string]interface{}{"name": 5})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_REQUEST", body["code"])

	status, body = a.do(t, http.MethodPost, "/api/ledger/deposit", alice, map[string]uint64{"amount": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INSUFFICIENT_AMOUNT", body["code"])

	status, body = a.do(t, http.MethodPost, "/api/ledger/withdraw", alice, map[string]interface{}{"amount": 1, "to": "0x b"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_ADDRESS", body["code"])
	assert.Contains(t, body["fields"], "to")
}

func TestErrorHandler(t *testing.T) {
	a := setupTestApp(t)
	a.app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("connection reset by peer")
	})
	a.app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	status, body := a.do(t, http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, body["error"])

	status, body = a.do(t, http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body["error"])

	status, body = a.do(t, http.MethodGet, "/teapot", "", nil)
	assert.Equal(t, http.StatusTeapot, status)
	assert.Equal(t, "short and stout", body["error"])
}

func TestLedgerRoutes_Rename(t *testing.T) {
	a := setupTestApp(t)

	status, body := a.do(t, http.MethodPut, "/api/ledger/name", token(t, "0xowner"), map[string]string{"name": "X"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "X", body["event"].(map[string]interface{})["new_name"])

	status, body = a.do(t, http.MethodPut, "/api/ledger/name", token(t, "0xalice"), map[string]string{"name": "Y"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "UNAUTHORIZED", body["code"])

	_, body = a.do(t, http.MethodGet, "/api/ledger/stats", token(t, "0xalice"), nil)
	assert.Equal(t, "X", body["name"])
}

func TestLedgerRoutes_Events(t *testing.T) {
	a := setupTestApp(t)
	alice := token(t, "0xalice")
	for i := 0; i < 3; i++ {
		status, _ := a.do(t, http.MethodPost, "/api/ledger/deposit", alice, map[string]uint64{"amount": 10})
		require.Equal(t, http.StatusOK, status)
	}

	status, body := a.do(t, http.MethodGet, "/api/ledger/events?limit=2", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 2)
	next := body["next"].(map[string]interface{})
	assert.Equal(t, float64(2), next["after"])

	status, body = a.do(t, http.MethodGet, "/api/ledger/events?after=2&limit=2", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)
	assert.Nil(t, body["next"])
}

func TestHealthAndMetrics(t *testing.T) {
	a := setupTestApp(t)

	status, body := a.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["stats"].(map[string]interface{})["store_balances"])

	_, _ = a.do(t, http.MethodPost, "/api/ledger/deposit", token(t, "0xalice"), map[string]uint64{"amount": 10})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `test_ledger_operations_total{operation="deposit",result="success"} 1`)
}

func TestLedgerRoutes_DrainedWithdrawalEvent(t *testing.T) {
	a := setupTestApp(t)
	alice := token(t, "0xalice")

	status, _ := a.do(t, http.MethodPost, "/api/ledger/deposit", alice, map[string]uint64{"amount": 10})
	require.Equal(t, http.StatusOK, status)
	status, _ = a.do(t, http.MethodPost, "/api/ledger/withdraw", alice, map[string]interface{}{"amount": 10, "to": "0xbob"})
	require.Equal(t, http.StatusOK, status)

	status, body := a.do(t, http.MethodGet, "/api/ledger/events?after=1", alice, nil)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	event := data[0].(map[string]interface{})
	assert.Equal(t, "Withdrawn", event["type"])
	require.Contains(t, event, "new_account_balance")
	require.Contains(t, event, "new_custodial_total")
	assert.Equal(t, float64(0), event["new_account_balance"])
	assert.Equal(t, float64(0), event["new_custodial_total"])
}
