package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kobo-pay/kobo_pay/internal/config"
	"github.com/kobo-pay/kobo_pay/internal/logging"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	app := fiber.New()
	cfg := config.Config{
		AppName:        "kobo_pay_test",
		AppEnv:         "test",
		JWTSecret:      "test-secret",
		AccessTokenTTL: time.Hour,
		IdempotencyTTL: time.Hour,
	}
	if err := Setup(app, Deps{Cfg: cfg, Logger: logging.Discard()}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func register(t *testing.T, app *fiber.App, name, email string) string {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"name":     name,
		"email":    email,
		"password": "hunter2",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d", email, resp.StatusCode)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("register %s: missing token", email)
	}
	return token
}

func TestWalletLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)

	alice := register(t, app, "Alice", "alice@example.com")
	bob := register(t, app, "Bob", "bob@example.com")

	// Fresh wallets start at zero.
	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/wallet/balance", alice, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("balance: status %d", resp.StatusCode)
	}
	if body["balance"] != "0.00" {
		t.Fatalf("balance = %v, want 0.00", body["balance"])
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/wallet/fund", alice, fiber.Map{"amount": "100.00"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fund: status %d", resp.StatusCode)
	}

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/wallet/transfer", alice, fiber.Map{
		"to_user_id": 2,
		"amount":     "40.00",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transfer: status %d body %v", resp.StatusCode, body)
	}

	_, body = doJSON(t, app, http.MethodGet, "/api/v1/wallet/balance", alice, nil)
	if body["balance"] != "60.00" {
		t.Fatalf("sender balance = %v, want 60.00", body["balance"])
	}
	_, body = doJSON(t, app, http.MethodGet, "/api/v1/wallet/balance", bob, nil)
	if body["balance"] != "40.00" {
		t.Fatalf("receiver balance = %v, want 40.00", body["balance"])
	}

	_, body = doJSON(t, app, http.MethodGet, "/api/v1/transactions/history", bob, nil)
	entries, ok := body["transactions"].([]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("receiver history = %v, want one entry", body["transactions"])
	}
}

func TestWalletRejectsBadRequests(t *testing.T) {
	app := newTestApp(t)
	alice := register(t, app, "Alice", "alice@example.com")

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/wallet/fund", alice, fiber.Map{"amount": "12.3.4"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed amount: status %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/wallet/withdraw", alice, fiber.Map{"amount": "5.00"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("overdraw: status %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/wallet/transfer", alice, fiber.Map{
		"to_user_id": 1,
		"amount":     "5.00",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("self transfer: status %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/wallet/transfer", alice, fiber.Map{
		"to_user_id": 99,
		"amount":     "5.00",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing counterparty: status %d", resp.StatusCode)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}
