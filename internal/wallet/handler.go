package wallet

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kobo-pay/kobo_pay/internal/ledger"
	"github.com/kobo-pay/kobo_pay/internal/money"
)

// Handler exposes wallet HTTP endpoints for the authenticated user.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type amountRequest struct {
	Amount json.RawMessage `json:"amount"`
}

type transferRequest struct {
	ToUserID int64           `json:"to_user_id"`
	Amount   json.RawMessage `json:"amount"`
}

// Balance returns the current user's balance, zero when no wallet exists.
func (h *Handler) Balance(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	balance, err := h.service.Balance(c.UserContext(), userID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"balance": balance})
}

// Fund credits the current user's wallet.
func (h *Handler) Fund(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.Fund(c.UserContext(), userID, decodeAmount(req.Amount)); err != nil {
		return domainError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Funded successfully"})
}

// Withdraw debits the current user's wallet.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.Withdraw(c.UserContext(), userID, decodeAmount(req.Amount)); err != nil {
		return domainError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Withdrawal processed"})
}

// Transfer moves funds from the current user to another user.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	userID, ok := currentUser(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	entry, err := h.service.Transfer(c.UserContext(), userID, req.ToUserID, decodeAmount(req.Amount))
	if err != nil {
		return domainError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message":     "Transfer successful",
		"transaction": entry,
	})
}

// decodeAmount preserves numeric precision by decoding the raw JSON value
// with json.Number instead of float64.
func decodeAmount(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	return v
}

func domainError(err error) error {
	switch {
	case errors.Is(err, money.ErrInvalidFormat),
		errors.Is(err, money.ErrNotPositive),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrSelfTransfer):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrWalletNotFound),
		errors.Is(err, ErrCounterpartyNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

func currentUser(c *fiber.Ctx) (int64, bool) {
	userID, ok := c.Locals("user_id").(int64)
	return userID, ok
}
