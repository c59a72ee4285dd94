package handlers

import (
	"encoding/json"
	"errors"

	"custody/internal/domain/ledger"
	apperrors "custody/internal/errors"
	"custody/internal/logger"
	"custody/internal/middleware"
	ledgerservice "custody/internal/services/ledger"
	"custody/internal/utils"
	"custody/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultEventsLimit = 50
	maxEventsLimit     = 500
)

type LedgerHandler struct {
	ledgerService ledgerservice.Service
	log           *logger.Logger
}

func NewLedgerHandler(ledgerService ledgerservice.Service, log *logger.Logger) *LedgerHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &LedgerHandler{
		ledgerService: ledgerService,
		log:           log,
	}
}

func (h *LedgerHandler) Deposit(c *fiber.Ctx) error {
	caller, ok := middleware.Caller(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input validation.DepositRequest
	if err := c.BodyParser(&input); err != nil {
		return h.respondError(c, parseError(err))
	}

	ev, err := h.ledgerService.Deposit(c.UserContext(), caller, ledger.Amount(input.Amount))
	if err != nil {
		return h.respondError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"message": "Deposit accepted",
		"event":   ev,
	})
}

func (h *LedgerHandler) Withdraw(c *fiber.Ctx) error {
	caller, ok := middleware.Caller(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input validation.WithdrawRequest
	if err := c.BodyParser(&input); err != nil {
		return h.respondError(c, parseError(err))
	}
	if v := validation.ValidateWithdrawRequest(input); !v.Valid() {
		return respondInvalid(c, apperrors.ErrInvalidAddress, v)
	}

	ev, err := h.ledgerService.Withdraw(c.UserContext(), caller, ledger.Amount(input.Amount), ledger.Address(input.To))
	if err != nil {
		return h.respondError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"message": "Withdrawal successful",
		"event":   ev,
	})
}

func (h *LedgerHandler) RenameBank(c *fiber.Ctx) error {
	caller, ok := middleware.Caller(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input validation.RenameRequest
	if err := c.BodyParser(&input); err != nil {
		return h.respondError(c, parseError(err))
	}
	if v := validation.ValidateRenameRequest(input); !v.Valid() {
		return respondInvalid(c, apperrors.ErrInvalidRequest, v)
	}

	ev, err := h.ledgerService.RenameBank(c.UserContext(), caller, input.Name)
	if err != nil {
		return h.respondError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"message": "Bank renamed",
		"event":   ev,
	})
}

func (h *LedgerHandler) GetBalance(c *fiber.Ctx) error {
	account := c.Params("account")
	if v := validation.ValidateAccount(account); !v.Valid() {
		return respondInvalid(c, apperrors.ErrInvalidAddress, v)
	}
	return h.balance(c, ledger.Address(account))
}

func (h *LedgerHandler) GetMyBalance(c *fiber.Ctx) error {
	caller, ok := middleware.Caller(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}
	return h.balance(c, caller)
}

func (h *LedgerHandler) balance(c *fiber.Ctx, account ledger.Address) error {
	balance, err := h.ledgerService.BalanceOf(c.UserContext(), account)
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"account": account,
		"balance": balance,
	})
}

func (h *LedgerHandler) GetStats(c *fiber.Ctx) error {
	st, err := h.ledgerService.Snapshot(c.UserContext())
	if err != nil {
		return h.respondError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"name":            st.Name,
		"owner":           st.Owner,
		"custodial_total": st.Custodied,
		"total_deposited": st.TotalDeposited,
		"deposit_count":   st.DepositCount,
		"withdraw_count":  st.WithdrawCount,
		"withdraw_cap":    st.WithdrawCap,
		"bank_cap":        st.BankCap,
		"min_deposit":     st.MinDeposit,
	})
}

func (h *LedgerHandler) GetEvents(c *fiber.Ctx) error {
	cursor := utils.GetCursor(c, defaultEventsLimit, maxEventsLimit)

	events, err := h.ledgerService.Events(c.UserContext(), cursor.After, cursor.Limit)
	if err != nil {
		return h.respondError(c, err)
	}

	var next *utils.Cursor
	if len(events) > 0 {
		next = cursor.Next(events[len(events)-1].Seq, len(events))
	}
	return utils.Success(c, utils.NewPaginatedResponse(events, next))
}

func (h *LedgerHandler) respondError(c *fiber.Ctx, err error) error {
	de := apperrors.FromLedger(err)
	if de.Status >= fiber.StatusInternalServerError {
		h.log.Error("ledger request failed", "path", c.Path(), "error", err)
	}
	return utils.Error(c, de.Status, de.Code, de.Message)
}

// parseError maps a body decoding failure. A malformed amount gets its own
// code; anything else is an invalid request.
func parseError(err error) *apperrors.DomainError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field == "amount" {
		return apperrors.ErrInvalidAmount
	}
	return apperrors.ErrInvalidRequest
}

func respondInvalid(c *fiber.Ctx, de *apperrors.DomainError, v *validation.Validator) error {
	return utils.Respond(c, de.Status, fiber.Map{
		"error":  de.Message,
		"code":   de.Code,
		"fields": v.Errors,
	})
}
