// Package errors maps ledger failures to the stable codes and HTTP statuses
// returned by the API.
package errors

import (
	stderrors "errors"
	"net/http"

	"custody/internal/domain/ledger"
)

// DomainError is an API-facing error with a stable machine-readable code.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

var (
	ErrInvalidRequest = &DomainError{
		Code:    "INVALID_REQUEST",
		Message: "invalid request",
		Status:  http.StatusBadRequest,
	}
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "invalid amount",
		Status:  http.StatusBadRequest,
	}
	ErrInvalidAddress = &DomainError{
		Code:    "INVALID_ADDRESS",
		Message: "invalid address",
		Status:  http.StatusBadRequest,
	}
	ErrInternal = &DomainError{
		Code:    "INTERNAL_ERROR",
		Message: "internal error",
		Status:  http.StatusInternalServerError,
	}
)

var ledgerErrors = map[string]struct {
	code   string
	status int
}{
	"unauthorized":          {"UNAUTHORIZED", http.StatusForbidden},
	"insufficient_amount":   {"INSUFFICIENT_AMOUNT", http.StatusUnprocessableEntity},
	"insufficient_balance":  {"INSUFFICIENT_BALANCE", http.StatusUnprocessableEntity},
	"withdraw_cap_exceeded": {"WITHDRAW_CAP_EXCEEDED", http.StatusUnprocessableEntity},
	"bank_cap_exceeded":     {"BANK_CAP_EXCEEDED", http.StatusUnprocessableEntity},
	"zero_address":          {"ZERO_ADDRESS", http.StatusBadRequest},
	"invalid_cap":           {"INVALID_CAP", http.StatusBadRequest},
	"amount_overflow":       {"AMOUNT_OVERFLOW", http.StatusUnprocessableEntity},
	"transfer_failed":       {"TRANSFER_FAILED", http.StatusBadGateway},
	"not_initialized":       {"NOT_INITIALIZED", http.StatusServiceUnavailable},
	"already_initialized":   {"ALREADY_INITIALIZED", http.StatusConflict},
}

// FromLedger converts err into a DomainError. Rejections keep their message;
// anything unrecognised becomes ErrInternal so storage details never leak.
func FromLedger(err error) *DomainError {
	if err == nil {
		return nil
	}
	var de *DomainError
	if stderrors.As(err, &de) {
		return de
	}

	kind := ledger.ErrorKind(err)
	mapped, ok := ledgerErrors[kind]
	if !ok {
		return &DomainError{Code: ErrInternal.Code, Message: ErrInternal.Message, Status: ErrInternal.Status, Err: err}
	}
	return &DomainError{Code: mapped.code, Message: err.Error(), Status: mapped.status, Err: err}
}
