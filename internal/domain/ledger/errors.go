package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInsufficientAmount  = errors.New("insufficient deposit amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrWithdrawCapExceeded = errors.New("withdraw cap exceeded")
	ErrBankCapExceeded     = errors.New("bank cap exceeded")
	ErrZeroAddress         = errors.New("zero address")
	ErrInvalidCap          = errors.New("invalid cap")
	ErrTransferFailed      = errors.New("transfer failed")
	ErrAmountOverflow      = errors.New("amount out of range")

	ErrNotInitialized     = errors.New("ledger not initialized")
	ErrAlreadyInitialized = errors.New("ledger already initialized")
)

// InsufficientAmountError is returned for deposits below the minimum.
type InsufficientAmountError struct {
	Sent Amount
	Min  Amount
}

func (e *InsufficientAmountError) Error() string {
	return fmt.Sprintf("%s: sent %d, min %d", ErrInsufficientAmount, e.Sent, e.Min)
}

func (e *InsufficientAmountError) Unwrap() error { return ErrInsufficientAmount }

type InsufficientBalanceError struct {
	Requested Amount
	Available Amount
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("%s: requested %d, available %d", ErrInsufficientBalance, e.Requested, e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

type WithdrawCapExceededError struct {
	Requested Amount
	Cap       Amount
}

func (e *WithdrawCapExceededError) Error() string {
	return fmt.Sprintf("%s: requested %d, cap %d", ErrWithdrawCapExceeded, e.Requested, e.Cap)
}

func (e *WithdrawCapExceededError) Unwrap() error { return ErrWithdrawCapExceeded }

// BankCapExceededError carries the custodial total the deposit would have
// produced.
type BankCapExceededError struct {
	NewBalance Amount
	Cap        Amount
}

func (e *BankCapExceededError) Error() string {
	return fmt.Sprintf("%s: new balance %d, cap %d", ErrBankCapExceeded, e.NewBalance, e.Cap)
}

func (e *BankCapExceededError) Unwrap() error { return ErrBankCapExceeded }

// TransferFailedError wraps the recipient-side failure of an outbound transfer.
type TransferFailedError struct {
	To     Address
	Amount Amount
	Err    error
}

func (e *TransferFailedError) Error() string {
	return fmt.Sprintf("%s: %d to %s: %v", ErrTransferFailed, e.Amount, e.To, e.Err)
}

func (e *TransferFailedError) Unwrap() []error { return []error{ErrTransferFailed, e.Err} }

// ErrorKind returns a stable snake_case label for err, used for metrics and
// API error codes. Unknown errors map to "internal".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInsufficientAmount):
		return "insufficient_amount"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrWithdrawCapExceeded):
		return "withdraw_cap_exceeded"
	case errors.Is(err, ErrBankCapExceeded):
		return "bank_cap_exceeded"
	case errors.Is(err, ErrZeroAddress):
		return "zero_address"
	case errors.Is(err, ErrInvalidCap):
		return "invalid_cap"
	case errors.Is(err, ErrAmountOverflow):
		return "amount_overflow"
	case errors.Is(err, ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, ErrAlreadyInitialized):
		return "already_initialized"
	default:
		return "internal"
	}
}

// IsRejection reports whether err is a policy rejection rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	switch ErrorKind(err) {
	case "", "internal", "not_initialized", "already_initialized":
		return false
	}
	return true
}
