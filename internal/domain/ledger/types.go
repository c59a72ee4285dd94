package ledger

import (
	"math/bits"
	"strings"
)

// Address identifies an account holder or a payout recipient.
type Address string

// ZeroAddress is the null identity.
const ZeroAddress Address = ""

var zeroHexAddress = "0x" + strings.Repeat("0", 40)

// IsZero reports whether a is the empty identity or the all-zero hex address.
func (a Address) IsZero() bool {
	s := strings.TrimSpace(string(a))
	return s == "" || strings.EqualFold(s, zeroHexAddress)
}

func (a Address) String() string {
	return string(a)
}

// Amount is a quantity of the native value unit. Arithmetic on it never wraps.
type Amount uint64

// Add returns a+b or ErrAmountOverflow.
func (a Amount) Add(b Amount) (Amount, error) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 {
		return 0, ErrAmountOverflow
	}
	return Amount(sum), nil
}

// Sub returns a-b or ErrAmountOverflow when b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	diff, borrow := bits.Sub64(uint64(a), uint64(b), 0)
	if borrow != 0 {
		return 0, ErrAmountOverflow
	}
	return Amount(diff), nil
}

// Config is the construction input of a ledger.
type Config struct {
	Name        string
	Owner       Address
	WithdrawCap Amount
	BankCap     Amount
	MinDeposit  Amount
}

// State is the full ledger-wide record: fixed configuration plus the
// aggregate counters.
type State struct {
	Name           string
	Owner          Address
	WithdrawCap    Amount
	BankCap        Amount
	MinDeposit     Amount
	TotalDeposited Amount
	DepositCount   uint64
	WithdrawCount  uint64
	Custodied      Amount
}

// NewState validates cfg and returns the initial state of a fresh ledger.
func NewState(cfg Config) (State, error) {
	if cfg.MinDeposit == 0 {
		cfg.MinDeposit = DefaultMinDeposit
	}
	if err := ValidateConstruction(cfg.WithdrawCap, cfg.BankCap); err != nil {
		return State{}, err
	}
	if cfg.Owner.IsZero() {
		return State{}, ErrZeroAddress
	}
	return State{
		Name:        cfg.Name,
		Owner:       cfg.Owner,
		WithdrawCap: cfg.WithdrawCap,
		BankCap:     cfg.BankCap,
		MinDeposit:  cfg.MinDeposit,
	}, nil
}

// Policy returns the cap policy fixed in the state.
func (s State) Policy() CapPolicy {
	return CapPolicy{
		MinDeposit:  s.MinDeposit,
		WithdrawCap: s.WithdrawCap,
		BankCap:     s.BankCap,
	}
}
