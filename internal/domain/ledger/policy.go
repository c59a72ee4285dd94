package ledger

// DefaultMinDeposit applies when a ledger is constructed without an explicit
// minimum.
const DefaultMinDeposit Amount = 1

// CapPolicy holds the limits fixed at construction.
type CapPolicy struct {
	MinDeposit  Amount
	WithdrawCap Amount
	BankCap     Amount
}

// ValidateConstruction checks withdrawCap > 0, bankCap > 0 and
// withdrawCap <= bankCap.
func ValidateConstruction(withdrawCap, bankCap Amount) error {
	if withdrawCap == 0 || bankCap == 0 || withdrawCap > bankCap {
		return ErrInvalidCap
	}
	return nil
}

func (p CapPolicy) ValidateDeposit(amount Amount) error {
	if amount < p.MinDeposit {
		return &InsufficientAmountError{Sent: amount, Min: p.MinDeposit}
	}
	return nil
}

// ValidateBankCeiling checks the custodial total a deposit would produce.
func (p CapPolicy) ValidateBankCeiling(prospectiveTotal Amount) error {
	if prospectiveTotal > p.BankCap {
		return &BankCapExceededError{NewBalance: prospectiveTotal, Cap: p.BankCap}
	}
	return nil
}

func (p CapPolicy) ValidateWithdrawCap(amount Amount) error {
	if amount > p.WithdrawCap {
		return &WithdrawCapExceededError{Requested: amount, Cap: p.WithdrawCap}
	}
	return nil
}
