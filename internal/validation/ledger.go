package validation

// WithdrawRequest is the body of a withdrawal.
type WithdrawRequest struct {
	Amount uint64 `json:"amount"`
	To     string `json:"to"`
}

// DepositRequest is the body of a deposit.
type DepositRequest struct {
	Amount uint64 `json:"amount"`
}

// RenameRequest is the body of a bank rename.
type RenameRequest struct {
	Name string `json:"name"`
}

func ValidateWithdrawRequest(req WithdrawRequest) *Validator {
	v := New()
	v.Address("to", req.To)
	return v
}

func ValidateRenameRequest(req RenameRequest) *Validator {
	v := New()
	v.MaxLength("name", req.Name, MaxBankNameLength)
	v.Printable("name", req.Name)
	return v
}

// ValidateAccount checks an account taken from a path parameter.
func ValidateAccount(account string) *Validator {
	v := New()
	v.Address("account", account)
	v.Check(account != "", "account", "must not be empty")
	return v
}
