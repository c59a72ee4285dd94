package validation

const (
	// String lengths
	MaxAddressLength  = 128
	MaxBankNameLength = 128
)
