package ledger

import "time"

// Operation names used for logging and metrics.
const (
	OpDeposit  = "deposit"
	OpReceive  = "receive"
	OpWithdraw = "withdraw"
	OpRename   = "rename"
	OpAbsorb   = "absorb_inflow"
)

const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// MetricsCollector defines the interface for collecting ledger metrics
type MetricsCollector interface {
	// Operation metrics
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)

	// Error metrics
	RecordError(operation, errType string)

	// Value metrics
	RecordTransaction(operation string, amount uint64)
	RecordCustodialTotal(total uint64)
}
