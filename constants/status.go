package constants

// RunStatus is the canonical status for a stored extraction run.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusSucceeded RunStatus = "SUCCEEDED" // full record, every stage ok
	RunStatusDegraded  RunStatus = "DEGRADED"  // record returned, recalibration or validation fell back
	RunStatusFailed    RunStatus = "FAILED"    // terminal failure, no record
)

// Batch item statuses as reported to callers.
const (
	ItemStatusSuccess = "success"
	ItemStatusError   = "error"
)
