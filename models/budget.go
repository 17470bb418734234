package models

// BudgetConfig holds the cost limits enforced by the ledger.
// Limits are in currency units (USD). A zero limit means unlimited.
type BudgetConfig struct {
	// PerRequestLimit is the maximum estimated cost for a single call
	PerRequestLimit float64

	// DailyLimit is the maximum cumulative spend per day
	DailyLimit float64

	// WarningThreshold is the fraction of DailyLimit at which a warning
	// signal fires (non-fatal)
	WarningThreshold float64
}
