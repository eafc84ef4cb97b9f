package domain

const (
	TransactionTypeBuy  = "BUY"
	TransactionTypeSell = "SELL"

	// DefaultStartingCash is the simulated balance granted on registration.
	DefaultStartingCash = 500_000.0
)
