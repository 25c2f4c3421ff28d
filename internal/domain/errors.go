package domain

import "errors"

// Sentinel errors for domain-level error handling. Callers branch with
// errors.Is; rejection callbacks receive their wrapped, human-readable
// messages.
var (
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientPosition = errors.New("insufficient position")
	ErrNoLiquidity          = errors.New("no liquidity available")
	ErrUnknownSymbol        = errors.New("unknown symbol")
)

// ValidationError represents a submission contract violation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
