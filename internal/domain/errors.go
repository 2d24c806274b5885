package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. Every rejection of
// an operation maps onto exactly one of these; no partial effects persist.

var (
	// Validation errors
	ErrInvalidBet    = errors.New("bet amount outside configured limits")
	ErrInvalidPayout = errors.New("payout amount must be positive")
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrInvalidLimits = errors.New("minimum bet exceeds maximum bet")

	// State conflicts
	ErrGameExists      = errors.New("game id already exists")
	ErrGameNotFound    = errors.New("game does not exist")
	ErrGameNotActive   = errors.New("game is not active")
	ErrGameStillActive = errors.New("game is still within its active window")

	// Authorization errors
	ErrInvalidSignature = errors.New("signature does not recover to the trusted signer")
	ErrSignatureExpired = errors.New("signature deadline has passed")
	ErrNotGamePlayer    = errors.New("caller is not the game's player")
	ErrNotOperator      = errors.New("caller is not the operator")

	// Liquidity errors
	ErrInsufficientFunds     = errors.New("insufficient available funds to accept bet")
	ErrInsufficientTreasury  = errors.New("insufficient treasury funds to cover payout")
	ErrInsufficientAvailable = errors.New("insufficient available funds for withdrawal")

	// Fairness errors
	ErrInvalidSeed = errors.New("revealed seed does not match stored commitment")

	// Internal invariant violations — never caused by caller input
	ErrLedgerConsistency = errors.New("ledger consistency violation")
)

// Code returns the machine-readable kind for an error, so monitoring can
// tell fraud attempts (bad signature, bad seed) from capacity exhaustion.
// Unrecognized errors report as INTERNAL.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidBet):
		return "INVALID_BET"
	case errors.Is(err, ErrInvalidPayout):
		return "INVALID_PAYOUT"
	case errors.Is(err, ErrInvalidAmount):
		return "INVALID_AMOUNT"
	case errors.Is(err, ErrInvalidLimits):
		return "INVALID_LIMITS"
	case errors.Is(err, ErrGameExists):
		return "GAME_EXISTS"
	case errors.Is(err, ErrGameNotFound):
		return "GAME_NOT_FOUND"
	case errors.Is(err, ErrGameNotActive):
		return "GAME_NOT_ACTIVE"
	case errors.Is(err, ErrGameStillActive):
		return "GAME_STILL_ACTIVE"
	case errors.Is(err, ErrInvalidSignature):
		return "INVALID_SIGNATURE"
	case errors.Is(err, ErrSignatureExpired):
		return "SIGNATURE_EXPIRED"
	case errors.Is(err, ErrNotGamePlayer):
		return "NOT_GAME_PLAYER"
	case errors.Is(err, ErrNotOperator):
		return "NOT_OPERATOR"
	case errors.Is(err, ErrInsufficientFunds):
		return "INSUFFICIENT_FUNDS"
	case errors.Is(err, ErrInsufficientTreasury):
		return "INSUFFICIENT_TREASURY"
	case errors.Is(err, ErrInsufficientAvailable):
		return "INSUFFICIENT_AVAILABLE"
	case errors.Is(err, ErrInvalidSeed):
		return "INVALID_SEED"
	case errors.Is(err, ErrLedgerConsistency):
		return "LEDGER_CONSISTENCY"
	default:
		return "INTERNAL"
	}
}
