// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import (
	"fmt"
	"time"
)

// ─── Game Types ─────────────────────────────────────────────────────────────

// GameStatus is the lifecycle state of a wager.
// ACTIVE is the only non-terminal state; transitions are one-way.
type GameStatus string

const (
	GameActive  GameStatus = "ACTIVE"
	GameWon     GameStatus = "WON"
	GameLost    GameStatus = "LOST"
	GameExpired GameStatus = "EXPIRED"
)

// Terminal reports whether the status admits no further transitions.
func (s GameStatus) Terminal() bool {
	return s == GameWon || s == GameLost || s == GameExpired
}

// Game is a single wager tracked from creation to terminal resolution.
type Game struct {
	ID           string     `json:"id"`            // Caller-supplied, unique forever
	Seq          int64      `json:"seq"`           // Internal monotonic sequence number
	SeedHash     string     `json:"seed_hash"`     // Hex keccak256 commitment to the arbiter's seed
	Player       string     `json:"player"`        // 0x address entitled to the payout
	Asset        string     `json:"asset"`         // Fungible token symbol
	BetAmount    int64      `json:"bet_amount"`    // Smallest unit; immutable once set
	PayoutAmount int64      `json:"payout_amount"` // 0 until the game is WON
	Status       GameStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	SettledAt    *time.Time `json:"settled_at,omitempty"`
	RevealedSeed string     `json:"revealed_seed,omitempty"` // Hex preimage of SeedHash, set on win/loss
	Extra        string     `json:"extra,omitempty"`         // Opaque correlation payload, never interpreted
}

// ExpiresAt returns the instant the game becomes eligible for
// permissionless expiry.
func (g Game) ExpiresAt(window time.Duration) time.Time {
	return g.CreatedAt.Add(window)
}

// ─── Treasury Types ─────────────────────────────────────────────────────────

// Liquidity is a per-asset snapshot of the custody counters.
//
// Custodied is every unit the engine holds for the asset. Treasury is the
// operator-owned share (deposits plus net house edge). Locked is the sum of
// BetAmount over ACTIVE games. Invariant: 0 ≤ Locked ≤ Custodied.
type Liquidity struct {
	Asset     string `json:"asset"`
	Custodied int64  `json:"custodied"`
	Treasury  int64  `json:"treasury"`
	Locked    int64  `json:"locked"`
	MinBet    int64  `json:"min_bet"`
	MaxBet    int64  `json:"max_bet"` // 0 means unbounded
}

// Available is the operator's withdrawable capacity: Treasury minus Locked,
// floored at zero.
func (l Liquidity) Available() int64 {
	if l.Locked >= l.Treasury {
		return 0
	}
	return l.Treasury - l.Locked
}

// Headroom is the spare custody capacity that gates new bets:
// Custodied minus Locked, floored at zero.
func (l Liquidity) Headroom() int64 {
	if l.Locked >= l.Custodied {
		return 0
	}
	return l.Custodied - l.Locked
}

// ─── Checked Arithmetic ─────────────────────────────────────────────────────
// Every counter mutation goes through these. An out-of-range result is a
// ledger-consistency violation and must abort the surrounding transaction.

// CheckedAdd returns a+b or ErrLedgerConsistency on overflow.
func CheckedAdd(a, b int64) (int64, error) {
	if b > 0 && a > maxInt64-b {
		return 0, fmt.Errorf("%w: %d + %d overflows", ErrLedgerConsistency, a, b)
	}
	if b < 0 && a < minInt64-b {
		return 0, fmt.Errorf("%w: %d + %d underflows", ErrLedgerConsistency, a, b)
	}
	return a + b, nil
}

// CheckedSub returns a-b, failing with ErrLedgerConsistency if the result
// would be negative. Counters never go below zero; a negative result means
// the books are broken, not that clamping is wanted.
func CheckedSub(a, b int64) (int64, error) {
	if b < 0 || b > a {
		return 0, fmt.Errorf("%w: %d - %d out of range", ErrLedgerConsistency, a, b)
	}
	return a - b, nil
}

const (
	maxInt64 = int64(^uint64(0) >> 1)
	minInt64 = -maxInt64 - 1
)
