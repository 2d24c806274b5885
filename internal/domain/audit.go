package domain

import "time"

// ─── Audit Types ────────────────────────────────────────────────────────────
// Every state-changing operation appends exactly one audit event in the same
// transaction that applied it. The table is the durable record; the live feed
// is best-effort delivery on top of it.

// EventType is the business reason for an audit event.
type EventType string

const (
	EventBetCreated      EventType = "BET_CREATED"
	EventBetWon          EventType = "BET_WON"
	EventBetLost         EventType = "BET_LOST"
	EventBetExpired      EventType = "BET_EXPIRED"
	EventDeposit         EventType = "DEPOSIT"
	EventWithdrawal      EventType = "WITHDRAWAL"
	EventLimitsUpdated   EventType = "LIMITS_UPDATED"
	EventDelegateAdded   EventType = "DELEGATE_ADDED"
	EventDelegateRemoved EventType = "DELEGATE_REMOVED"
)

// AuditEvent is a single row in the append-only audit log.
//
// For BET_CREATED the payload carries the seed commitment hash — never the
// seed — so correlating listeners can match later reveals without learning
// the outcome early.
type AuditEvent struct {
	ID        string    `json:"id"`  // UUID
	Seq       int64     `json:"seq"` // Append order, assigned by the store
	Type      EventType `json:"type"`
	GameID    string    `json:"game_id,omitempty"`
	Asset     string    `json:"asset,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	Payload   string    `json:"payload,omitempty"` // JSON, event-type specific
	CreatedAt time.Time `json:"created_at"`
}
