// Package treasury is the sole owner of the per-asset custody counters.
// Operator-facing operations (deposit, withdraw, limits) run their own
// transaction; the lock/settle helpers run inside the registry's transaction
// so a game record and its treasury delta commit as one unit.
//
// All arithmetic is checked. An underflow is a broken-books condition and
// aborts the whole transaction — nothing clamps.
package treasury

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/parlor-network/parlor/internal/domain"
	"github.com/parlor-network/parlor/internal/infra/observability"
	"github.com/parlor-network/parlor/internal/infra/sqlite"
)

// Ledger applies operator-controlled treasury operations.
type Ledger struct {
	db     *sqlite.DB
	notify func(domain.AuditEvent)
}

// NewLedger creates a treasury ledger over the store.
func NewLedger(db *sqlite.DB) *Ledger {
	return &Ledger{db: db}
}

// SetNotify installs a best-effort callback invoked after each committed
// operation, used for the live audit feed.
func (l *Ledger) SetNotify(fn func(domain.AuditEvent)) { l.notify = fn }

// ─── Operator Operations ────────────────────────────────────────────────────

// Deposit moves operator funds into custody: custodied and treasury both
// grow by amount.
func (l *Ledger) Deposit(asset string, amount int64) (err error) {
	defer func() { observability.RecordOp("deposit", err) }()
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	var event domain.AuditEvent
	err = l.db.WithTx(func(tx *sqlite.Tx) error {
		cur, err := tx.GetTreasury(asset)
		if err != nil {
			return err
		}
		if cur.Custodied, err = domain.CheckedAdd(cur.Custodied, amount); err != nil {
			return err
		}
		if cur.Treasury, err = domain.CheckedAdd(cur.Treasury, amount); err != nil {
			return err
		}
		if err := tx.PutTreasury(cur); err != nil {
			return err
		}
		observability.SetLiquidity(cur)
		event = auditEvent(domain.EventDeposit, "", asset, amount, nil)
		_, err = tx.AppendEvent(event)
		return err
	})
	if err != nil {
		return err
	}
	log.Printf("[treasury] deposit asset=%s amount=%d", asset, amount)
	l.publish(event)
	return nil
}

// Withdraw moves operator funds out of custody. Locked funds are never
// touchable: the request fails if amount exceeds treasury minus locked.
func (l *Ledger) Withdraw(asset string, amount int64, recipient string) (err error) {
	defer func() { observability.RecordOp("withdraw", err) }()
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	var event domain.AuditEvent
	err = l.db.WithTx(func(tx *sqlite.Tx) error {
		cur, err := tx.GetTreasury(asset)
		if err != nil {
			return err
		}
		if amount > cur.Available() {
			return fmt.Errorf("withdraw %d of %d available: %w", amount, cur.Available(), domain.ErrInsufficientAvailable)
		}
		if cur.Treasury, err = domain.CheckedSub(cur.Treasury, amount); err != nil {
			return err
		}
		if cur.Custodied, err = domain.CheckedSub(cur.Custodied, amount); err != nil {
			return err
		}
		if err := tx.PutTreasury(cur); err != nil {
			return err
		}
		observability.SetLiquidity(cur)
		event = auditEvent(domain.EventWithdrawal, "", asset, amount,
			map[string]string{"recipient": recipient})
		_, err = tx.AppendEvent(event)
		return err
	})
	if err != nil {
		return err
	}
	log.Printf("[treasury] withdraw asset=%s amount=%d recipient=%s", asset, amount, recipient)
	l.publish(event)
	return nil
}

// SetLimits updates the per-asset bet bounds. max = 0 means unbounded.
func (l *Ledger) SetLimits(asset string, min, max int64) (err error) {
	defer func() { observability.RecordOp("set_limits", err) }()
	if min < 0 || max < 0 {
		return domain.ErrInvalidLimits
	}
	if max != 0 && min > max {
		return fmt.Errorf("min %d > max %d: %w", min, max, domain.ErrInvalidLimits)
	}

	var event domain.AuditEvent
	err = l.db.WithTx(func(tx *sqlite.Tx) error {
		cur, err := tx.GetTreasury(asset)
		if err != nil {
			return err
		}
		cur.MinBet, cur.MaxBet = min, max
		if err := tx.PutTreasury(cur); err != nil {
			return err
		}
		event = auditEvent(domain.EventLimitsUpdated, "", asset, 0,
			map[string]int64{"min_bet": min, "max_bet": max})
		_, err = tx.AppendEvent(event)
		return err
	})
	if err != nil {
		return err
	}
	log.Printf("[treasury] limits asset=%s min=%d max=%d", asset, min, max)
	l.publish(event)
	return nil
}

// Snapshot returns the current per-asset counters.
func (l *Ledger) Snapshot(asset string) (domain.Liquidity, error) {
	return l.db.Liquidity(asset)
}

func (l *Ledger) publish(e domain.AuditEvent) {
	if l.notify != nil {
		l.notify(e)
	}
}

// ─── Registry-Internal Movements ────────────────────────────────────────────
// These run inside the registry's transaction and are never exposed to end
// users. The registry validates preconditions; these only move counters,
// failing on any arithmetic violation.

// LockBet pulls a bet into custody and reserves it: custodied += bet,
// locked += bet.
func LockBet(tx *sqlite.Tx, asset string, bet int64) error {
	cur, err := tx.GetTreasury(asset)
	if err != nil {
		return err
	}
	if cur.Custodied, err = domain.CheckedAdd(cur.Custodied, bet); err != nil {
		return err
	}
	if cur.Locked, err = domain.CheckedAdd(cur.Locked, bet); err != nil {
		return err
	}
	if err := tx.PutTreasury(cur); err != nil {
		return err
	}
	observability.SetLiquidity(cur)
	return nil
}

// SettleWin releases the bet and pays out. The player's own bet funds the
// first bet-worth of the payout; treasury liquidity covers only the excess,
// failing with ErrInsufficientTreasury if it cannot.
func SettleWin(tx *sqlite.Tx, asset string, bet, payout int64) error {
	cur, err := tx.GetTreasury(asset)
	if err != nil {
		return err
	}
	if payout > bet {
		excess := payout - bet
		if excess > cur.Treasury {
			return fmt.Errorf("excess %d over treasury %d: %w", excess, cur.Treasury, domain.ErrInsufficientTreasury)
		}
		if cur.Treasury, err = domain.CheckedSub(cur.Treasury, excess); err != nil {
			return err
		}
	}
	if cur.Locked, err = domain.CheckedSub(cur.Locked, bet); err != nil {
		return err
	}
	if cur.Custodied, err = domain.CheckedSub(cur.Custodied, payout); err != nil {
		return err
	}
	if err := tx.PutTreasury(cur); err != nil {
		return err
	}
	observability.SetLiquidity(cur)
	observability.RecordPayout(asset, payout)
	return nil
}

// SettleForfeit releases the bet into operator liquidity — the movement
// shared by loss resolutions and expiry: locked -= bet, treasury += bet.
func SettleForfeit(tx *sqlite.Tx, asset string, bet int64) error {
	cur, err := tx.GetTreasury(asset)
	if err != nil {
		return err
	}
	if cur.Locked, err = domain.CheckedSub(cur.Locked, bet); err != nil {
		return err
	}
	if cur.Treasury, err = domain.CheckedAdd(cur.Treasury, bet); err != nil {
		return err
	}
	if err := tx.PutTreasury(cur); err != nil {
		return err
	}
	observability.SetLiquidity(cur)
	return nil
}

// ─── Audit Helpers ──────────────────────────────────────────────────────────

func auditEvent(typ domain.EventType, gameID, asset string, amount int64, payload any) domain.AuditEvent {
	e := domain.AuditEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		GameID:    gameID,
		Asset:     asset,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			e.Payload = string(data)
		}
	}
	return e
}
