package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/parlor-network/parlor/internal/domain"
)

// ─── Treasury Operations ────────────────────────────────────────────────────
// The treasury row for an asset springs into existence with zeroed counters
// the first time it is read inside a transaction; there is no separate
// asset-registration step.

// GetTreasury reads an asset's counters within the transaction.
func (t *Tx) GetTreasury(asset string) (domain.Liquidity, error) {
	l := domain.Liquidity{Asset: asset}
	err := t.tx.QueryRow(`
		SELECT custodied, treasury, locked, min_bet, max_bet
		FROM treasury WHERE asset = ?
	`, asset).Scan(&l.Custodied, &l.Treasury, &l.Locked, &l.MinBet, &l.MaxBet)
	if err == sql.ErrNoRows {
		return l, nil
	}
	if err != nil {
		return l, fmt.Errorf("get treasury: %w", err)
	}
	return l, nil
}

// PutTreasury writes an asset's counters within the transaction.
func (t *Tx) PutTreasury(l domain.Liquidity) error {
	_, err := t.tx.Exec(`
		INSERT INTO treasury (asset, custodied, treasury, locked, min_bet, max_bet, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(asset) DO UPDATE SET
			custodied  = excluded.custodied,
			treasury   = excluded.treasury,
			locked     = excluded.locked,
			min_bet    = excluded.min_bet,
			max_bet    = excluded.max_bet,
			updated_at = datetime('now')
	`, l.Asset, l.Custodied, l.Treasury, l.Locked, l.MinBet, l.MaxBet)
	if err != nil {
		return fmt.Errorf("put treasury: %w", err)
	}
	return nil
}

// Liquidity returns the current snapshot for an asset. Unknown assets
// report zeroed counters rather than an error.
func (db *DB) Liquidity(asset string) (domain.Liquidity, error) {
	l := domain.Liquidity{Asset: asset}
	err := db.db.QueryRow(`
		SELECT custodied, treasury, locked, min_bet, max_bet
		FROM treasury WHERE asset = ?
	`, asset).Scan(&l.Custodied, &l.Treasury, &l.Locked, &l.MinBet, &l.MaxBet)
	if err == sql.ErrNoRows {
		return l, nil
	}
	if err != nil {
		return l, fmt.Errorf("liquidity: %w", err)
	}
	return l, nil
}

// Assets lists every asset with a treasury row.
func (db *DB) Assets() ([]string, error) {
	rows, err := db.db.Query(`SELECT asset FROM treasury ORDER BY asset`)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
