package sqlite

import (
	"database/sql"
	"fmt"
)

// ─── Delegate Key Operations ────────────────────────────────────────────────
// A signer address with registered delegate keys is treated as a
// contract-style wallet: any registered key may sign on its behalf.
// Addresses are stored lowercased hex.

// AddDelegate registers a delegate key for a signer. Idempotent.
func (t *Tx) AddDelegate(signer, delegate string) error {
	_, err := t.tx.Exec(`
		INSERT OR IGNORE INTO delegate_keys (signer, delegate, added_at)
		VALUES (?, ?, datetime('now'))
	`, signer, delegate)
	if err != nil {
		return fmt.Errorf("add delegate: %w", err)
	}
	return nil
}

// RemoveDelegate deregisters a delegate key for a signer.
func (t *Tx) RemoveDelegate(signer, delegate string) error {
	_, err := t.tx.Exec(`
		DELETE FROM delegate_keys WHERE signer = ? AND delegate = ?
	`, signer, delegate)
	if err != nil {
		return fmt.Errorf("remove delegate: %w", err)
	}
	return nil
}

const delegateSelect = `
	SELECT delegate FROM delegate_keys WHERE signer = ? ORDER BY added_at, delegate`

// Delegates lists the keys registered for a signer within the transaction.
// Signature verification runs inside the settlement transaction, and the
// pool holds a single connection, so the lookup must ride the open tx
// rather than check out a second connection.
func (t *Tx) Delegates(signer string) ([]string, error) {
	rows, err := t.tx.Query(delegateSelect, signer)
	if err != nil {
		return nil, fmt.Errorf("delegates: %w", err)
	}
	return scanDelegates(rows)
}

// Delegates lists the keys registered for a signer, oldest first.
func (db *DB) Delegates(signer string) ([]string, error) {
	rows, err := db.db.Query(delegateSelect, signer)
	if err != nil {
		return nil, fmt.Errorf("delegates: %w", err)
	}
	return scanDelegates(rows)
}

func scanDelegates(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
