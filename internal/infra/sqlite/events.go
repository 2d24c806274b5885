package sqlite

import (
	"fmt"
	"time"

	"github.com/parlor-network/parlor/internal/domain"
)

// ─── Audit Log Operations ───────────────────────────────────────────────────

// AppendEvent appends an audit event within the transaction and returns its
// assigned sequence number. The log is append-only; nothing updates or
// deletes rows.
func (t *Tx) AppendEvent(e domain.AuditEvent) (int64, error) {
	res, err := t.tx.Exec(`
		INSERT INTO audit_events (id, type, game_id, asset, amount, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, string(e.Type), e.GameID, e.Asset, e.Amount, e.Payload,
		e.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}
	return res.LastInsertId()
}

// EventsAfter returns events with sequence numbers above `after`, oldest
// first — the indexer catch-up query.
func (db *DB) EventsAfter(after int64, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.db.Query(`
		SELECT seq, id, type, game_id, asset, amount, payload, created_at
		FROM audit_events WHERE seq > ? ORDER BY seq ASC LIMIT ?
	`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("events after: %w", err)
	}
	defer rows.Close()

	var result []domain.AuditEvent
	for rows.Next() {
		var (
			e          domain.AuditEvent
			typ        string
			createdStr string
		)
		if err := rows.Scan(&e.Seq, &e.ID, &typ, &e.GameID, &e.Asset, &e.Amount, &e.Payload, &createdStr); err != nil {
			return nil, err
		}
		e.Type = domain.EventType(typ)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		result = append(result, e)
	}
	return result, rows.Err()
}

// GameEvents returns the audit trail for one game, oldest first.
func (db *DB) GameEvents(gameID string) ([]domain.AuditEvent, error) {
	rows, err := db.db.Query(`
		SELECT seq, id, type, game_id, asset, amount, payload, created_at
		FROM audit_events WHERE game_id = ? ORDER BY seq ASC
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("game events: %w", err)
	}
	defer rows.Close()

	var result []domain.AuditEvent
	for rows.Next() {
		var (
			e          domain.AuditEvent
			typ        string
			createdStr string
		)
		if err := rows.Scan(&e.Seq, &e.ID, &typ, &e.GameID, &e.Asset, &e.Amount, &e.Payload, &createdStr); err != nil {
			return nil, err
		}
		e.Type = domain.EventType(typ)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		result = append(result, e)
	}
	return result, rows.Err()
}
