package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/parlor-network/parlor/internal/domain"
)

// ─── Game Operations ────────────────────────────────────────────────────────

// InsertGame creates a game row in ACTIVE state and returns the assigned
// sequence number. A duplicate external id fails with ErrGameExists.
func (t *Tx) InsertGame(g domain.Game) (int64, error) {
	res, err := t.tx.Exec(`
		INSERT INTO games (id, seed_hash, player, asset, bet_amount, status, created_at, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.SeedHash, g.Player, g.Asset, g.BetAmount, string(domain.GameActive),
		g.CreatedAt.UTC().Format(time.RFC3339Nano), g.Extra)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrGameExists
		}
		return 0, fmt.Errorf("insert game: %w", err)
	}
	return res.LastInsertId()
}

// GetGame fetches a game by external id within the transaction.
func (t *Tx) GetGame(id string) (domain.Game, error) {
	return scanGame(t.tx.QueryRow(gameSelect+` WHERE id = ?`, id))
}

// SettleGame applies a terminal transition to a game row. The caller has
// already validated the transition; this only writes it.
func (t *Tx) SettleGame(id string, status domain.GameStatus, payout int64, revealedSeed string, settledAt time.Time) error {
	_, err := t.tx.Exec(`
		UPDATE games
		SET status = ?, payout_amount = ?, revealed_seed = ?, settled_at = ?
		WHERE id = ?
	`, string(status), payout, revealedSeed, settledAt.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("settle game: %w", err)
	}
	return nil
}

// ─── Read-Only Lookups ──────────────────────────────────────────────────────

const gameSelect = `
	SELECT seq, id, seed_hash, player, asset, bet_amount, payout_amount,
	       status, created_at, settled_at, revealed_seed, extra
	FROM games`

// GetGame fetches a game by external id.
func (db *DB) GetGame(id string) (domain.Game, error) {
	return scanGame(db.db.QueryRow(gameSelect+` WHERE id = ?`, id))
}

// GetGameBySeq fetches a game by internal sequence number.
func (db *DB) GetGameBySeq(seq int64) (domain.Game, error) {
	return scanGame(db.db.QueryRow(gameSelect+` WHERE seq = ?`, seq))
}

// GameSeq maps an external id to its internal sequence number.
func (db *DB) GameSeq(id string) (int64, error) {
	var seq int64
	err := db.db.QueryRow(`SELECT seq FROM games WHERE id = ?`, id).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, domain.ErrGameNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("game seq: %w", err)
	}
	return seq, nil
}

// ListGames returns games filtered by status (empty = all), newest first.
func (db *DB) ListGames(status domain.GameStatus, limit int) ([]domain.Game, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = db.db.Query(gameSelect+` ORDER BY seq DESC LIMIT ?`, limit)
	} else {
		rows, err = db.db.Query(gameSelect+` WHERE status = ? ORDER BY seq DESC LIMIT ?`, string(status), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var result []domain.Game
	for rows.Next() {
		g, err := scanGameRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

// SumActiveBets returns the sum of bet amounts over ACTIVE games for an
// asset — used by tests and the consistency checker to cross-check the
// locked counter.
func (db *DB) SumActiveBets(asset string) (int64, error) {
	var sum int64
	err := db.db.QueryRow(`
		SELECT COALESCE(SUM(bet_amount), 0) FROM games WHERE status = 'ACTIVE' AND asset = ?
	`, asset).Scan(&sum)
	return sum, err
}

// ─── Scanning ───────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row *sql.Row) (domain.Game, error) {
	g, err := scanGameRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return g, err
}

func scanGameRow(row rowScanner) (domain.Game, error) {
	var (
		g          domain.Game
		status     string
		createdStr string
		settledStr sql.NullString
	)
	err := row.Scan(&g.Seq, &g.ID, &g.SeedHash, &g.Player, &g.Asset,
		&g.BetAmount, &g.PayoutAmount, &status, &createdStr, &settledStr,
		&g.RevealedSeed, &g.Extra)
	if err != nil {
		return domain.Game{}, err
	}
	g.Status = domain.GameStatus(status)
	g.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	if settledStr.Valid {
		ts, _ := time.Parse(time.RFC3339Nano, settledStr.String)
		g.SettledAt = &ts
	}
	return g, nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error text;
	// matching the message avoids importing driver internals.
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
