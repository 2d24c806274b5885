package sqlite

import (
	"errors"
	"testing"
	"time"

	"github.com/parlor-network/parlor/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertTestGame(t *testing.T, db *DB, id string) domain.Game {
	t.Helper()
	g := domain.Game{
		ID:        id,
		SeedHash:  "0xabc",
		Player:    "0x00000000000000000000000000000000000001aa",
		Asset:     "USDT",
		BetAmount: 100,
		CreatedAt: time.Now(),
		Extra:     "round-7",
	}
	err := db.WithTx(func(tx *Tx) error {
		seq, err := tx.InsertGame(g)
		g.Seq = seq
		return err
	})
	if err != nil {
		t.Fatalf("insert game: %v", err)
	}
	return g
}

func TestGameRoundTrip(t *testing.T) {
	db := openTestDB(t)
	want := insertTestGame(t, db, "game-1")

	got, err := db.GetGame("game-1")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if got.Seq != want.Seq {
		t.Errorf("Seq = %d, want %d", got.Seq, want.Seq)
	}
	if got.Status != domain.GameActive {
		t.Errorf("Status = %s, want ACTIVE", got.Status)
	}
	if got.BetAmount != 100 || got.Asset != "USDT" || got.Extra != "round-7" {
		t.Errorf("fields mismatch: %+v", got)
	}
	if got.SettledAt != nil {
		t.Error("SettledAt should be nil for an active game")
	}
}

func TestGameNotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetGame("missing"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
	if _, err := db.GameSeq("missing"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound from GameSeq, got %v", err)
	}
}

func TestDuplicateGameID(t *testing.T) {
	db := openTestDB(t)
	insertTestGame(t, db, "dup")

	err := db.WithTx(func(tx *Tx) error {
		_, err := tx.InsertGame(domain.Game{
			ID: "dup", SeedHash: "0xdef", Player: "0x1", Asset: "USDT",
			BetAmount: 50, CreatedAt: time.Now(),
		})
		return err
	})
	if !errors.Is(err, domain.ErrGameExists) {
		t.Fatalf("expected ErrGameExists, got %v", err)
	}
}

func TestSettleGame(t *testing.T) {
	db := openTestDB(t)
	insertTestGame(t, db, "game-1")

	settled := time.Now()
	err := db.WithTx(func(tx *Tx) error {
		return tx.SettleGame("game-1", domain.GameWon, 150, "0xseed", settled)
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	g, _ := db.GetGame("game-1")
	if g.Status != domain.GameWon {
		t.Errorf("Status = %s, want WON", g.Status)
	}
	if g.PayoutAmount != 150 || g.RevealedSeed != "0xseed" {
		t.Errorf("payout/seed mismatch: %+v", g)
	}
	if g.SettledAt == nil {
		t.Error("SettledAt not set")
	}
}

func TestSeqMapping(t *testing.T) {
	db := openTestDB(t)
	g1 := insertTestGame(t, db, "first")
	g2 := insertTestGame(t, db, "second")

	if g2.Seq <= g1.Seq {
		t.Errorf("sequence not monotonic: %d then %d", g1.Seq, g2.Seq)
	}

	seq, err := db.GameSeq("second")
	if err != nil || seq != g2.Seq {
		t.Fatalf("GameSeq = %d, %v; want %d", seq, err, g2.Seq)
	}
	got, err := db.GetGameBySeq(g1.Seq)
	if err != nil || got.ID != "first" {
		t.Fatalf("GetGameBySeq = %+v, %v; want first", got, err)
	}
}

func TestSumActiveBets(t *testing.T) {
	db := openTestDB(t)
	insertTestGame(t, db, "a")
	insertTestGame(t, db, "b")

	sum, err := db.SumActiveBets("USDT")
	if err != nil || sum != 200 {
		t.Fatalf("SumActiveBets = %d, %v; want 200", sum, err)
	}

	db.WithTx(func(tx *Tx) error {
		return tx.SettleGame("a", domain.GameLost, 0, "0xseed", time.Now())
	})
	sum, _ = db.SumActiveBets("USDT")
	if sum != 100 {
		t.Errorf("after settle SumActiveBets = %d, want 100", sum)
	}
}

func TestTreasuryRoundTrip(t *testing.T) {
	db := openTestDB(t)

	// Unknown assets read as zeroed counters.
	l, err := db.Liquidity("USDT")
	if err != nil {
		t.Fatalf("liquidity: %v", err)
	}
	if l.Custodied != 0 || l.Treasury != 0 || l.Locked != 0 {
		t.Errorf("fresh asset should be zeroed: %+v", l)
	}

	err = db.WithTx(func(tx *Tx) error {
		cur, err := tx.GetTreasury("USDT")
		if err != nil {
			return err
		}
		cur.Custodied, cur.Treasury, cur.Locked = 10100, 10000, 100
		cur.MinBet, cur.MaxBet = 10, 1000
		return tx.PutTreasury(cur)
	})
	if err != nil {
		t.Fatalf("put treasury: %v", err)
	}

	l, _ = db.Liquidity("USDT")
	if l.Custodied != 10100 || l.Treasury != 10000 || l.Locked != 100 {
		t.Errorf("counters mismatch: %+v", l)
	}
	if l.MinBet != 10 || l.MaxBet != 1000 {
		t.Errorf("limits mismatch: %+v", l)
	}

	assets, _ := db.Assets()
	if len(assets) != 1 || assets[0] != "USDT" {
		t.Errorf("Assets = %v, want [USDT]", assets)
	}
}

func TestRollbackLeavesNoTrace(t *testing.T) {
	db := openTestDB(t)

	wantErr := errors.New("boom")
	err := db.WithTx(func(tx *Tx) error {
		if _, err := tx.InsertGame(domain.Game{
			ID: "ghost", SeedHash: "0x1", Player: "0x2", Asset: "USDT",
			BetAmount: 5, CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
		cur, _ := tx.GetTreasury("USDT")
		cur.Locked = 5
		if err := tx.PutTreasury(cur); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := db.GetGame("ghost"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Error("rolled-back game row is visible")
	}
	l, _ := db.Liquidity("USDT")
	if l.Locked != 0 {
		t.Errorf("rolled-back treasury write is visible: %+v", l)
	}
}

func TestAuditLogOrdering(t *testing.T) {
	db := openTestDB(t)

	for i, typ := range []domain.EventType{domain.EventDeposit, domain.EventBetCreated, domain.EventBetWon} {
		err := db.WithTx(func(tx *Tx) error {
			_, err := tx.AppendEvent(domain.AuditEvent{
				ID: "evt-" + string(rune('a'+i)), Type: typ, GameID: "g1",
				Asset: "USDT", Amount: 100, CreatedAt: time.Now(),
			})
			return err
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	events, err := db.EventsAfter(0, 10)
	if err != nil {
		t.Fatalf("events after: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq <= events[i-1].Seq {
			t.Error("event sequence not strictly increasing")
		}
	}
	if events[0].Type != domain.EventDeposit || events[2].Type != domain.EventBetWon {
		t.Errorf("append order not preserved: %+v", events)
	}

	// Catch-up from the middle of the log.
	tail, _ := db.EventsAfter(events[0].Seq, 10)
	if len(tail) != 2 || tail[0].Seq != events[1].Seq {
		t.Errorf("catch-up mismatch: %+v", tail)
	}

	byGame, _ := db.GameEvents("g1")
	if len(byGame) != 3 {
		t.Errorf("GameEvents = %d rows, want 3", len(byGame))
	}
}

func TestDelegateKeys(t *testing.T) {
	db := openTestDB(t)
	signer := "0x00000000000000000000000000000000000000f0"

	err := db.WithTx(func(tx *Tx) error {
		if err := tx.AddDelegate(signer, "0x01"); err != nil {
			return err
		}
		if err := tx.AddDelegate(signer, "0x02"); err != nil {
			return err
		}
		return tx.AddDelegate(signer, "0x01") // idempotent
	})
	if err != nil {
		t.Fatalf("add delegates: %v", err)
	}

	keys, err := db.Delegates(signer)
	if err != nil || len(keys) != 2 {
		t.Fatalf("Delegates = %v, %v; want 2 keys", keys, err)
	}

	db.WithTx(func(tx *Tx) error { return tx.RemoveDelegate(signer, "0x01") })
	keys, _ = db.Delegates(signer)
	if len(keys) != 1 || keys[0] != "0x02" {
		t.Errorf("after remove Delegates = %v, want [0x02]", keys)
	}
}
