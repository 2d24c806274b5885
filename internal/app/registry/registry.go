// Package registry drives the wager state machine: create, resolve-win,
// resolve-loss, expire. It is the only component that moves custodied funds,
// and it never does so without updating the treasury counters in the same
// transaction.
//
// Execution is strictly serialized: one mutex, one immediate transaction per
// operation. Every operation observes a consistent snapshot, fully applies
// or fully aborts, and no interleaving is observable. Deadlines are
// pre-execution validity checks, not cancellation of in-flight work.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/parlor-network/parlor/internal/app/authz"
	"github.com/parlor-network/parlor/internal/app/treasury"
	"github.com/parlor-network/parlor/internal/domain"
	"github.com/parlor-network/parlor/internal/infra/observability"
	"github.com/parlor-network/parlor/internal/infra/sqlite"
)

// Config carries the trust anchors of the settlement engine.
type Config struct {
	Domain       authz.Domain   // Typed-data signing domain
	Operator     common.Address // Trusted arbiter signer
	ExpiryWindow time.Duration  // Active window before permissionless expiry
}

// Registry is the wager state machine over the shared store.
type Registry struct {
	mu      sync.Mutex
	db      *sqlite.DB
	cfg     Config
	notify  func(domain.AuditEvent)
	now     func() time.Time
	pending []domain.AuditEvent // Events staged during the current transaction
}

// New creates a registry.
func New(db *sqlite.DB, cfg Config) *Registry {
	return &Registry{db: db, cfg: cfg, now: time.Now}
}

// SetNotify installs a best-effort callback invoked after each committed
// operation, used for the live audit feed.
func (r *Registry) SetNotify(fn func(domain.AuditEvent)) { r.notify = fn }

// ─── Resolution Modes ───────────────────────────────────────────────────────
// Three authorization paths reach identical post-state; the only difference
// is who may call and whether an arbiter signature is mandatory.

// ResolveMode selects the authorization path for a resolution.
type ResolveMode int

const (
	// ModeSigned is the standard path: anyone may submit, the arbiter
	// signature is mandatory.
	ModeSigned ResolveMode = iota
	// ModeSelfService requires the arbiter signature and that the caller
	// is the game's own player.
	ModeSelfService
	// ModeAdmin is administrator-direct resolution with no signature.
	// The API layer gates who may use it.
	ModeAdmin
)

// ─── Requests ───────────────────────────────────────────────────────────────

// CreateRequest opens a game. Signature is the arbiter's authorization over
// (seed commitment, id, amount, asset, player, deadline).
type CreateRequest struct {
	ID        string `json:"id"`
	SeedHash  string `json:"seed_hash"` // 0x-hex keccak256 commitment
	BetAmount int64  `json:"bet_amount"`
	Asset     string `json:"asset"`
	Player    string `json:"player"`
	Extra     string `json:"extra,omitempty"`
	Deadline  int64  `json:"deadline"` // Unix seconds
	Signature []byte `json:"signature"`
}

// CashOutRequest resolves a game as won. Seed is the revealed commitment
// preimage in 0x-hex.
type CashOutRequest struct {
	ID           string `json:"id"`
	PayoutAmount int64  `json:"payout_amount"`
	RevealedSeed string `json:"revealed_seed"`
	Deadline     int64  `json:"deadline"`
	Signature    []byte `json:"signature"`
	Caller       string `json:"caller,omitempty"` // Checked in self-service mode
}

// MarkLostRequest resolves a game as lost.
type MarkLostRequest struct {
	ID           string `json:"id"`
	RevealedSeed string `json:"revealed_seed"`
	Deadline     int64  `json:"deadline"`
	Signature    []byte `json:"signature"`
	Caller       string `json:"caller,omitempty"`
}

// ─── Create ─────────────────────────────────────────────────────────────────

// Create validates and opens a game: funds are pulled into custody, the bet
// is locked, and a creation event is appended — all in one transaction.
func (r *Registry) Create(req CreateRequest) (g domain.Game, err error) {
	defer func() { observability.RecordOp("create", err) }()
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.now().Unix() > req.Deadline {
		return domain.Game{}, domain.ErrSignatureExpired
	}
	seedHash, err := parseHash(req.SeedHash)
	if err != nil {
		return domain.Game{}, err
	}
	if !common.IsHexAddress(req.Player) {
		return domain.Game{}, fmt.Errorf("player address: %w", domain.ErrInvalidSignature)
	}
	player := common.HexToAddress(req.Player)

	err = r.db.WithTx(func(tx *sqlite.Tx) error {
		cur, err := tx.GetTreasury(req.Asset)
		if err != nil {
			return err
		}
		if req.BetAmount <= 0 || req.BetAmount < cur.MinBet ||
			(cur.MaxBet > 0 && req.BetAmount > cur.MaxBet) {
			return fmt.Errorf("bet %d with limits [%d, %d]: %w",
				req.BetAmount, cur.MinBet, cur.MaxBet, domain.ErrInvalidBet)
		}
		if _, err := tx.GetGame(req.ID); err == nil {
			return domain.ErrGameExists
		} else if !errors.Is(err, domain.ErrGameNotFound) {
			return err
		}
		// A winning payout may claim up to the full custodied balance, so
		// spare capacity must cover the bet before the outcome is known.
		if cur.Headroom() < req.BetAmount {
			return fmt.Errorf("headroom %d below bet %d: %w",
				cur.Headroom(), req.BetAmount, domain.ErrInsufficientFunds)
		}

		digest := r.cfg.Domain.CreateDigest(authz.CreateMsg{
			SeedHash: seedHash,
			GameID:   req.ID,
			Amount:   req.BetAmount,
			Asset:    req.Asset,
			Player:   player,
			Deadline: req.Deadline,
		})
		if !r.verifier(tx).Verify(digest, req.Signature, r.cfg.Operator) {
			return domain.ErrInvalidSignature
		}

		g = domain.Game{
			ID:        req.ID,
			SeedHash:  hashHex(seedHash),
			Player:    player.Hex(),
			Asset:     req.Asset,
			BetAmount: req.BetAmount,
			Status:    domain.GameActive,
			CreatedAt: r.now().UTC(),
			Extra:     req.Extra,
		}
		if g.Seq, err = tx.InsertGame(g); err != nil {
			return err
		}
		if err := treasury.LockBet(tx, req.Asset, req.BetAmount); err != nil {
			return err
		}
		// The event carries the commitment hash, never the seed.
		return r.appendEvent(tx, domain.EventBetCreated, g, g.BetAmount, map[string]string{
			"player":    g.Player,
			"seed_hash": g.SeedHash,
		})
	})
	r.finish(err)
	if err != nil {
		return domain.Game{}, err
	}
	log.Printf("[registry] created game=%s asset=%s bet=%d player=%s", g.ID, g.Asset, g.BetAmount, g.Player)
	return g, nil
}

// ─── Resolve: Win ───────────────────────────────────────────────────────────

// CashOut resolves a game as won and pays the player. The revealed seed must
// hash to the stored commitment — the outcome cannot have been chosen after
// observing the request.
func (r *Registry) CashOut(req CashOutRequest, mode ResolveMode) (g domain.Game, err error) {
	defer func() { observability.RecordOp("cashout", err) }()
	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.db.WithTx(func(tx *sqlite.Tx) error {
		g, err = tx.GetGame(req.ID)
		if err != nil {
			return err
		}
		if g.Status != domain.GameActive {
			return fmt.Errorf("status %s: %w", g.Status, domain.ErrGameNotActive)
		}
		if req.PayoutAmount <= 0 {
			return domain.ErrInvalidPayout
		}
		seed, err := r.checkSeed(g, req.RevealedSeed)
		if err != nil {
			return err
		}
		if err := r.authorizeResolve(tx, mode, req.Caller, g, func() [32]byte {
			return r.cfg.Domain.CashoutDigest(authz.CashoutMsg{
				Seed:     seed,
				GameID:   g.ID,
				Payout:   req.PayoutAmount,
				Asset:    g.Asset,
				Player:   common.HexToAddress(g.Player),
				Deadline: req.Deadline,
			})
		}, req.Deadline, req.Signature); err != nil {
			return err
		}

		if err := treasury.SettleWin(tx, g.Asset, g.BetAmount, req.PayoutAmount); err != nil {
			return err
		}
		settled := r.now().UTC()
		if err := tx.SettleGame(g.ID, domain.GameWon, req.PayoutAmount, req.RevealedSeed, settled); err != nil {
			return err
		}
		g.Status, g.PayoutAmount, g.RevealedSeed, g.SettledAt = domain.GameWon, req.PayoutAmount, req.RevealedSeed, &settled
		return r.appendEvent(tx, domain.EventBetWon, g, g.PayoutAmount, map[string]string{
			"player":        g.Player,
			"revealed_seed": g.RevealedSeed,
		})
	})
	r.finish(err)
	if err != nil {
		return domain.Game{}, err
	}
	log.Printf("[registry] won game=%s payout=%d player=%s", g.ID, g.PayoutAmount, g.Player)
	return g, nil
}

// ─── Resolve: Loss ──────────────────────────────────────────────────────────

// MarkLost resolves a game as lost; the bet becomes operator liquidity.
func (r *Registry) MarkLost(req MarkLostRequest, mode ResolveMode) (g domain.Game, err error) {
	defer func() { observability.RecordOp("mark_lost", err) }()
	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.db.WithTx(func(tx *sqlite.Tx) error {
		g, err = tx.GetGame(req.ID)
		if err != nil {
			return err
		}
		if g.Status != domain.GameActive {
			return fmt.Errorf("status %s: %w", g.Status, domain.ErrGameNotActive)
		}
		seed, err := r.checkSeed(g, req.RevealedSeed)
		if err != nil {
			return err
		}
		if err := r.authorizeResolve(tx, mode, req.Caller, g, func() [32]byte {
			return r.cfg.Domain.LossDigest(authz.LossMsg{
				Seed:     seed,
				GameID:   g.ID,
				Asset:    g.Asset,
				Player:   common.HexToAddress(g.Player),
				Deadline: req.Deadline,
			})
		}, req.Deadline, req.Signature); err != nil {
			return err
		}

		if err := treasury.SettleForfeit(tx, g.Asset, g.BetAmount); err != nil {
			return err
		}
		settled := r.now().UTC()
		if err := tx.SettleGame(g.ID, domain.GameLost, 0, req.RevealedSeed, settled); err != nil {
			return err
		}
		g.Status, g.RevealedSeed, g.SettledAt = domain.GameLost, req.RevealedSeed, &settled
		return r.appendEvent(tx, domain.EventBetLost, g, g.BetAmount, map[string]string{
			"revealed_seed": g.RevealedSeed,
		})
	})
	r.finish(err)
	if err != nil {
		return domain.Game{}, err
	}
	log.Printf("[registry] lost game=%s bet=%d", g.ID, g.BetAmount)
	return g, nil
}

// ─── Expire ─────────────────────────────────────────────────────────────────

// Expire is the permissionless safety valve: once the expiry window has
// elapsed, anyone may release an unresolved game so locked liquidity cannot
// be held hostage by an unresponsive arbiter. The bet returns to the
// operator treasury — the operator-recovers policy.
func (r *Registry) Expire(id string) (g domain.Game, err error) {
	defer func() { observability.RecordOp("expire", err) }()
	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.db.WithTx(func(tx *sqlite.Tx) error {
		g, err = tx.GetGame(id)
		if err != nil {
			return err
		}
		if g.Status != domain.GameActive {
			return fmt.Errorf("status %s: %w", g.Status, domain.ErrGameNotActive)
		}
		if r.now().Before(g.ExpiresAt(r.cfg.ExpiryWindow)) {
			return fmt.Errorf("expires at %s: %w",
				g.ExpiresAt(r.cfg.ExpiryWindow).Format(time.RFC3339), domain.ErrGameStillActive)
		}

		if err := treasury.SettleForfeit(tx, g.Asset, g.BetAmount); err != nil {
			return err
		}
		settled := r.now().UTC()
		if err := tx.SettleGame(g.ID, domain.GameExpired, 0, "", settled); err != nil {
			return err
		}
		g.Status, g.SettledAt = domain.GameExpired, &settled
		return r.appendEvent(tx, domain.EventBetExpired, g, g.BetAmount, nil)
	})
	r.finish(err)
	if err != nil {
		return domain.Game{}, err
	}
	log.Printf("[registry] expired game=%s bet=%d", g.ID, g.BetAmount)
	return g, nil
}

// ─── Delegate Management ────────────────────────────────────────────────────

// RegisterDelegate authorizes a key to sign on behalf of the operator
// identity. Operator-only; the API layer gates access.
func (r *Registry) RegisterDelegate(signer, delegate string) error {
	if !common.IsHexAddress(signer) || !common.IsHexAddress(delegate) {
		return fmt.Errorf("delegate address: %w", domain.ErrInvalidSignature)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.db.WithTx(func(tx *sqlite.Tx) error {
		if err := tx.AddDelegate(addrKey(signer), addrKey(delegate)); err != nil {
			return err
		}
		return r.appendEvent(tx, domain.EventDelegateAdded, domain.Game{}, 0, map[string]string{
			"signer": addrKey(signer), "delegate": addrKey(delegate),
		})
	})
	r.finish(err)
	return err
}

// RemoveDelegate revokes a delegate key.
func (r *Registry) RemoveDelegate(signer, delegate string) error {
	if !common.IsHexAddress(signer) || !common.IsHexAddress(delegate) {
		return fmt.Errorf("delegate address: %w", domain.ErrInvalidSignature)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.db.WithTx(func(tx *sqlite.Tx) error {
		if err := tx.RemoveDelegate(addrKey(signer), addrKey(delegate)); err != nil {
			return err
		}
		return r.appendEvent(tx, domain.EventDelegateRemoved, domain.Game{}, 0, map[string]string{
			"signer": addrKey(signer), "delegate": addrKey(delegate),
		})
	})
	r.finish(err)
	return err
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Game looks a game up by external id.
func (r *Registry) Game(id string) (domain.Game, error) { return r.db.GetGame(id) }

// GameBySeq looks a game up by internal sequence number.
func (r *Registry) GameBySeq(seq int64) (domain.Game, error) { return r.db.GetGameBySeq(seq) }

// Seq maps an external id to its internal sequence number.
func (r *Registry) Seq(id string) (int64, error) { return r.db.GameSeq(id) }

// Liquidity returns the per-asset counter snapshot.
func (r *Registry) Liquidity(asset string) (domain.Liquidity, error) { return r.db.Liquidity(asset) }

// Games lists games filtered by status (empty = all), newest first.
func (r *Registry) Games(status domain.GameStatus, limit int) ([]domain.Game, error) {
	return r.db.ListGames(status, limit)
}

// ─── Internals ──────────────────────────────────────────────────────────────

// authorizeResolve applies the mode-specific checks. All modes converge on
// identical post-state; only the authorization differs.
func (r *Registry) authorizeResolve(tx *sqlite.Tx, mode ResolveMode, caller string, g domain.Game, digest func() [32]byte, deadline int64, sig []byte) error {
	if mode == ModeAdmin {
		return nil
	}
	if mode == ModeSelfService {
		if !common.IsHexAddress(caller) || common.HexToAddress(caller) != common.HexToAddress(g.Player) {
			return domain.ErrNotGamePlayer
		}
	}
	if r.now().Unix() > deadline {
		return domain.ErrSignatureExpired
	}
	if !r.verifier(tx).Verify(digest(), sig, r.cfg.Operator) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// checkSeed verifies the provable-fairness commitment and returns the
// decoded seed bytes.
func (r *Registry) checkSeed(g domain.Game, revealed string) ([]byte, error) {
	seed := common.FromHex(revealed)
	if len(seed) == 0 {
		return nil, fmt.Errorf("empty seed: %w", domain.ErrInvalidSeed)
	}
	commitment := authz.SeedCommitment(seed)
	stored := common.FromHex(g.SeedHash)
	if !bytes.Equal(commitment[:], stored) {
		return nil, domain.ErrInvalidSeed
	}
	return seed, nil
}

// verifier builds the signature verifier for the current transaction. The
// delegate lookup must ride the open tx: the pool holds a single connection,
// so a fresh query here would wait on a connection the tx never releases.
func (r *Registry) verifier(tx *sqlite.Tx) authz.Verifier {
	return authz.For(r.cfg.Operator, delegateDirectory{tx: tx})
}

func (r *Registry) appendEvent(tx *sqlite.Tx, typ domain.EventType, g domain.Game, amount int64, payload any) error {
	e := domain.AuditEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		GameID:    g.ID,
		Asset:     g.Asset,
		Amount:    amount,
		CreatedAt: r.now().UTC(),
	}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			e.Payload = string(data)
		}
	}
	seq, err := tx.AppendEvent(e)
	if err != nil {
		return err
	}
	e.Seq = seq
	r.pending = append(r.pending, e)
	return nil
}

// finish publishes staged events once their transaction has committed, or
// drops them if it aborted. Callers hold the mutex.
func (r *Registry) finish(err error) {
	if err == nil && r.notify != nil {
		for _, e := range r.pending {
			r.notify(e)
		}
	}
	r.pending = nil
}

// delegateDirectory adapts the transaction to the authz lookup.
type delegateDirectory struct {
	tx *sqlite.Tx
}

func (d delegateDirectory) Delegates(signer common.Address) ([]common.Address, error) {
	raw, err := d.tx.Delegates(addrKey(signer.Hex()))
	if err != nil {
		return nil, err
	}
	out := make([]common.Address, 0, len(raw))
	for _, s := range raw {
		out = append(out, common.HexToAddress(s))
	}
	return out, nil
}

func parseHash(s string) ([32]byte, error) {
	var h [32]byte
	b := common.FromHex(s)
	if len(b) != 32 {
		return h, fmt.Errorf("commitment must be 32 bytes: %w", domain.ErrInvalidSeed)
	}
	copy(h[:], b)
	return h, nil
}

func hashHex(h [32]byte) string { return common.Hash(h).Hex() }

func addrKey(s string) string { return common.HexToAddress(s).Hex() }
