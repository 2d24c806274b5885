package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/parlor-network/parlor/internal/app/registry"
	"github.com/parlor-network/parlor/internal/domain"
	"github.com/parlor-network/parlor/internal/infra/sqlite"
)

// SettlementAPI exposes the wager lifecycle over HTTP.
type SettlementAPI struct {
	reg *registry.Registry
	db  *sqlite.DB
}

// NewSettlementAPI creates the settlement handlers.
func NewSettlementAPI(reg *registry.Registry, db *sqlite.DB) *SettlementAPI {
	return &SettlementAPI{reg: reg, db: db}
}

// ─── Lifecycle ──────────────────────────────────────────────────────────────

// HandleCreate opens a game.
// POST /api/bets
func (a *SettlementAPI) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req registry.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	g, err := a.reg.Create(req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// resolveBody is the shared wire shape for win and loss resolutions. Mode
// selects the authorization path: "" or "signed" for the standard path,
// "self" for player self-service.
type resolveBody struct {
	PayoutAmount int64  `json:"payout_amount,omitempty"`
	RevealedSeed string `json:"revealed_seed"`
	Deadline     int64  `json:"deadline"`
	Signature    []byte `json:"signature"`
	Caller       string `json:"caller,omitempty"`
	Mode         string `json:"mode,omitempty"`
}

func (b resolveBody) resolveMode() (registry.ResolveMode, bool) {
	switch b.Mode {
	case "", "signed":
		return registry.ModeSigned, true
	case "self":
		return registry.ModeSelfService, true
	default:
		return 0, false
	}
}

// HandleCashOut resolves a game as won.
// POST /api/bets/{id}/cashout
func (a *SettlementAPI) HandleCashOut(w http.ResponseWriter, r *http.Request) {
	var body resolveBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	mode, ok := body.resolveMode()
	if !ok {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown mode "+body.Mode)
		return
	}
	g, err := a.reg.CashOut(registry.CashOutRequest{
		ID:           chi.URLParam(r, "id"),
		PayoutAmount: body.PayoutAmount,
		RevealedSeed: body.RevealedSeed,
		Deadline:     body.Deadline,
		Signature:    body.Signature,
		Caller:       body.Caller,
	}, mode)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// HandleMarkLost resolves a game as lost.
// POST /api/bets/{id}/lose
func (a *SettlementAPI) HandleMarkLost(w http.ResponseWriter, r *http.Request) {
	var body resolveBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	mode, ok := body.resolveMode()
	if !ok {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown mode "+body.Mode)
		return
	}
	g, err := a.reg.MarkLost(registry.MarkLostRequest{
		ID:           chi.URLParam(r, "id"),
		RevealedSeed: body.RevealedSeed,
		Deadline:     body.Deadline,
		Signature:    body.Signature,
		Caller:       body.Caller,
	}, mode)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// HandleExpire releases a game past its expiry window. Permissionless.
// POST /api/bets/{id}/expire
func (a *SettlementAPI) HandleExpire(w http.ResponseWriter, r *http.Request) {
	g, err := a.reg.Expire(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// HandleAdminResolve settles a game without an arbiter signature. Gated by
// the operator token; the seed commitment check still applies.
// POST /api/bets/{id}/resolve
func (a *SettlementAPI) HandleAdminResolve(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Outcome      string `json:"outcome"` // "win" or "loss"
		PayoutAmount int64  `json:"payout_amount,omitempty"`
		RevealedSeed string `json:"revealed_seed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	id := chi.URLParam(r, "id")

	var g domain.Game
	var err error
	switch body.Outcome {
	case "win":
		g, err = a.reg.CashOut(registry.CashOutRequest{
			ID:           id,
			PayoutAmount: body.PayoutAmount,
			RevealedSeed: body.RevealedSeed,
		}, registry.ModeAdmin)
	case "loss":
		g, err = a.reg.MarkLost(registry.MarkLostRequest{
			ID:           id,
			RevealedSeed: body.RevealedSeed,
		}, registry.ModeAdmin)
	default:
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "outcome must be win or loss")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// ─── Queries ────────────────────────────────────────────────────────────────

// HandleGet returns a game by external id.
// GET /api/bets/{id}
func (a *SettlementAPI) HandleGet(w http.ResponseWriter, r *http.Request) {
	g, err := a.reg.Game(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// HandleGetBySeq returns a game by internal sequence number.
// GET /api/bets/seq/{seq}
func (a *SettlementAPI) HandleGetBySeq(w http.ResponseWriter, r *http.Request) {
	seq, err := strconv.ParseInt(chi.URLParam(r, "seq"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "seq must be an integer")
		return
	}
	g, err := a.reg.GameBySeq(seq)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// HandleSeq maps an external id to its sequence number.
// GET /api/bets/{id}/seq
func (a *SettlementAPI) HandleSeq(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	seq, err := a.reg.Seq(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":  id,
		"seq": seq,
	})
}

// HandleList returns games, newest first, optionally filtered by status.
// GET /api/bets?status=ACTIVE&limit=50
func (a *SettlementAPI) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be a positive integer")
			return
		}
		limit = n
	}
	games, err := a.reg.Games(domain.GameStatus(r.URL.Query().Get("status")), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"games": games,
	})
}

// HandleEvents returns the durable audit trail. With game set it returns
// that game's events; otherwise events after the given sequence number.
// GET /api/events?after=0&limit=100  or  GET /api/events?game=abc
func (a *SettlementAPI) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if game := r.URL.Query().Get("game"); game != "" {
		events, err := a.db.GameEvents(game)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
		return
	}

	var after int64
	if s := r.URL.Query().Get("after"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "after must be an integer")
			return
		}
		after = n
	}
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be a positive integer")
			return
		}
		limit = n
	}
	events, err := a.db.EventsAfter(after, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// ─── Delegate Keys ──────────────────────────────────────────────────────────

type delegateBody struct {
	Signer   string `json:"signer"`
	Delegate string `json:"delegate"`
}

// HandleAddDelegate registers a delegate signing key. Operator only.
// POST /api/delegates
func (a *SettlementAPI) HandleAddDelegate(w http.ResponseWriter, r *http.Request) {
	var body delegateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if err := a.reg.RegisterDelegate(body.Signer, body.Delegate); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

// HandleRemoveDelegate revokes a delegate signing key. Operator only.
// DELETE /api/delegates
func (a *SettlementAPI) HandleRemoveDelegate(w http.ResponseWriter, r *http.Request) {
	var body delegateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if err := a.reg.RemoveDelegate(body.Signer, body.Delegate); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
