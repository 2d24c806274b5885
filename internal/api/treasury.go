package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parlor-network/parlor/internal/app/treasury"
	"github.com/parlor-network/parlor/internal/domain"
	"github.com/parlor-network/parlor/internal/infra/sqlite"
)

// TreasuryAPI exposes the operator treasury operations over HTTP.
type TreasuryAPI struct {
	ledger *treasury.Ledger
	db     *sqlite.DB
}

// NewTreasuryAPI creates the treasury handlers.
func NewTreasuryAPI(ledger *treasury.Ledger, db *sqlite.DB) *TreasuryAPI {
	return &TreasuryAPI{ledger: ledger, db: db}
}

// HandleDeposit adds operator liquidity. Operator only.
// POST /api/treasury/deposit
func (a *TreasuryAPI) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Asset  string `json:"asset"`
		Amount int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if err := a.ledger.Deposit(body.Asset, body.Amount); err != nil {
		writeDomainError(w, err)
		return
	}
	a.writeSnapshot(w, body.Asset)
}

// HandleWithdraw removes operator liquidity up to the available balance.
// Operator only.
// POST /api/treasury/withdraw
func (a *TreasuryAPI) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Asset     string `json:"asset"`
		Amount    int64  `json:"amount"`
		Recipient string `json:"recipient"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if err := a.ledger.Withdraw(body.Asset, body.Amount, body.Recipient); err != nil {
		writeDomainError(w, err)
		return
	}
	a.writeSnapshot(w, body.Asset)
}

// HandleSetLimits updates the per-asset bet bounds. Operator only.
// POST /api/treasury/limits
func (a *TreasuryAPI) HandleSetLimits(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Asset  string `json:"asset"`
		MinBet int64  `json:"min_bet"`
		MaxBet int64  `json:"max_bet"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if err := a.ledger.SetLimits(body.Asset, body.MinBet, body.MaxBet); err != nil {
		writeDomainError(w, err)
		return
	}
	a.writeSnapshot(w, body.Asset)
}

// HandleLiquidity returns the counter snapshot for one asset.
// GET /api/liquidity/{asset}
func (a *TreasuryAPI) HandleLiquidity(w http.ResponseWriter, r *http.Request) {
	a.writeSnapshot(w, chi.URLParam(r, "asset"))
}

// HandleAssets returns the snapshot of every known asset.
// GET /api/liquidity
func (a *TreasuryAPI) HandleAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := a.db.Assets()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]interface{}, 0, len(assets))
	for _, asset := range assets {
		snap, err := a.ledger.Snapshot(asset)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		out = append(out, snapshotView(snap))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"assets": out})
}

func (a *TreasuryAPI) writeSnapshot(w http.ResponseWriter, asset string) {
	snap, err := a.ledger.Snapshot(asset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotView(snap))
}

// liquidityView augments the raw counters with the two derived capacities
// callers actually act on.
type liquidityView struct {
	domain.Liquidity
	Available int64 `json:"available"`
	Headroom  int64 `json:"headroom"`
}

func snapshotView(snap domain.Liquidity) liquidityView {
	return liquidityView{
		Liquidity: snap,
		Available: snap.Available(),
		Headroom:  snap.Headroom(),
	}
}
