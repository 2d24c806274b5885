package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/parlor-network/parlor/internal/api"
	"github.com/parlor-network/parlor/internal/app/authz"
	"github.com/parlor-network/parlor/internal/app/registry"
	"github.com/parlor-network/parlor/internal/app/treasury"
	"github.com/parlor-network/parlor/internal/domain"
	"github.com/parlor-network/parlor/internal/infra/sqlite"
)

// Daemon is the assembled settlement engine.
type Daemon struct {
	cfg    Config
	db     *sqlite.DB
	server *http.Server
}

// New builds the daemon from config: store, registry, treasury, HTTP server.
func New(cfg Config) (*Daemon, error) {
	if !common.IsHexAddress(cfg.Signer.Operator) {
		return nil, fmt.Errorf("signer.operator %q is not a valid address", cfg.Signer.Operator)
	}
	if err := os.MkdirAll(cfg.StoreDir(), 0700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sqlite.Open(cfg.StoreDir())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	reg := registry.New(db, registry.Config{
		Domain: authz.Domain{
			Name:     cfg.Signer.Name,
			Version:  cfg.Signer.Version,
			ChainID:  cfg.Signer.ChainID,
			Contract: common.HexToAddress(cfg.Signer.Contract),
		},
		Operator:     common.HexToAddress(cfg.Signer.Operator),
		ExpiryWindow: cfg.ExpiryWindow(),
	})
	ledger := treasury.NewLedger(db)

	srv := api.NewServer(api.NewSettlementAPI(reg, db), api.NewTreasuryAPI(ledger, db))
	srv.SetOperatorToken(cfg.Operator.Token)
	if cfg.Metrics.Enabled {
		srv.EnableMetrics()
	}

	// Committed audit events flow to live SSE subscribers.
	hub := api.NewAuditHub()
	srv.SetAuditHub(hub)
	notify := func(e domain.AuditEvent) { hub.Broadcast(e) }
	reg.SetNotify(notify)
	ledger.SetNotify(notify)

	return &Daemon{
		cfg: cfg,
		db:  db,
		server: &http.Server{
			Addr:              cfg.ListenAddr(),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves until the context is canceled, then shuts down gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[daemon] listening on %s", d.server.Addr)
		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		d.db.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[daemon] shutdown: %v", err)
	}
	return d.db.Close()
}
