package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/someoneelse131/purfacted-sub002/internal/api"
	"github.com/someoneelse131/purfacted-sub002/internal/app/consensus"
	"github.com/someoneelse131/purfacted-sub002/internal/app/election"
	"github.com/someoneelse131/purfacted-sub002/internal/app/escalation"
	"github.com/someoneelse131/purfacted-sub002/internal/app/trust"
	"github.com/someoneelse131/purfacted-sub002/internal/app/verification"
	"github.com/someoneelse131/purfacted-sub002/internal/domain"
	_ "github.com/someoneelse131/purfacted-sub002/internal/infra/metrics" // Register Prometheus metrics
	"github.com/someoneelse131/purfacted-sub002/internal/infra/sqlite"
)

// Daemon is the engine runtime. It wires together all services.
type Daemon struct {
	Config Config
	DB     *sqlite.DB
	Ledger *trust.Ledger

	Consensus    *consensus.Service
	Verification *verification.Service
	Election     *election.Controller
	Escalation   *escalation.Controller
	Server       *api.Server

	cancel context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	dir := cfg.Storage.Dir
	if dir == "" {
		dir = purfactedHome()
	}
	db, err := sqlite.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The economy tables are loaded once into an immutable snapshot.
	// Changing them means building a new ledger, not mutating this one.
	ledger := trust.NewLedger(db, trust.LoadConfig(db))

	d := &Daemon{
		Config:       cfg,
		DB:           db,
		Ledger:       ledger,
		Consensus:    consensus.NewService(db, ledger, cfg.ConsensusEngine()),
		Verification: verification.NewService(db, ledger, cfg.QuorumEngine()),
		Election:     election.NewController(db, cfg.ElectionEngine(), nil),
		Escalation:   escalation.NewController(db, cfg.EscalationEngine()),
	}

	srv := api.NewServer(db, ledger, d.Consensus, d.Verification, d.Election, d.Escalation)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	d.Server = srv

	return d, nil
}

// Run starts the HTTP server and the periodic sweeps, then blocks until
// SIGINT/SIGTERM or ctx cancellation.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	defer cancel()

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)
	httpSrv := &http.Server{Addr: addr, Handler: d.Server.Handler()}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[daemon] listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	go d.sweepLoop(ctx, "election", time.Duration(d.Config.Sweeps.ElectionMinutes)*time.Minute, func() error {
		_, err := d.Election.RunElection()
		return err
	})
	go d.sweepLoop(ctx, "inactivity", time.Duration(d.Config.Sweeps.InactivityMinutes)*time.Minute, func() error {
		_, err := d.Election.InactivitySweep()
		return err
	})
	go d.sweepLoop(ctx, "autoflag", time.Duration(d.Config.Sweeps.AutoflagMinutes)*time.Minute, func() error {
		_, err := d.Escalation.AutoFlagSweep()
		return err
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigCh:
		log.Printf("[daemon] received %s, shutting down", sig)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[daemon] http shutdown: %v", err)
	}
	return d.DB.Close()
}

// Stop cancels a running daemon.
func (d *Daemon) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
}

// sweepLoop runs one batch pass on a ticker. The pass's own guard keeps a
// slow run from overlapping the next tick.
func (d *Daemon) sweepLoop(ctx context.Context, name string, every time.Duration, pass func() error) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Losing the guard just means a previous pass is still
			// running; that is not worth a log line.
			if err := pass(); err != nil && err != domain.ErrSweepInProgress {
				log.Printf("[daemon] %s sweep: %v", name, err)
			}
		}
	}
}
