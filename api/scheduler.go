/*
scheduler.go - Background replay scheduler

PURPOSE:
  Periodically runs the scheduled-transaction replay engine for every
  owner with an active template, so recurring transactions land without
  an external cron. The CLI replay command remains available for
  deployments that prefer external triggering.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - The replay engine itself is idempotent (watermark-driven), so an
    extra run is harmless
  - Per-owner failures are logged and do not stop the sweep

USAGE:
  scheduler := NewReplayScheduler(store, engine, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - schedule/engine.go: ApplyAll, the per-owner replay
  - cmd/ledgerd/cmd/serve.go: Wires the scheduler into the server
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pocketledger/ledger-core/ledger"
	"github.com/pocketledger/ledger-core/schedule"
)

// ownerSource enumerates the owners a replay sweep must visit.
type ownerSource interface {
	ListTemplateOwners(ctx context.Context) ([]ledger.OwnerID, error)
}

// ReplayScheduler sweeps all template owners on a fixed interval.
type ReplayScheduler struct {
	Owners        ownerSource
	Engine        *schedule.Engine
	Handler       *Handler
	CheckInterval time.Duration
	Log           *slog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReplayScheduler creates a scheduler with a one-hour interval.
func NewReplayScheduler(owners ownerSource, engine *schedule.Engine, log *slog.Logger) *ReplayScheduler {
	if log == nil {
		log = slog.Default()
	}
	return &ReplayScheduler{
		Owners:        owners,
		Engine:        engine,
		CheckInterval: time.Hour,
		Log:           log,
		stop:          make(chan struct{}),
	}
}

// Start begins the background sweep. The first run happens immediately.
func (rs *ReplayScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)
	go rs.run()

	rs.Log.Info("replay scheduler started", "interval", rs.CheckInterval)
}

// Stop halts the scheduler and waits for an in-flight sweep to finish.
func (rs *ReplayScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.Log.Info("replay scheduler stopped")
	}
}

func (rs *ReplayScheduler) run() {
	defer rs.wg.Done()

	rs.RunNow()
	for {
		select {
		case <-rs.ticker.C:
			rs.RunNow()
		case <-rs.stop:
			return
		}
	}
}

// RunNow performs one sweep over all template owners. Exposed for tests
// and admin tooling.
func (rs *ReplayScheduler) RunNow() {
	ctx := context.Background()

	owners, err := rs.Owners.ListTemplateOwners(ctx)
	if err != nil {
		rs.Log.Error("replay sweep failed to list owners", "error", err)
		return
	}

	applied := 0
	failed := 0
	for _, owner := range owners {
		result := rs.Engine.ApplyAll(ctx, owner)
		applied += result.Applied
		failed += len(result.Errors)
		if result.Applied > 0 && rs.Handler != nil {
			rs.Handler.flushBalances(owner)
		}
		for _, msg := range result.Errors {
			rs.Log.Warn("replay sweep recorded error", "owner", owner, "error", msg)
		}
	}

	if applied > 0 || failed > 0 {
		rs.Log.Info("replay sweep completed",
			"owners", len(owners), "applied", applied, "errors", failed)
	}
}
