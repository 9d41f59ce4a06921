package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SweepFacade exposes the subset of application functionality required
// by the reconciler.
type SweepFacade interface {
	ExpireReservations(ctx context.Context, limit int) (int, error)
	CancelStalePayments(ctx context.Context, limit int) (int, error)
	FlagStaleShipments(ctx context.Context, limit int) (int, error)
}

// Reconciler periodically sweeps the order book: releasing expired
// holds, resolving stale pending payments, and flagging shipments stuck
// in transit.
type Reconciler struct {
	facade    SweepFacade
	interval  time.Duration
	batchSize int
	logger    *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewReconciler constructs the sweep worker.
func NewReconciler(facade SweepFacade, interval time.Duration, batchSize int, logger *slog.Logger) *Reconciler {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Reconciler{
		facade:    facade,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Start launches the background sweep loop.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.loop(runCtx)
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Reconciler) loop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one full pass. Exported so an operator endpoint can force
// a sweep outside the schedule.
func (r *Reconciler) Sweep(ctx context.Context) {
	released, err := r.facade.ExpireReservations(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("expire reservations sweep failed", slog.String("error", err.Error()))
	}

	payments, err := r.facade.CancelStalePayments(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("stale payment sweep failed", slog.String("error", err.Error()))
	}

	shipments, err := r.facade.FlagStaleShipments(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("stale shipment sweep failed", slog.String("error", err.Error()))
	}

	if released > 0 || payments > 0 || shipments > 0 {
		r.logger.Info("reconciliation sweep finished",
			slog.Int("reservations_released", released),
			slog.Int("payments_resolved", payments),
			slog.Int("shipments_flagged", shipments),
		)
	}
}
