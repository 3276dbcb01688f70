package worker

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"billbook/internal/core"
	"billbook/internal/log"
	"billbook/internal/sheets"
)

// BillSource lists the authoritative bills, normally the HTTP API client.
type BillSource interface {
	List(ctx context.Context) ([]core.Bill, error)
}

// ReconcilerConfig holds configuration for the reconciler
type ReconcilerConfig struct {
	// Interval between full comparisons (default: 15m)
	Interval time.Duration
}

// DefaultReconcilerConfig returns sensible defaults
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{Interval: 15 * time.Minute}
}

// Reconciler periodically rewrites the mirror from the source so events lost
// while the worker was down do not leave it stale.
type Reconciler struct {
	source BillSource
	mirror sheets.BillMirror
	config ReconcilerConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReconciler(source BillSource, mirror sheets.BillMirror, config ReconcilerConfig) *Reconciler {
	if config.Interval <= 0 {
		config.Interval = DefaultReconcilerConfig().Interval
	}
	return &Reconciler{
		source: source,
		mirror: mirror,
		config: config,
	}
}

// Start begins the reconcile loop. Returns an error if already running.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("reconciler is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	logger(ctx).InfoContext(ctx, "Mirror reconciler started", "interval", r.config.Interval)
	return nil
}

// Stop signals the loop and waits for the current pass to finish.
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.running = false
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		logger(ctx).InfoContext(ctx, "Mirror reconciler stopped")
		return nil
	case <-ctx.Done():
		logger(ctx).WarnContext(ctx, "Mirror reconciler stop timed out",
			log.NewFields().WithOperation(log.OpShutdown).WithError(ctx.Err(), log.ErrorTypeTimeout).ToSlice()...)
		return ctx.Err()
	}
}

func (r *Reconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Reconciler) runLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	// Reconcile immediately on startup
	r.reconcile(ctx)

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

func (r *Reconciler) reconcile(ctx context.Context) {
	if _, err := r.RunOnce(ctx); err != nil {
		logger(ctx).ErrorContext(ctx, "Mirror reconcile failed",
			log.NewFields().WithOperation(log.OpReconcile).WithError(err, log.ErrorTypeNetwork).ToSlice()...)
	}
}

// RunOnce compares source and mirror and rewrites the mirror when they
// differ. It reports whether a rewrite happened.
func (r *Reconciler) RunOnce(ctx context.Context) (bool, error) {
	l := logger(ctx)
	bills, err := r.source.List(ctx)
	if err != nil {
		return false, fmt.Errorf("list source bills: %w", err)
	}
	bills = slices.Clone(bills)
	sortByID(bills)

	if reader, ok := r.mirror.(sheets.BillReader); ok {
		current, err := reader.List(ctx)
		if err != nil {
			l.WarnContext(ctx, "Could not read mirror, rewriting it",
				log.NewFields().WithOperation(log.OpReconcile).WithError(err, log.ErrorTypeNetwork).ToSlice()...)
		} else {
			current = slices.Clone(current)
			sortByID(current)
			if slices.Equal(current, bills) {
				l.DebugContext(ctx, "Mirror up to date", log.FieldOperation, log.OpReconcile, "bills", len(bills))
				return false, nil
			}
		}
	}

	if err := r.mirror.ReplaceAll(ctx, bills); err != nil {
		return false, fmt.Errorf("rewrite mirror: %w", err)
	}
	l.InfoContext(ctx, "Mirror reconciled", log.FieldOperation, log.OpReconcile, "bills", len(bills))
	return true, nil
}

func logger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentWorker)
}

func sortByID(bills []core.Bill) {
	slices.SortFunc(bills, func(a, b core.Bill) int { return cmp.Compare(a.ID, b.ID) })
}
