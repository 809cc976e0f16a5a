package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"nightslip/internal/adapters/sheets"
	"nightslip/internal/domain/audit"
	"nightslip/internal/domain/authz"
	"nightslip/internal/domain/mirror"
	"nightslip/internal/platform/metrics"
)

// DefaultMirrorTimeout bounds one background push.
const DefaultMirrorTimeout = 30 * time.Second

// SnapshotFunc builds the full dataset to mirror.
type SnapshotFunc func(ctx context.Context) (mirror.Snapshot, error)

// RunStore persists mirror run outcomes.
type RunStore interface {
	Save(ctx context.Context, run mirror.Run) error
}

// MirrorDeps holds dependencies for the MirrorDispatcher.
type MirrorDeps struct {
	Snapshot   SnapshotFunc
	Pusher     sheets.Pusher
	Runs       RunStore      // optional
	Timeout    time.Duration // per background run; DefaultMirrorTimeout when zero
	GenerateID func() string
	Now        func() time.Time
}

// MirrorDispatcher pushes snapshots to the spreadsheet after writes commit.
// Runs are serialized so the last push carries the newest state. A failed
// run is logged, counted and recorded, never retried.
type MirrorDispatcher struct {
	deps MirrorDeps
	mu   sync.Mutex
	wg   sync.WaitGroup
}

var _ MirrorTrigger = (*MirrorDispatcher)(nil)

// NewMirrorDispatcher creates a dispatcher.
// PRE: deps.Snapshot and deps.Pusher are non-nil
func NewMirrorDispatcher(deps MirrorDeps) *MirrorDispatcher {
	if deps.Timeout <= 0 {
		deps.Timeout = DefaultMirrorTimeout
	}
	if deps.GenerateID == nil {
		deps.GenerateID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &MirrorDispatcher{deps: deps}
}

// Trigger starts a background push and returns immediately.
// The push uses its own context so it outlives the request that caused it.
// Its timeout starts once the run holds the dispatcher, not while it queues.
func (d *MirrorDispatcher) Trigger(trigger string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.mu.Lock()
		defer d.mu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), d.deps.Timeout)
		defer cancel()
		d.run(ctx, trigger)
	}()
}

// Wait blocks until every triggered push has finished.
func (d *MirrorDispatcher) Wait() {
	d.wg.Wait()
}

// Run builds and pushes one snapshot synchronously.
// POST: The returned run is done or failed and has been recorded
func (d *MirrorDispatcher) Run(ctx context.Context, trigger string) (mirror.Run, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.run(ctx, trigger)
}

// run performs one push. PRE: d.mu is held
func (d *MirrorDispatcher) run(ctx context.Context, trigger string) (mirror.Run, error) {
	run := mirror.NewRun(d.deps.GenerateID(), trigger, d.deps.Now())
	err := d.push(ctx, &run)
	if err != nil {
		run.MarkFailed(err, d.deps.Now())
	} else {
		run.MarkDone(d.deps.Now())
	}

	metrics.MirrorRuns.WithLabelValues(trigger, run.Status).Inc()
	metrics.MirrorDuration.Observe(run.Duration().Seconds())
	logArgs := []any{
		"run_id", run.ID,
		"trigger", trigger,
		"status", run.Status,
		"dates", run.Dates,
		"users", run.Users,
		"records", run.Records,
		"duration_ms", run.Duration().Milliseconds(),
	}
	if err != nil {
		slog.Warn("mirror_run", append(logArgs, "error", err)...)
	} else {
		slog.Info("mirror_run", logArgs...)
	}

	if d.deps.Runs != nil {
		// The run log is written even when ctx has expired.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if serr := d.deps.Runs.Save(saveCtx, run); serr != nil {
			slog.Error("mirror_run_save_failed", "run_id", run.ID, "error", serr)
		}
	}

	if err != nil {
		return run, fmt.Errorf("%w: mirror: %w", ErrUpstream, err)
	}
	return run, nil
}

func (d *MirrorDispatcher) push(ctx context.Context, run *mirror.Run) error {
	snap, err := d.deps.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}
	run.Counts(snap)
	return d.deps.Pusher.Push(ctx, snap)
}

// SyncNowInput identifies the admin requesting a manual push.
type SyncNowInput struct {
	ActorEmail string
}

// SyncNowDeps holds dependencies for SyncNow.
type SyncNowDeps struct {
	Policy     authz.Policy
	Dispatcher *MirrorDispatcher
	AuditStore AuditRecorder
}

// ExecuteSyncNow pushes a snapshot and waits for the result.
// PRE: ActorEmail is an administrator
// POST: Returns the recorded run; a failed push yields ErrUpstream
func ExecuteSyncNow(ctx context.Context, input SyncNowInput, deps SyncNowDeps) (mirror.Run, error) {
	if err := requireAdmin(deps.Policy, input.ActorEmail, "sync"); err != nil {
		return mirror.Run{}, err
	}
	run, err := deps.Dispatcher.Run(ctx, mirror.TriggerManual)
	recordAudit(ctx, deps.AuditStore,
		audit.NewEvent(input.ActorEmail, audit.CategoryMirror, audit.ActionSync).
			WithResource("mirror_run", run.ID).
			WithDescription(run.Status))
	return run, err
}
