package orchestrators

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nightslip/internal/domain/mirror"
)

type fakePusher struct {
	mu     sync.Mutex
	pushes []mirror.Snapshot
	err    error
}

func (p *fakePusher) Push(_ context.Context, s mirror.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, s)
	return p.err
}

type fakeRuns struct {
	mu   sync.Mutex
	runs []mirror.Run
}

func (r *fakeRuns) Save(_ context.Context, run mirror.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func testSnapshot(context.Context) (mirror.Snapshot, error) {
	return mirror.Snapshot{
		Dates: []mirror.DateRow{{ID: "d1", DateString: "2025-03-01"}},
		Users: []mirror.UserRow{{ID: anaEmail}, {ID: benEmail}},
	}, nil
}

func newTestDispatcher(p *fakePusher, runs *fakeRuns, snap SnapshotFunc) *MirrorDispatcher {
	n := 0
	return NewMirrorDispatcher(MirrorDeps{
		Snapshot: snap,
		Pusher:   p,
		Runs:     runs,
		GenerateID: func() string {
			n++
			return "run-" + string(rune('0'+n))
		},
	})
}

func TestMirrorDispatcher_TriggerRecordsRun(t *testing.T) {
	p, runs := &fakePusher{}, &fakeRuns{}
	d := newTestDispatcher(p, runs, testSnapshot)

	d.Trigger(mirror.TriggerAttendance)
	d.Trigger(mirror.TriggerReset)
	d.Wait()

	if len(p.pushes) != 2 {
		t.Fatalf("pushes = %d, want 2", len(p.pushes))
	}
	if len(runs.runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs.runs))
	}
	for _, r := range runs.runs {
		if r.Status != mirror.StatusDone || r.Dates != 1 || r.Users != 2 {
			t.Errorf("run = %+v", r)
		}
		if r.FinishedAt.Before(r.StartedAt) {
			t.Errorf("finished before start: %+v", r)
		}
	}
}

func TestMirrorDispatcher_FailureIsRecordedNotRetried(t *testing.T) {
	p, runs := &fakePusher{err: errors.New("status 500")}, &fakeRuns{}
	d := newTestDispatcher(p, runs, testSnapshot)

	d.Trigger(mirror.TriggerDate)
	d.Wait()

	if len(p.pushes) != 1 {
		t.Errorf("pushes = %d, want exactly 1", len(p.pushes))
	}
	if len(runs.runs) != 1 || runs.runs[0].Status != mirror.StatusFailed || runs.runs[0].Error != "status 500" {
		t.Errorf("runs = %+v", runs.runs)
	}
}

func TestMirrorDispatcher_SnapshotFailure(t *testing.T) {
	p, runs := &fakePusher{}, &fakeRuns{}
	d := newTestDispatcher(p, runs, func(context.Context) (mirror.Snapshot, error) {
		return mirror.Snapshot{}, errors.New("db closed")
	})

	run, err := d.Run(context.Background(), mirror.TriggerManual)
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
	if run.Status != mirror.StatusFailed || len(p.pushes) != 0 {
		t.Errorf("run = %+v pushes = %d", run, len(p.pushes))
	}
}

// TestMirrorDispatcher_TriggerDoesNotBlock verifies callers return before a slow push finishes.
func TestMirrorDispatcher_TriggerDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	p := &fakePusher{}
	d := NewMirrorDispatcher(MirrorDeps{
		Snapshot: func(ctx context.Context) (mirror.Snapshot, error) {
			<-release
			return mirror.Snapshot{}, nil
		},
		Pusher: p,
	})

	done := make(chan struct{})
	go func() {
		d.Trigger(mirror.TriggerAttendance)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Trigger blocked on the push")
	}
	close(release)
	d.Wait()
	if len(p.pushes) != 1 {
		t.Errorf("pushes = %d, want 1", len(p.pushes))
	}
}

func TestExecuteSyncNow(t *testing.T) {
	p, runs := &fakePusher{}, &fakeRuns{}
	a := &auditSpy{}
	deps := SyncNowDeps{Policy: testPolicy, Dispatcher: newTestDispatcher(p, runs, testSnapshot), AuditStore: a}

	if _, err := ExecuteSyncNow(context.Background(), SyncNowInput{ActorEmail: anaEmail}, deps); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("member sync: err = %v, want ErrAccessDenied", err)
	}

	run, err := ExecuteSyncNow(context.Background(), SyncNowInput{ActorEmail: adminEmail}, deps)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if run.Trigger != mirror.TriggerManual || run.Status != mirror.StatusDone {
		t.Errorf("run = %+v", run)
	}

	p.err = errors.New("timeout")
	if _, err := ExecuteSyncNow(context.Background(), SyncNowInput{ActorEmail: adminEmail}, deps); !errors.Is(err, ErrUpstream) {
		t.Errorf("failed sync: err = %v, want ErrUpstream", err)
	}
	if len(a.events) != 2 {
		t.Errorf("audit events = %d, want 2", len(a.events))
	}
}

// slowPusher takes delay per push and gives up when its context ends first.
type slowPusher struct {
	delay time.Duration
}

func (p slowPusher) Push(ctx context.Context, _ mirror.Snapshot) error {
	select {
	case <-time.After(p.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestMirrorDispatcher_QueuedTriggersGetFullTimeout(t *testing.T) {
	runs := &fakeRuns{}
	d := NewMirrorDispatcher(MirrorDeps{
		Snapshot: testSnapshot,
		Pusher:   slowPusher{delay: 120 * time.Millisecond},
		Runs:     runs,
		Timeout:  300 * time.Millisecond,
	})

	// Together the pushes outlast one timeout; each alone fits well inside it.
	for i := 0; i < 4; i++ {
		d.Trigger(mirror.TriggerAttendance)
	}
	d.Wait()

	if len(runs.runs) != 4 {
		t.Fatalf("runs = %d, want 4", len(runs.runs))
	}
	for _, r := range runs.runs {
		if r.Status != mirror.StatusDone {
			t.Errorf("run %s status = %s (%s), want done", r.ID, r.Status, r.Error)
		}
	}
}
