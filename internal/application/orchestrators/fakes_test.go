package orchestrators

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	memberStore "nightslip/internal/adapters/storage/member"
	"nightslip/internal/domain/attendance"
	"nightslip/internal/domain/audit"
	"nightslip/internal/domain/authz"
	"nightslip/internal/domain/member"
	"nightslip/internal/domain/trackeddate"
)

const (
	adminEmail = "chair@club.org"
	anaEmail   = "ana@club.org"
	benEmail   = "ben@club.org"
)

var testPolicy = authz.NewAllowList(adminEmail)

// fakeMembers is an in-memory member store.
type fakeMembers struct {
	byID    map[string]member.Member
	err     error
	saveErr error
}

func newFakeMembers(ms ...member.Member) *fakeMembers {
	f := &fakeMembers{byID: make(map[string]member.Member)}
	for _, m := range ms {
		f.byID[m.ID] = m
	}
	return f
}

func (f *fakeMembers) GetByID(_ context.Context, id string) (member.Member, error) {
	if f.err != nil {
		return member.Member{}, f.err
	}
	m, ok := f.byID[id]
	if !ok {
		return member.Member{}, fmt.Errorf("member not found: %w", sql.ErrNoRows)
	}
	return m, nil
}

func (f *fakeMembers) Save(ctx context.Context, m member.Member) error {
	return f.SaveMany(ctx, []member.Member{m})
}

func (f *fakeMembers) SaveMany(_ context.Context, ms []member.Member) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	for _, m := range ms {
		f.byID[m.ID] = m
	}
	return nil
}

func (f *fakeMembers) Delete(_ context.Context, id string) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeMembers) List(_ context.Context, _ memberStore.ListFilter) ([]member.Member, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []member.Member
	for _, m := range f.byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// fakeDates is an in-memory tracked date store. Delete also clears records when linked.
type fakeDates struct {
	byID    map[string]trackeddate.TrackedDate
	records *fakeRecords
	err     error
}

func newFakeDates(ds ...trackeddate.TrackedDate) *fakeDates {
	f := &fakeDates{byID: make(map[string]trackeddate.TrackedDate)}
	for _, d := range ds {
		f.byID[d.ID] = d
	}
	return f
}

func (f *fakeDates) GetByID(_ context.Context, id string) (trackeddate.TrackedDate, error) {
	if f.err != nil {
		return trackeddate.TrackedDate{}, f.err
	}
	d, ok := f.byID[id]
	if !ok {
		return trackeddate.TrackedDate{}, fmt.Errorf("tracked date not found: %w", sql.ErrNoRows)
	}
	return d, nil
}

func (f *fakeDates) GetByDateString(_ context.Context, ds string) (trackeddate.TrackedDate, error) {
	if f.err != nil {
		return trackeddate.TrackedDate{}, f.err
	}
	for _, d := range f.byID {
		if d.DateString == ds {
			return d, nil
		}
	}
	return trackeddate.TrackedDate{}, fmt.Errorf("tracked date not found: %w", sql.ErrNoRows)
}

func (f *fakeDates) Save(_ context.Context, d trackeddate.TrackedDate) error {
	f.byID[d.ID] = d
	return nil
}

func (f *fakeDates) Delete(ctx context.Context, id string) (int64, error) {
	if _, ok := f.byID[id]; !ok {
		return 0, fmt.Errorf("tracked date not found: %w", sql.ErrNoRows)
	}
	delete(f.byID, id)
	if f.records == nil {
		return 0, nil
	}
	return f.records.DeleteByDateID(ctx, id)
}

// fakeRecords is an in-memory attendance store.
type fakeRecords struct {
	byKey   map[string]attendance.Record
	saves   int
	getErr  error
	saveErr error
}

func newFakeRecords(rs ...attendance.Record) *fakeRecords {
	f := &fakeRecords{byKey: make(map[string]attendance.Record)}
	for _, r := range rs {
		f.byKey[r.Key()] = r
	}
	return f
}

func (f *fakeRecords) Get(_ context.Context, memberID, dateID string) (*attendance.Record, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	r, ok := f.byKey[attendance.Key(memberID, dateID)]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeRecords) Save(_ context.Context, r attendance.Record) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.byKey[r.Key()] = r
	return nil
}

func (f *fakeRecords) DeleteByDateID(_ context.Context, dateID string) (int64, error) {
	var n int64
	for k, r := range f.byKey {
		if r.DateID == dateID {
			delete(f.byKey, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeRecords) List(_ context.Context) ([]attendance.Record, error) {
	var out []attendance.Record
	for _, r := range f.byKey {
		out = append(out, r)
	}
	return out, nil
}

// mirrorSpy records triggers.
type mirrorSpy struct {
	mu       sync.Mutex
	triggers []string
}

func (m *mirrorSpy) Trigger(trigger string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers = append(m.triggers, trigger)
}

func (m *mirrorSpy) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.triggers)
}

// receiptSpy records receipt notifications.
type receiptSpy struct {
	sent []attendance.Record
}

func (r *receiptSpy) Notify(_ member.Member, _ trackeddate.TrackedDate, rec attendance.Record) {
	r.sent = append(r.sent, rec)
}

// auditSpy records audit events.
type auditSpy struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *auditSpy) Save(_ context.Context, e audit.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
	return nil
}
