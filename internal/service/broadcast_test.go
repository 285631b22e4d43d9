package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cartographer-notify/internal/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type broadcastFixture struct {
	svc   *BroadcastService
	store *fakeBroadcastStore
	pipe  *pipeline
	now   time.Time
}

func newBroadcastFixture(t *testing.T) *broadcastFixture {
	t.Helper()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	pipe := newPipeline(EventClock(func() time.Time { return now }))
	store := newFakeBroadcastStore()

	svc := NewBroadcastService(store, pipe.networks, pipe.log, pipe.events, zap.NewNop(),
		BroadcastClock(func() time.Time { return now }),
	)
	return &broadcastFixture{svc: svc, store: store, pipe: pipe, now: now}
}

func (f *broadcastFixture) request(scheduledAt time.Time) CreateBroadcastRequest {
	return CreateBroadcastRequest{
		NetworkID:   "net-1",
		Title:       "Maintenance window",
		Message:     "Router firmware upgrade at 22:00.",
		Type:        entity.ScheduledMaintenance,
		Priority:    entity.PriorityMedium,
		ScheduledAt: scheduledAt,
		Timezone:    "Europe/Amsterdam",
		CreatedBy:   "owner-1",
	}
}

func TestBroadcastCreateLeadTime(t *testing.T) {
	f := newBroadcastFixture(t)
	f.pipe.addMember("u1", "net-1", prefsWithEmail("u1"))

	_, err := f.svc.Create(context.Background(), f.request(f.now.Add(2*time.Minute)))
	if !errors.Is(err, entity.ErrScheduleTooSoon) {
		t.Fatalf("2 minutes out: err = %v, want ErrScheduleTooSoon", err)
	}

	b, err := f.svc.Create(context.Background(), f.request(f.now.Add(10*time.Minute)))
	if err != nil {
		t.Fatalf("10 minutes out: %v", err)
	}
	if b.Status != entity.BroadcastPending {
		t.Errorf("status = %q, want pending", b.Status)
	}
}

func TestBroadcastCreateValidation(t *testing.T) {
	f := newBroadcastFixture(t)
	later := f.now.Add(time.Hour)

	tests := []struct {
		name   string
		mutate func(*CreateBroadcastRequest)
	}{
		{"missing network", func(r *CreateBroadcastRequest) { r.NetworkID = "" }},
		{"empty title", func(r *CreateBroadcastRequest) { r.Title = "" }},
		{"title too long", func(r *CreateBroadcastRequest) {
			for len(r.Title) <= 200 {
				r.Title += "x"
			}
		}},
		{"bad type", func(r *CreateBroadcastRequest) { r.Type = "carrier_pigeon" }},
		{"bad priority", func(r *CreateBroadcastRequest) { r.Priority = "urgent" }},
		{"bad timezone", func(r *CreateBroadcastRequest) { r.Timezone = "Mars/Olympus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request(later)
			tt.mutate(&req)
			if _, err := f.svc.Create(context.Background(), req); !errors.Is(err, entity.ErrInvalidData) {
				t.Errorf("err = %v, want ErrInvalidData", err)
			}
		})
	}
}

func TestBroadcastUpdate(t *testing.T) {
	f := newBroadcastFixture(t)

	b, err := f.svc.Create(context.Background(), f.request(f.now.Add(time.Hour)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	title := "Rescheduled maintenance"
	updated, err := f.svc.Update(context.Background(), b.ID, &entity.BroadcastUpdate{Title: &title})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != title {
		t.Errorf("title = %q, want %q", updated.Title, title)
	}

	// A changed schedule is revalidated against the floor at commit time.
	tooSoon := f.now.Add(time.Minute)
	if _, err := f.svc.Update(context.Background(), b.ID, &entity.BroadcastUpdate{ScheduledAt: &tooSoon}); !errors.Is(err, entity.ErrScheduleTooSoon) {
		t.Errorf("reschedule too soon: err = %v, want ErrScheduleTooSoon", err)
	}

	// An untouched schedule is not revalidated, even while time passes.
	message := "Window moved to the weekend."
	if _, err := f.svc.Update(context.Background(), b.ID, &entity.BroadcastUpdate{Message: &message}); err != nil {
		t.Errorf("message-only update: %v", err)
	}
}

func TestBroadcastUpdateNotPending(t *testing.T) {
	f := newBroadcastFixture(t)

	b, err := f.svc.Create(context.Background(), f.request(f.now.Add(time.Hour)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.svc.Cancel(context.Background(), b.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	title := "too late"
	if _, err := f.svc.Update(context.Background(), b.ID, &entity.BroadcastUpdate{Title: &title}); !errors.Is(err, entity.ErrBroadcastNotPending) {
		t.Errorf("update cancelled: err = %v, want ErrBroadcastNotPending", err)
	}
	if err := f.svc.Cancel(context.Background(), b.ID); !errors.Is(err, entity.ErrBroadcastNotPending) {
		t.Errorf("double cancel: err = %v, want ErrBroadcastNotPending", err)
	}
	if err := f.svc.Cancel(context.Background(), uuid.New()); !errors.Is(err, entity.ErrBroadcastNotFound) {
		t.Errorf("cancel missing: err = %v, want ErrBroadcastNotFound", err)
	}
}

func TestSweepFiresExactlyOnce(t *testing.T) {
	f := newBroadcastFixture(t)
	f.pipe.addMember("u1", "net-1", prefsWithEmail("u1"))

	b, err := f.svc.Create(context.Background(), f.request(f.now.Add(10*time.Minute)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Move the row into the due window without moving the clock.
	f.store.rows[b.ID].ScheduledAt = f.now.Add(-time.Minute)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.svc.Sweep(context.Background()); err != nil {
				t.Errorf("Sweep: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := f.store.status(b.ID); got != entity.BroadcastSent {
		t.Fatalf("status = %q, want sent", got)
	}
	if got := f.pipe.sink.sends(); got != 1 {
		t.Errorf("sink invoked %d times, want exactly once", got)
	}
	if got := f.store.rows[b.ID].UsersNotified; got != 1 {
		t.Errorf("users_notified = %d, want 1", got)
	}
}

func TestSweepNetworkGone(t *testing.T) {
	f := newBroadcastFixture(t)
	f.pipe.networks.networks["net-1"] = true

	b, err := f.svc.Create(context.Background(), f.request(f.now.Add(10*time.Minute)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.store.rows[b.ID].ScheduledAt = f.now.Add(-time.Minute)
	f.pipe.networks.networks["net-1"] = false

	if err := f.svc.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if got := f.store.status(b.ID); got != entity.BroadcastFailed {
		t.Errorf("status = %q, want failed", got)
	}
	if msg := f.store.rows[b.ID].ErrorMessage; msg == "" {
		t.Errorf("expected error message on failed broadcast")
	}
}

func TestSweepZeroEligibleRecipientsIsSent(t *testing.T) {
	f := newBroadcastFixture(t)

	// Member exists but has notifications switched off entirely.
	prefs := prefsWithEmail("u1")
	prefs.Enabled = false
	f.pipe.addMember("u1", "net-1", prefs)

	b, err := f.svc.Create(context.Background(), f.request(f.now.Add(10*time.Minute)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.store.rows[b.ID].ScheduledAt = f.now.Add(-time.Minute)

	if err := f.svc.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if got := f.store.status(b.ID); got != entity.BroadcastSent {
		t.Errorf("status = %q, want sent even with nobody notified", got)
	}
	if got := f.store.rows[b.ID].UsersNotified; got != 0 {
		t.Errorf("users_notified = %d, want 0", got)
	}
}

func TestSweepPreferenceStoreDownIsFailed(t *testing.T) {
	f := newBroadcastFixture(t)
	f.pipe.addMember("u1", "net-1", prefsWithEmail("u1"))

	b, err := f.svc.Create(context.Background(), f.request(f.now.Add(10*time.Minute)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.store.rows[b.ID].ScheduledAt = f.now.Add(-time.Minute)
	f.pipe.prefs.readErr = errors.New("connection refused")

	if err := f.svc.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if got := f.store.status(b.ID); got != entity.BroadcastFailed {
		t.Errorf("status = %q, want failed when no recipient could be evaluated", got)
	}
	if got := f.store.rows[b.ID].UsersNotified; got != 0 {
		t.Errorf("users_notified = %d, want 0", got)
	}
	if f.store.rows[b.ID].ErrorMessage == "" {
		t.Errorf("expected error message on failed broadcast")
	}
}

func TestSweepAllRecipientsFailed(t *testing.T) {
	f := newBroadcastFixture(t)
	f.pipe.sink.err = errors.New("smtp refused")
	f.pipe.addMember("u1", "net-1", prefsWithEmail("u1"))

	b, err := f.svc.Create(context.Background(), f.request(f.now.Add(10*time.Minute)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.store.rows[b.ID].ScheduledAt = f.now.Add(-time.Minute)

	if err := f.svc.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if got := f.store.status(b.ID); got != entity.BroadcastFailed {
		t.Errorf("status = %q, want failed when every attempt failed", got)
	}
}
