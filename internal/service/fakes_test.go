package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cartographer-notify/internal/entity"
	"cartographer-notify/pkg/postgres"

	"github.com/google/uuid"
)

func attemptKey(eventID, userID string, channel entity.Channel) string {
	return eventID + "|" + userID + "|" + string(channel)
}

type fakeDeliveryLog struct {
	mu   sync.Mutex
	rows map[string]*entity.DeliveryAttempt

	claimErr error
}

func newFakeDeliveryLog() *fakeDeliveryLog {
	return &fakeDeliveryLog{rows: make(map[string]*entity.DeliveryAttempt)}
}

func (f *fakeDeliveryLog) Claim(_ context.Context, _ postgres.QueryExecuter, eventID, userID string, channel entity.Channel) (bool, error) {
	if f.claimErr != nil {
		return false, f.claimErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	key := attemptKey(eventID, userID, channel)
	if _, ok := f.rows[key]; ok {
		return false, nil
	}
	f.rows[key] = &entity.DeliveryAttempt{
		EventID:   eventID,
		UserID:    userID,
		Channel:   channel,
		Outcome:   entity.OutcomeFailed,
		CreatedAt: time.Now(),
	}
	return true, nil
}

func (f *fakeDeliveryLog) SetOutcome(_ context.Context, _ postgres.QueryExecuter, eventID, userID string, channel entity.Channel, outcome entity.DeliveryOutcome, attemptErr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[attemptKey(eventID, userID, channel)]
	if !ok {
		return entity.ErrDataNotFound
	}
	row.Outcome = outcome
	row.Error = attemptErr
	return nil
}

func (f *fakeDeliveryLog) CountDelivered(_ context.Context, _ postgres.QueryExecuter, eventID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	users := make(map[string]struct{})
	for _, row := range f.rows {
		if row.EventID == eventID && row.Outcome == entity.OutcomeSent {
			users[row.UserID] = struct{}{}
		}
	}
	return len(users), nil
}

func (f *fakeDeliveryLog) row(eventID, userID string, channel entity.Channel) *entity.DeliveryAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[attemptKey(eventID, userID, channel)]
}

func (f *fakeDeliveryLog) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeSink struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSink) Send(context.Context, entity.ChannelTarget, entity.NetworkEvent, entity.Priority) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeSink) sends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePrefStore struct {
	mu      sync.Mutex
	network map[string]*entity.Preferences
	global  map[string]*entity.Preferences

	readErr error
}

func newFakePrefStore() *fakePrefStore {
	return &fakePrefStore{
		network: make(map[string]*entity.Preferences),
		global:  make(map[string]*entity.Preferences),
	}
}

func (f *fakePrefStore) GetNetwork(_ context.Context, _ postgres.QueryExecuter, userID, networkID string) (*entity.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	p, ok := f.network[userID+"|"+networkID]
	if !ok {
		return nil, entity.ErrDataNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePrefStore) GetGlobal(_ context.Context, _ postgres.QueryExecuter, userID string) (*entity.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	p, ok := f.global[userID]
	if !ok {
		return nil, entity.ErrDataNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePrefStore) Upsert(_ context.Context, _ postgres.QueryExecuter, p *entity.Preferences) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	if p.NetworkID == "" {
		f.global[p.UserID] = &cp
	} else {
		f.network[p.UserID+"|"+p.NetworkID] = &cp
	}
	return nil
}

func (f *fakePrefStore) DeleteNetwork(_ context.Context, _ postgres.QueryExecuter, userID, networkID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := userID + "|" + networkID
	if _, ok := f.network[key]; !ok {
		return entity.ErrDataNotFound
	}
	delete(f.network, key)
	return nil
}

// nopCache always misses so service tests hit the store directly.
type nopCache struct{}

func (nopCache) GetPreferences(context.Context, string, string) (*entity.Preferences, error) {
	return nil, entity.ErrDataNotFound
}
func (nopCache) SetPreferences(context.Context, *entity.Preferences) error   { return nil }
func (nopCache) InvalidatePreferences(context.Context, string, string) error { return nil }

type fakeNetworkStore struct {
	networks map[string]bool
	members  map[string][]string
	links    map[string]string

	// globals are users with a global preference record but possibly no
	// membership; AllUserIDs unions them in like the real store.
	globals []string
}

func newFakeNetworkStore() *fakeNetworkStore {
	return &fakeNetworkStore{
		networks: make(map[string]bool),
		members:  make(map[string][]string),
		links:    make(map[string]string),
	}
}

func (f *fakeNetworkStore) Exists(_ context.Context, _ postgres.QueryExecuter, networkID string) (bool, error) {
	return f.networks[networkID], nil
}

func (f *fakeNetworkStore) MemberUserIDs(_ context.Context, _ postgres.QueryExecuter, networkID string) ([]string, error) {
	return f.members[networkID], nil
}

func (f *fakeNetworkStore) AllUserIDs(context.Context, postgres.QueryExecuter) ([]string, error) {
	seen := make(map[string]struct{})
	var all []string
	add := func(u string) {
		if _, ok := seen[u]; !ok {
			seen[u] = struct{}{}
			all = append(all, u)
		}
	}
	for _, users := range f.members {
		for _, u := range users {
			add(u)
		}
	}
	for _, u := range f.globals {
		add(u)
	}
	return all, nil
}

func (f *fakeNetworkStore) DiscordUserID(_ context.Context, _ postgres.QueryExecuter, userID string) (string, error) {
	id, ok := f.links[userID]
	if !ok {
		return "", entity.ErrRecipientNotLinked
	}
	return id, nil
}

// fakeLimiter counts admissions per (user, network) against the limit,
// mirroring the sliding-window semantics within a single test run.
type fakeLimiter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: make(map[string]int)}
}

func (f *fakeLimiter) Allow(_ context.Context, userID, networkID string, limit int) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	key := userID + "|" + networkID
	if f.counts[key] >= limit {
		return false, nil
	}
	f.counts[key]++
	return true, nil
}

type fakeBroadcastStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*entity.ScheduledBroadcast
}

func newFakeBroadcastStore() *fakeBroadcastStore {
	return &fakeBroadcastStore{rows: make(map[uuid.UUID]*entity.ScheduledBroadcast)}
}

func (f *fakeBroadcastStore) Create(_ context.Context, _ postgres.QueryExecuter, b *entity.ScheduledBroadcast) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[b.ID]; ok {
		return entity.ErrConflictingData
	}
	cp := *b
	f.rows[b.ID] = &cp
	return nil
}

func (f *fakeBroadcastStore) GetByID(_ context.Context, _ postgres.QueryExecuter, id uuid.UUID) (*entity.ScheduledBroadcast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[id]
	if !ok {
		return nil, entity.ErrBroadcastNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBroadcastStore) ListByNetwork(_ context.Context, _ postgres.QueryExecuter, networkID string, includeCompleted bool) ([]entity.ScheduledBroadcast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.ScheduledBroadcast
	for _, b := range f.rows {
		if b.NetworkID != networkID {
			continue
		}
		if !includeCompleted && b.Status.Terminal() {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeBroadcastStore) UpdatePending(_ context.Context, _ postgres.QueryExecuter, b *entity.ScheduledBroadcast) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.rows[b.ID]
	if !ok || cur.Status != entity.BroadcastPending {
		return entity.ErrBroadcastNotPending
	}
	cp := *b
	f.rows[b.ID] = &cp
	return nil
}

func (f *fakeBroadcastStore) Cancel(_ context.Context, _ postgres.QueryExecuter, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.rows[id]
	if !ok || cur.Status != entity.BroadcastPending {
		return entity.ErrBroadcastNotPending
	}
	cur.Status = entity.BroadcastCancelled
	return nil
}

func (f *fakeBroadcastStore) Delete(_ context.Context, _ postgres.QueryExecuter, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return entity.ErrBroadcastNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeBroadcastStore) ClaimDue(_ context.Context, _ postgres.QueryExecuter, now time.Time, limit int) ([]entity.ScheduledBroadcast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var claimed []entity.ScheduledBroadcast
	for _, b := range f.rows {
		if len(claimed) >= limit {
			break
		}
		if b.Status == entity.BroadcastPending && !b.ScheduledAt.After(now) {
			b.Status = entity.BroadcastFiring
			claimed = append(claimed, *b)
		}
	}
	return claimed, nil
}

func (f *fakeBroadcastStore) MarkFired(_ context.Context, _ postgres.QueryExecuter, id uuid.UUID, status entity.BroadcastStatus, usersNotified int, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[id]
	if !ok {
		return entity.ErrDataNotFound
	}
	if b.Status != entity.BroadcastFiring {
		return fmt.Errorf("mark fired from %s: %w", b.Status, entity.ErrDataNotFound)
	}
	b.Status = status
	b.UsersNotified = usersNotified
	b.ErrorMessage = errMsg
	if status == entity.BroadcastSent {
		t := time.Now()
		b.SentAt = &t
	}
	return nil
}

func (f *fakeBroadcastStore) status(id uuid.UUID) entity.BroadcastStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id].Status
}
