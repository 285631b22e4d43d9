package service

import (
	"context"
	"fmt"
	"time"

	"cartographer-notify/internal/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	_defaultMinLeadTime = 5 * time.Minute
	_defaultClaimBatch  = 50
	_maxTitleLen        = 200
	_maxMessageLen      = 4000
)

// BroadcastService owns the scheduled-broadcast lifecycle. Only pending
// broadcasts may be edited or cancelled; the periodic sweep claims due
// rows exactly once and injects them into the event pipeline.
type BroadcastService struct {
	broadcasts BroadcastStore
	networks   NetworkStore
	deliveries DeliveryLog
	events     *EventService
	log        *zap.Logger

	minLeadTime time.Duration
	claimBatch  int
	now         func() time.Time
}

func NewBroadcastService(
	broadcasts BroadcastStore,
	networks NetworkStore,
	deliveries DeliveryLog,
	events *EventService,
	log *zap.Logger,
	opts ...BroadcastOption,
) *BroadcastService {
	s := &BroadcastService{
		broadcasts:  broadcasts,
		networks:    networks,
		deliveries:  deliveries,
		events:      events,
		log:         log,
		minLeadTime: _defaultMinLeadTime,
		claimBatch:  _defaultClaimBatch,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBroadcastRequest carries a new broadcast. ScheduledAt must be at
// least the lead-time floor in the future at creation time.
type CreateBroadcastRequest struct {
	NetworkID   string
	Title       string
	Message     string
	Type        entity.NotificationType
	Priority    entity.Priority
	ScheduledAt time.Time
	Timezone    string
	CreatedBy   string
}

func (s *BroadcastService) Create(ctx context.Context, req CreateBroadcastRequest) (*entity.ScheduledBroadcast, error) {
	const op = "service.BroadcastService.Create"

	if err := s.validateCreate(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("%s: new v7 uuid: %w", op, err)
	}

	b := &entity.ScheduledBroadcast{
		ID:          id,
		NetworkID:   req.NetworkID,
		Title:       req.Title,
		Message:     req.Message,
		Type:        req.Type,
		Priority:    req.Priority,
		ScheduledAt: req.ScheduledAt.UTC(),
		Timezone:    req.Timezone,
		Status:      entity.BroadcastPending,
		CreatedAt:   s.now().UTC(),
		CreatedBy:   req.CreatedBy,
	}

	if err := s.broadcasts.Create(ctx, nil, b); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("broadcast scheduled",
		zap.String("op", op),
		zap.String("id", b.ID.String()),
		zap.String("network_id", b.NetworkID),
		zap.Time("scheduled_at", b.ScheduledAt),
	)
	return b, nil
}

func (s *BroadcastService) Get(ctx context.Context, id uuid.UUID) (*entity.ScheduledBroadcast, error) {
	const op = "service.BroadcastService.Get"

	b, err := s.broadcasts.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

func (s *BroadcastService) List(ctx context.Context, networkID string, includeCompleted bool) ([]entity.ScheduledBroadcast, error) {
	const op = "service.BroadcastService.List"

	list, err := s.broadcasts.ListByNetwork(ctx, nil, networkID, includeCompleted)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Update applies a partial update to a pending broadcast. A changed
// schedule is revalidated against the lead-time floor at this commit
// time, not the original creation time.
func (s *BroadcastService) Update(ctx context.Context, id uuid.UUID, update *entity.BroadcastUpdate) (*entity.ScheduledBroadcast, error) {
	const op = "service.BroadcastService.Update"

	b, err := s.broadcasts.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if b.Status != entity.BroadcastPending {
		return nil, fmt.Errorf("%s: status %s: %w", op, b.Status, entity.ErrBroadcastNotPending)
	}

	update.Apply(b)

	if err := s.validateFields(b.Title, b.Message, b.Type, b.Priority, b.Timezone); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if update.ScheduledAt != nil && b.ScheduledAt.Before(s.now().UTC().Add(s.minLeadTime)) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrScheduleTooSoon)
	}

	if err := s.broadcasts.UpdatePending(ctx, nil, b); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("broadcast updated",
		zap.String("op", op),
		zap.String("id", id.String()),
	)
	return b, nil
}

// Cancel transitions a pending broadcast to cancelled. Cancelling after
// the sweep's claim step has begun has no effect: firing is committed.
func (s *BroadcastService) Cancel(ctx context.Context, id uuid.UUID) error {
	const op = "service.BroadcastService.Cancel"

	if _, err := s.broadcasts.GetByID(ctx, nil, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.broadcasts.Cancel(ctx, nil, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("broadcast cancelled",
		zap.String("op", op),
		zap.String("id", id.String()),
	)
	return nil
}

func (s *BroadcastService) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "service.BroadcastService.Delete"

	if err := s.broadcasts.Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Sweep claims every due pending broadcast and fires each one through
// the pipeline. The claim is an atomic pending -> firing transition in
// the store, so concurrent sweeps (multiple processes included) can
// never double-fire a row.
func (s *BroadcastService) Sweep(ctx context.Context) error {
	const op = "service.BroadcastService.Sweep"

	claimed, err := s.broadcasts.ClaimDue(ctx, nil, s.now().UTC(), s.claimBatch)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(claimed) == 0 {
		return nil
	}

	s.log.Info("firing due broadcasts",
		zap.String("op", op),
		zap.Int("count", len(claimed)),
	)

	for _, b := range claimed {
		s.fire(ctx, &b)
	}
	return nil
}

// fire runs one claimed broadcast to a terminal state. Suppressed
// recipients never fail a broadcast; it fails only when the pipeline
// itself could not run, or when every attempted recipient failed.
func (s *BroadcastService) fire(ctx context.Context, b *entity.ScheduledBroadcast) {
	const op = "service.BroadcastService.fire"

	log := s.log.With(
		zap.String("op", op),
		zap.String("id", b.ID.String()),
		zap.String("network_id", b.NetworkID),
	)

	exists, err := s.networks.Exists(ctx, nil, b.NetworkID)
	if err != nil {
		s.markFired(ctx, b.ID, entity.BroadcastFailed, 0, fmt.Sprintf("network lookup: %v", err))
		log.Error("network lookup failed", zap.Error(err))
		return
	}
	if !exists {
		s.markFired(ctx, b.ID, entity.BroadcastFailed, 0, "network no longer exists")
		log.Warn("network no longer exists")
		return
	}

	event := b.Event(s.now().UTC())
	report, err := s.events.Process(ctx, event)
	if err != nil {
		s.markFired(ctx, b.ID, entity.BroadcastFailed, 0, err.Error())
		log.Error("pipeline failed", zap.Error(err))
		return
	}

	usersNotified, err := s.deliveries.CountDelivered(ctx, nil, event.ID)
	if err != nil {
		log.Warn("users_notified count failed", zap.Error(err))
		usersNotified = report.Delivered
	}

	// Failed counts both exhausted dispatches and recipients the pipeline
	// could not evaluate, so an all-errors fan-out lands here too.
	if report.Delivered == 0 && report.Failed > 0 {
		s.markFired(ctx, b.ID, entity.BroadcastFailed, usersNotified, "delivery failed for all recipients")
		log.Warn("all recipients failed")
		return
	}

	s.markFired(ctx, b.ID, entity.BroadcastSent, usersNotified, "")
	log.Info("broadcast sent",
		zap.Int("users_notified", usersNotified),
		zap.Any("suppressed", report.Suppressed),
	)
}

func (s *BroadcastService) markFired(ctx context.Context, id uuid.UUID, status entity.BroadcastStatus, usersNotified int, errMsg string) {
	if err := s.broadcasts.MarkFired(ctx, nil, id, status, usersNotified, errMsg); err != nil {
		s.log.Error("mark fired failed",
			zap.String("id", id.String()),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (s *BroadcastService) validateCreate(req CreateBroadcastRequest) error {
	if req.NetworkID == "" {
		return fmt.Errorf("network_id is required: %w", entity.ErrInvalidData)
	}
	if err := s.validateFields(req.Title, req.Message, req.Type, req.Priority, req.Timezone); err != nil {
		return err
	}
	if req.ScheduledAt.Before(s.now().UTC().Add(s.minLeadTime)) {
		return entity.ErrScheduleTooSoon
	}
	return nil
}

func (s *BroadcastService) validateFields(title, message string, t entity.NotificationType, p entity.Priority, timezone string) error {
	if title == "" || len(title) > _maxTitleLen {
		return fmt.Errorf("title length must be 1..%d: %w", _maxTitleLen, entity.ErrInvalidData)
	}
	if message == "" || len(message) > _maxMessageLen {
		return fmt.Errorf("message length must be 1..%d: %w", _maxMessageLen, entity.ErrInvalidData)
	}
	if !t.IsValid() {
		return fmt.Errorf("notification type %q: %w", t, entity.ErrInvalidData)
	}
	if !p.IsValid() {
		return fmt.Errorf("priority %q: %w", p, entity.ErrInvalidData)
	}
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return fmt.Errorf("timezone %q: %w", timezone, entity.ErrInvalidData)
		}
	}
	return nil
}
