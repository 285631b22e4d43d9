package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cartographer-notify/internal/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	_defaultFanOutLimit = 16
	_testEventPrefix    = "test:"
)

// EventService runs the delivery pipeline for raw events: per affected
// user, resolve preferences, evaluate quiet hours, count against the rate
// limit, then dispatch. It is the single entry point for events from the
// HTTP surface, the AMQP consumer, the broadcast sweep and the engine's
// own lifecycle notifications.
type EventService struct {
	prefs      *PreferenceService
	networks   NetworkStore
	limiter    RateLimiter
	dispatcher *Dispatcher
	log        *zap.Logger

	fanOutLimit int
	now         func() time.Time

	// overflow counts rate-limited drops for observability.
	overflow atomic.Int64
}

func NewEventService(
	prefs *PreferenceService,
	networks NetworkStore,
	limiter RateLimiter,
	dispatcher *Dispatcher,
	log *zap.Logger,
	opts ...EventOption,
) *EventService {
	s := &EventService{
		prefs:       prefs,
		networks:    networks,
		limiter:     limiter,
		dispatcher:  dispatcher,
		log:         log,
		fanOutLimit: _defaultFanOutLimit,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Overflow returns the number of deliveries dropped by the rate limiter
// since startup.
func (s *EventService) Overflow() int64 {
	return s.overflow.Load()
}

// Process fans the event out to every affected user and pushes each one
// through the pipeline. Recipients are processed concurrently with no
// ordering guarantee between them.
func (s *EventService) Process(ctx context.Context, event entity.NetworkEvent) (*entity.DeliveryReport, error) {
	const op = "service.EventService.Process"

	if err := s.normalize(&event); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	users, err := s.affectedUsers(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	report := &entity.DeliveryReport{EventID: event.ID}
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.fanOutLimit)

	for _, userID := range users {
		eg.Go(func() error {
			result, reason, err := s.processUser(egCtx, event, userID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed++
			case reason != "":
				report.Suppress(reason)
			default:
				report.Resolved++
				if result.Sent > 0 {
					report.Delivered++
				} else if result.Failed > 0 {
					report.Failed++
				}
			}
			return nil
		})
	}
	_ = eg.Wait()

	s.log.Info("event processed",
		zap.String("op", op),
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int("users", len(users)),
		zap.Int("delivered", report.Delivered),
		zap.Int("failed", report.Failed),
		zap.Any("suppressed", report.Suppressed),
	)
	return report, nil
}

// processUser runs one recipient through resolve -> quiet hours -> rate
// limit -> dispatch. A non-empty reason means the pipeline suppressed the
// delivery before dispatch; a non-nil error means the pipeline could not
// evaluate the recipient at all and counts as a delivery failure, never
// as a suppression.
func (s *EventService) processUser(ctx context.Context, event entity.NetworkEvent, userID string) (DispatchResult, entity.SuppressReason, error) {
	const op = "service.EventService.processUser"

	prefs, err := s.effectivePrefs(ctx, event, userID)
	if err != nil {
		s.log.Warn("preference lookup failed",
			zap.String("op", op),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return DispatchResult{}, "", fmt.Errorf("%s: %w", op, err)
	}

	resolution := Resolve(event, prefs, s.discordLink(ctx, prefs))
	if resolution.Suppressed() {
		return DispatchResult{}, resolution.Reason, nil
	}
	delivery := resolution.Delivery

	if QuietHoursSuppressed(s.now().UTC(), delivery.QuietHours, delivery.EffectivePriority) {
		return DispatchResult{}, entity.SuppressQuietHours, nil
	}

	allowed, err := s.limiter.Allow(ctx, userID, event.NetworkID, delivery.MaxPerHour)
	if err != nil {
		s.log.Warn("rate limiter unavailable, delivery admitted",
			zap.String("op", op),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	} else if !allowed {
		s.overflow.Add(1)
		s.log.Debug("delivery rate limited",
			zap.String("op", op),
			zap.String("user_id", userID),
			zap.String("network_id", event.NetworkID),
		)
		return DispatchResult{}, entity.SuppressRateLimited, nil
	}

	return s.dispatcher.Dispatch(ctx, event, delivery), "", nil
}

// TestDelivery synthesizes a one-off event for a single channel so a user
// can verify configuration. It bypasses quiet hours and the rate limiter
// but still records a DeliveryAttempt under a unique test event id.
func (s *EventService) TestDelivery(ctx context.Context, userID, networkID string, channel entity.Channel) error {
	const op = "service.EventService.TestDelivery"

	if !channel.IsValid() {
		return fmt.Errorf("%s: channel %q: %w", op, channel, entity.ErrInvalidData)
	}

	var (
		prefs *entity.Preferences
		err   error
	)
	if networkID == "" {
		prefs, err = s.prefs.GetGlobal(ctx, userID)
	} else {
		prefs, err = s.prefs.GetNetwork(ctx, userID, networkID)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var target *entity.ChannelTarget
	for _, t := range resolveTargets(prefs, s.discordLink(ctx, prefs)) {
		if t.Channel == channel {
			target = &t
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%s: channel %s: %w", op, channel, entity.ErrNoChannelConfigured)
	}

	event := entity.NetworkEvent{
		ID:         _testEventPrefix + uuid.NewString(),
		Type:       entity.SystemStatus,
		NetworkID:  networkID,
		Priority:   entity.PriorityLow,
		Title:      "Test Notification",
		Message:    "This is a test notification from Cartographer. Your " + string(channel) + " channel is configured correctly.",
		OccurredAt: s.now().UTC(),
	}

	result := s.dispatcher.Dispatch(ctx, event, &entity.ResolvedDelivery{
		UserID:            userID,
		NetworkID:         networkID,
		EffectivePriority: entity.PriorityLow,
		Targets:           []entity.ChannelTarget{*target},
	})
	if result.Sent == 0 {
		return fmt.Errorf("%s: test delivery failed", op)
	}
	return nil
}

func (s *EventService) normalize(event *entity.NetworkEvent) error {
	if event.Type == "" {
		return fmt.Errorf("event_type is required: %w", entity.ErrInvalidData)
	}
	if !event.Type.IsGlobal() && event.NetworkID == "" {
		return fmt.Errorf("network_id is required for %s: %w", event.Type, entity.ErrInvalidData)
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Priority == "" {
		event.Priority = event.Type.DefaultPriority()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	return nil
}

func (s *EventService) affectedUsers(ctx context.Context, event entity.NetworkEvent) ([]string, error) {
	if event.Type.IsGlobal() {
		return s.networks.AllUserIDs(ctx, nil)
	}
	return s.networks.MemberUserIDs(ctx, nil, event.NetworkID)
}

func (s *EventService) effectivePrefs(ctx context.Context, event entity.NetworkEvent, userID string) (*entity.Preferences, error) {
	networkID := event.NetworkID
	if event.Type.IsGlobal() {
		networkID = ""
	}
	return s.prefs.Effective(ctx, userID, networkID)
}

// discordLink resolves the linked Discord account when the preferences
// ask for direct messages; empty means unlinked or not needed.
func (s *EventService) discordLink(ctx context.Context, prefs *entity.Preferences) string {
	if prefs == nil || !prefs.Discord.Enabled || prefs.Discord.Mode != entity.DiscordDirectMessage {
		return ""
	}
	id, err := s.networks.DiscordUserID(ctx, nil, prefs.UserID)
	if err != nil {
		if !errors.Is(err, entity.ErrRecipientNotLinked) {
			s.log.Warn("discord link lookup failed",
				zap.String("user_id", prefs.UserID),
				zap.Error(err),
			)
		}
		return ""
	}
	return id
}
