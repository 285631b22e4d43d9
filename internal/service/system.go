package service

import (
	"context"
	"fmt"
	"time"

	"cartographer-notify/internal/entity"
	"cartographer-notify/internal/repository"

	"go.uber.org/zap"
)

// StateStore persists the engine's own lifecycle state across restarts.
type StateStore interface {
	Get(ctx context.Context) (*repository.ServiceState, error)
	MarkStartup(ctx context.Context) error
	MarkShutdown(ctx context.Context) error
}

// SystemService emits the engine's own cartographer_up/down events and
// keeps the service-state record that lets a restart report downtime.
type SystemService struct {
	state  StateStore
	events *EventService
	log    *zap.Logger
	now    func() time.Time
}

func NewSystemService(state StateStore, events *EventService, log *zap.Logger) *SystemService {
	return &SystemService{
		state:  state,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

// NotifyStartup records the startup and, unless this is the very first
// run, broadcasts cartographer_up with an approximate-downtime message.
func (s *SystemService) NotifyStartup(ctx context.Context) error {
	const op = "service.SystemService.NotifyStartup"

	previous, err := s.state.Get(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.state.MarkStartup(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if previous == nil {
		// First startup ever: nobody was monitoring, nothing recovered.
		return nil
	}

	event := entity.NetworkEvent{
		Type:       entity.CartographerUp,
		Priority:   entity.PriorityHigh,
		Title:      "Cartographer is Back Online",
		Message:    "The Cartographer monitoring service has started successfully. " + s.downtimeText(previous),
		OccurredAt: s.now().UTC(),
		Details: map[string]string{
			"service": "cartographer",
		},
	}

	report, err := s.events.Process(ctx, event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("cartographer_up broadcast",
		zap.String("op", op),
		zap.Int("delivered", report.Delivered),
	)
	return nil
}

// NotifyShutdown marks a clean shutdown so the next startup can report
// how long the service was down.
func (s *SystemService) NotifyShutdown(ctx context.Context) error {
	const op = "service.SystemService.NotifyShutdown"

	if err := s.state.MarkShutdown(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *SystemService) downtimeText(previous *repository.ServiceState) string {
	if previous.CleanShutdown && previous.LastShutdown != nil {
		downtime := s.now().UTC().Sub(*previous.LastShutdown)
		return fmt.Sprintf("Service was down for approximately %d minutes.", int(downtime.Minutes()))
	}
	if !previous.CleanShutdown {
		return "Service recovered from unexpected shutdown."
	}
	return "Service is now online."
}
